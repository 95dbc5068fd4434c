package camfx

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards every record. Enabled reports false so callers skip
// attribute formatting on the per-frame paths.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger configures the logger shared by camfx and its sub-packages.
// Pass nil to restore the silent default. Safe for concurrent use.
//
// Levels:
//   - [slog.LevelDebug]: per-frame diagnostics (cache hits, dispatch sizes)
//   - [slog.LevelInfo]: lifecycle (device opened, capture started, kernel switched)
//   - [slog.LevelWarn]: degraded capture mode, skipped frames and ticks
//   - [slog.LevelError]: startup failures
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger. Sub-packages call this instead of
// holding their own copy so that SetLogger takes effect everywhere.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
