package camfx

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestLoggerDefaultIsSilent(t *testing.T) {
	SetLogger(nil)
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("default logger should not be enabled at any level")
	}
}

func TestSetLogger(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	Logger().Info("kernel switched", "name", "brightnessKernel")

	if !strings.Contains(buf.String(), "brightnessKernel") {
		t.Errorf("log output = %q, want it to contain the kernel name", buf.String())
	}

	SetLogger(nil)
	buf.Reset()
	Logger().Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("log output after SetLogger(nil) = %q, want empty", buf.String())
	}
}

func TestSetLoggerConcurrent(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				SetLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
			} else {
				Logger().Debug("tick")
			}
		}()
	}
	wg.Wait()
}
