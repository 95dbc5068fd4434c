//go:build !headless

// Package window presents processed frames in a desktop window using ebiten.
//
// Window is a display.Surface whose drawables are read back into an RGBA
// buffer that ebiten uploads on every Draw. Draw is also the render tick,
// so the render cadence follows the display refresh. Space or Enter calls
// the advance hook; the overlay shows a caller-supplied label and the
// measured frame rate.
//
// Build with -tags headless to exclude this package.
package window

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"

	"github.com/gogpu/camfx"
	"github.com/gogpu/camfx/display"
	"github.com/gogpu/camfx/gpucore"
)

// Option configures a Window.
type Option func(*Window)

// WithTitle sets the window title.
func WithTitle(title string) Option {
	return func(w *Window) { w.title = title }
}

// WithOnAdvance installs the hook called when Space or Enter is pressed.
func WithOnAdvance(fn func()) Option {
	return func(w *Window) { w.onAdvance = fn }
}

// WithOverlay installs the function producing the overlay label.
func WithOverlay(fn func() string) Option {
	return func(w *Window) { w.overlay = fn }
}

// WithSurfaceOptions passes options to the drawable pool.
func WithSurfaceOptions(opts ...display.Option) Option {
	return func(w *Window) { w.surfaceOpts = append(w.surfaceOpts, opts...) }
}

// Window is an ebiten-backed surface.
type Window struct {
	*display.Pool

	title       string
	onAdvance   func()
	overlay     func() string
	surfaceOpts []display.Option

	mu    sync.Mutex
	rgba  *image.RGBA
	dirty bool

	frame *ebiten.Image
	ctx   context.Context
	tick  func(context.Context)
}

var (
	_ display.Surface = (*Window)(nil)
	_ display.Looper  = (*Window)(nil)
	_ ebiten.Game     = (*Window)(nil)
)

// New creates a window showing width x height frames rendered on dev.
func New(dev gpucore.Device, width, height int, opts ...Option) (*Window, error) {
	w := &Window{
		title: "camfx",
		rgba:  image.NewRGBA(image.Rect(0, 0, width, height)),
	}
	for _, opt := range opts {
		opt(w)
	}
	pool, err := display.NewPool(dev, width, height, w.present,
		append(w.surfaceOpts, display.WithLabel("window"))...)
	if err != nil {
		return nil, fmt.Errorf("window: %w", err)
	}
	w.Pool = pool
	return w, nil
}

func (w *Window) present(img display.Image) error {
	w.mu.Lock()
	display.BGRAToRGBA(w.rgba, img)
	w.dirty = true
	w.mu.Unlock()
	return nil
}

// Loop opens the window and runs ebiten's game loop on the calling
// goroutine, which must be the main goroutine. It returns when ctx is done
// or the window is closed.
func (w *Window) Loop(ctx context.Context, tick func(context.Context)) error {
	w.ctx, w.tick = ctx, tick
	width, height := w.Size()
	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowTitle(w.title)
	ebiten.SetWindowResizable(true)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetVsyncEnabled(true)

	camfx.Logger().Info("window: opened", "width", width, "height", height)
	err := ebiten.RunGame(w)
	if err != nil && !errors.Is(err, ebiten.Termination) {
		return fmt.Errorf("window: %w", err)
	}
	return nil
}

// Update implements ebiten.Game.
func (w *Window) Update() error {
	if ebiten.IsWindowBeingClosed() || w.ctx.Err() != nil {
		return ebiten.Termination
	}
	if w.onAdvance != nil && advancePressed() {
		w.onAdvance()
	}
	return nil
}

func advancePressed() bool {
	for _, k := range AdvanceKeys {
		if inpututil.IsKeyJustPressed(k) {
			return true
		}
	}
	return false
}

// AdvanceKeys switch to the next filter.
var AdvanceKeys = []ebiten.Key{ebiten.KeySpace, ebiten.KeyEnter}

// Draw implements ebiten.Game. It runs one render tick, then shows the most
// recently presented image.
func (w *Window) Draw(screen *ebiten.Image) {
	if w.ctx.Err() == nil {
		w.tick(w.ctx)
	}

	width, height := w.Size()
	if w.frame == nil {
		w.frame = ebiten.NewImage(width, height)
	}
	w.mu.Lock()
	if w.dirty {
		w.frame.WritePixels(w.rgba.Pix)
		w.dirty = false
	}
	w.mu.Unlock()
	screen.DrawImage(w.frame, nil)

	label := fmt.Sprintf("%.0f fps", ebiten.ActualFPS())
	if w.overlay != nil {
		label = OverlayLabel(w.overlay(), ebiten.ActualFPS())
	}
	text.Draw(screen, label, basicfont.Face7x13, 8, 18, color.RGBA{255, 255, 255, 255})
}

// Layout implements ebiten.Game.
func (w *Window) Layout(_, _ int) (int, int) {
	return w.Size()
}

// OverlayLabel formats the overlay line.
func OverlayLabel(label string, fps float64) string {
	if label == "" {
		return fmt.Sprintf("%.0f fps", fps)
	}
	return fmt.Sprintf("%s  %.0f fps", label, fps)
}
