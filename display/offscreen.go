package display

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/camfx/gpucore"
)

// Offscreen is a surface without a window. It keeps the most recently
// presented image and drives ticks from a timer.
type Offscreen struct {
	*Pool

	interval  time.Duration
	onPresent PresentFunc

	mu       sync.Mutex
	last     *image.RGBA
	presents atomic.Uint64
}

var (
	_ Surface = (*Offscreen)(nil)
	_ Looper  = (*Offscreen)(nil)
)

// NewOffscreen creates a width x height offscreen surface on dev.
func NewOffscreen(dev gpucore.Device, width, height int, opts ...Option) (*Offscreen, error) {
	if dev == nil {
		return nil, errNilDevice
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	o := &Offscreen{
		interval:  cfg.tickInterval,
		onPresent: cfg.onPresent,
		last:      image.NewRGBA(image.Rect(0, 0, width, height)),
	}
	pool, err := NewPool(dev, width, height, o.present, append(opts, WithLabel("offscreen"))...)
	if err != nil {
		return nil, err
	}
	o.Pool = pool
	return o, nil
}

func (o *Offscreen) present(img Image) error {
	o.mu.Lock()
	BGRAToRGBA(o.last, img)
	o.mu.Unlock()
	o.presents.Add(1)

	if o.onPresent != nil {
		return o.onPresent(img)
	}
	return nil
}

// LastImage returns a copy of the most recently presented image.
func (o *Offscreen) LastImage() *image.RGBA {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := image.NewRGBA(o.last.Rect)
	copy(out.Pix, o.last.Pix)
	return out
}

// Presents returns the number of presented images.
func (o *Offscreen) Presents() uint64 {
	return o.presents.Load()
}

// Loop calls tick every interval until ctx is done.
func (o *Offscreen) Loop(ctx context.Context, tick func(context.Context)) error {
	t := time.NewTicker(o.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if ctx.Err() != nil {
				return nil
			}
			tick(ctx)
		}
	}
}

// BGRAToRGBA copies a presented image into dst, swapping the red and blue
// channels. dst must be at least as large as img.
func BGRAToRGBA(dst *image.RGBA, img Image) {
	w := min(img.Width, dst.Rect.Dx())
	h := min(img.Height, dst.Rect.Dy())
	for y := range h {
		src := img.Pix[y*img.Width*4:]
		row := dst.Pix[y*dst.Stride:]
		for x := range w {
			i := x * 4
			row[i] = src[i+2]
			row[i+1] = src[i+1]
			row[i+2] = src[i]
			row[i+3] = src[i+3]
		}
	}
}
