package display

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/gogpu/camfx"
	"github.com/gogpu/camfx/gpucore"
)

// Pool is a fixed set of drawables sharing an in-flight bound. Surfaces
// embed it and supply the present hook.
type Pool struct {
	width, height int
	max           int64
	timeout       time.Duration

	sem          *semaphore.Weighted
	closeTimeout time.Duration

	mu     sync.Mutex
	free   []*drawable
	all    []*drawable
	closed bool

	present  PresentFunc
	acquired atomic.Uint64
	timeouts atomic.Uint64
}

// NewPool creates the drawables of a width x height surface on dev.
func NewPool(dev gpucore.Device, width, height int, present PresentFunc, opts ...Option) (*Pool, error) {
	if dev == nil {
		return nil, errNilDevice
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	p := &Pool{
		width:   width,
		height:  height,
		max:     int64(cfg.maxInFlight),
		timeout: cfg.acquireTimeout,
		sem:     semaphore.NewWeighted(int64(cfg.maxInFlight)),
		present: present,

		closeTimeout: defaultCloseTimeout,
	}
	for i := range cfg.maxInFlight {
		tex, err := dev.CreateTexture(gpucore.TextureDesc{
			Label:  fmt.Sprintf("%s_%d", cfg.label, i),
			Width:  width,
			Height: height,
			Format: gpucore.TextureFormatBGRA8Unorm,
			Usage:  gpucore.TextureUsageShaderWrite | gpucore.TextureUsageReadback,
		})
		if err != nil {
			p.destroy()
			return nil, fmt.Errorf("display: create drawable %d: %w", i, err)
		}
		d := &drawable{pool: p, tex: tex, index: i, buf: make([]byte, width*height*4)}
		p.all = append(p.all, d)
		p.free = append(p.free, d)
	}
	return p, nil
}

// NextDrawable implements Surface.
func (p *Pool) NextDrawable(ctx context.Context) (Drawable, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, camfx.ErrClosed
	}

	actx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.sem.Acquire(actx, 1); err != nil {
		p.timeouts.Add(1)
		return nil, fmt.Errorf("%w: %d drawables in flight: %w", camfx.ErrDrawableUnavailable, p.max, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || len(p.free) == 0 {
		p.sem.Release(1)
		return nil, fmt.Errorf("%w: surface closed", camfx.ErrDrawableUnavailable)
	}
	d := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	d.released.Store(false)
	p.acquired.Add(1)
	return d, nil
}

func (p *Pool) put(d *drawable) {
	p.mu.Lock()
	if p.closed {
		// Close gave up waiting for this drawable and left its texture alive.
		p.all = slices.DeleteFunc(p.all, func(x *drawable) bool { return x == d })
		p.mu.Unlock()
		d.tex.Destroy()
		p.sem.Release(1)
		return
	}
	p.free = append(p.free, d)
	p.mu.Unlock()
	p.sem.Release(1)
}

// Size implements Surface.
func (p *Pool) Size() (int, int) { return p.width, p.height }

// MaxInFlight implements Surface.
func (p *Pool) MaxInFlight() int { return int(p.max) }

// InFlight returns the number of drawables currently acquired.
func (p *Pool) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.all) - len(p.free)
}

// Timeouts returns how many acquisitions failed.
func (p *Pool) Timeouts() uint64 { return p.timeouts.Load() }

// defaultCloseTimeout bounds how long Close waits for in-flight drawables.
const defaultCloseTimeout = 5 * time.Second

// Close waits for the in-flight drawables and destroys every texture. If
// the wait times out, the drawables still in flight keep their textures until
// they are released and Close returns an error.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), p.closeTimeout)
	defer cancel()
	err := p.sem.Acquire(ctx, p.max)

	// Only free drawables are destroyed here. A drawable still held by a
	// command buffer is destroyed by its Release.
	p.mu.Lock()
	free := p.free
	p.free = nil
	p.all = slices.DeleteFunc(p.all, func(d *drawable) bool { return slices.Contains(free, d) })
	inFlight := len(p.all)
	p.mu.Unlock()
	for _, d := range free {
		d.tex.Destroy()
	}

	if err != nil {
		camfx.Logger().Warn("display: closed with drawables in flight",
			"in_flight", inFlight,
			"timeout", p.closeTimeout,
		)
		return fmt.Errorf("display: %d drawables still in flight: %w", inFlight, err)
	}
	return nil
}

func (p *Pool) destroy() {
	for _, d := range p.all {
		d.tex.Destroy()
	}
}

type drawable struct {
	pool     *Pool
	tex      gpucore.Texture
	index    int
	buf      []byte
	released atomic.Bool
}

func (d *drawable) Texture() gpucore.Texture { return d.tex }

func (d *drawable) Present() error {
	if err := d.tex.ReadPixels(d.buf); err != nil {
		return fmt.Errorf("display: read drawable %d: %w", d.index, err)
	}
	if d.pool.present == nil {
		return nil
	}
	return d.pool.present(Image{Pix: d.buf, Width: d.pool.width, Height: d.pool.height})
}

func (d *drawable) Release() {
	if d.released.CompareAndSwap(false, true) {
		d.pool.put(d)
	}
}

var errNilDevice = errors.New("display: nil device")
