package software

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/camfx"
	"github.com/gogpu/camfx/backend"
	"github.com/gogpu/camfx/gpucore"
	"github.com/gogpu/camfx/internal/parallel"
	"github.com/gogpu/camfx/kernel"
)

func init() {
	backend.Register(backend.BackendSoftware, func() (gpucore.Device, error) {
		return New(), nil
	})
}

// Option configures a Device.
type Option func(*options)

type options struct {
	workers    int
	queueDepth int
}

// WithWorkers sets the number of worker goroutines. 0 means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithQueueDepth sets how many committed command buffers may wait for the
// queue goroutine before Commit blocks.
func WithQueueDepth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueDepth = n
		}
	}
}

// Device is the CPU reference device.
type Device struct {
	pool  *parallel.Pool
	cache *textureCache

	mu     sync.RWMutex
	closed bool
	queue  chan *commandBuffer
	done   chan struct{}

	livePipelines atomic.Int64
	submitted     atomic.Uint64
	completed     atomic.Uint64
}

var _ gpucore.Device = (*Device)(nil)

// New creates a device and starts its queue goroutine.
func New(opts ...Option) *Device {
	o := options{queueDepth: 16}
	for _, opt := range opts {
		opt(&o)
	}

	d := &Device{
		pool:  parallel.NewPool(o.workers),
		queue: make(chan *commandBuffer, o.queueDepth),
		done:  make(chan struct{}),
	}
	d.cache = &textureCache{}
	go d.run()

	camfx.Logger().Info("software device opened", "workers", d.pool.Workers())
	return d
}

// Name returns "software".
func (d *Device) Name() string { return backend.BackendSoftware }

// TextureCache returns the cache that wraps external images.
func (d *Device) TextureCache() gpucore.TextureCache { return d.cache }

// CreateTexture allocates a zeroed texture in host memory.
func (d *Device) CreateTexture(desc gpucore.TextureDesc) (gpucore.Texture, error) {
	bpp := desc.Format.BytesPerPixel()
	if bpp != 4 {
		return nil, fmt.Errorf("software: unsupported texture format %d", desc.Format)
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("software: invalid texture size %dx%d", desc.Width, desc.Height)
	}
	return &texture{
		label:  desc.Label,
		format: desc.Format,
		plane: kernel.Plane{
			Pix:    make([]byte, desc.Width*desc.Height*bpp),
			Stride: desc.Width * bpp,
			Width:  desc.Width,
			Height: desc.Height,
		},
	}, nil
}

// CreateComputePipeline resolves the Go implementation of desc.Function.
func (d *Device) CreateComputePipeline(desc gpucore.ComputePipelineDesc) (gpucore.ComputePipeline, error) {
	fn, ok := kernel.Reference(desc.Function)
	if !ok {
		return nil, fmt.Errorf("software: no program named %q", desc.Function)
	}
	if desc.WorkgroupSize != gpucore.WorkgroupSize {
		return nil, fmt.Errorf("software: program %q: workgroup size %v, want %v",
			desc.Function, desc.WorkgroupSize, gpucore.WorkgroupSize)
	}
	d.livePipelines.Add(1)
	return &pipeline{label: desc.Label, fn: fn, dev: d}, nil
}

// NewCommandBuffer starts a command buffer.
func (d *Device) NewCommandBuffer(label string) (gpucore.CommandBuffer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, camfx.ErrClosed
	}
	return &commandBuffer{dev: d, label: label}, nil
}

// LivePipelines returns the number of pipelines created and not destroyed.
func (d *Device) LivePipelines() int64 { return d.livePipelines.Load() }

// Completed returns the number of command buffers that finished executing.
func (d *Device) Completed() uint64 { return d.completed.Load() }

// Close waits for every committed command buffer to finish, then stops the
// queue goroutine and the worker pool. Close is safe to call more than once.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.done
	d.pool.Close()
	camfx.Logger().Info("software device closed",
		"submitted", d.submitted.Load(), "completed", d.completed.Load())
	return nil
}

func (d *Device) submit(cb *commandBuffer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return camfx.ErrClosed
	}
	d.submitted.Add(1)
	d.queue <- cb
	return nil
}

func (d *Device) run() {
	defer close(d.done)
	for cb := range d.queue {
		cb.complete(cb.execute())
		d.completed.Add(1)
	}
}

// textureCache wraps external images without copying.
type textureCache struct {
	live atomic.Int64
}

func (c *textureCache) CreateTextureFromImage(img gpucore.ImageBuffer) (gpucore.Texture, error) {
	if img.Format.BytesPerPixel() != 4 {
		return nil, fmt.Errorf("software: unsupported image format %d", img.Format)
	}
	if img.Width <= 0 || img.Height <= 0 || img.Stride < img.Width*4 ||
		len(img.Pix) < img.Stride*(img.Height-1)+img.Width*4 {
		return nil, fmt.Errorf("software: invalid image %dx%d stride %d (%d bytes)",
			img.Width, img.Height, img.Stride, len(img.Pix))
	}
	c.live.Add(1)
	return &texture{
		format: img.Format,
		plane: kernel.Plane{
			Pix:    img.Pix,
			Stride: img.Stride,
			Width:  img.Width,
			Height: img.Height,
		},
		cache: c,
	}, nil
}

// Flush is a no-op: wrapped images hold no platform resources.
func (c *textureCache) Flush() {}

type texture struct {
	label     string
	format    gpucore.TextureFormat
	plane     kernel.Plane
	cache     *textureCache
	destroyed atomic.Bool
}

func (t *texture) Width() int                    { return t.plane.Width }
func (t *texture) Height() int                   { return t.plane.Height }
func (t *texture) Format() gpucore.TextureFormat { return t.format }

func (t *texture) ReadPixels(dst []byte) error {
	if t.destroyed.Load() {
		return fmt.Errorf("software: read of destroyed texture %q", t.label)
	}
	row := t.plane.Width * 4
	if len(dst) < row*t.plane.Height {
		return fmt.Errorf("software: ReadPixels buffer too small: %d < %d", len(dst), row*t.plane.Height)
	}
	for y := range t.plane.Height {
		copy(dst[y*row:(y+1)*row], t.plane.Pix[y*t.plane.Stride:])
	}
	return nil
}

func (t *texture) Destroy() {
	if t.destroyed.CompareAndSwap(false, true) && t.cache != nil {
		t.cache.live.Add(-1)
	}
}

type pipeline struct {
	label     string
	fn        kernel.Func
	dev       *Device
	destroyed atomic.Bool
}

func (p *pipeline) Label() string { return p.label }

func (p *pipeline) Destroy() {
	if p.destroyed.CompareAndSwap(false, true) {
		p.dev.livePipelines.Add(-1)
	}
}
