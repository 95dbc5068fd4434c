// Package app wires a capture source, a device and a display surface into
// the filter pipeline.
//
//	source ──► Mailbox ──► Renderer.Tick ◄── Surface.Loop
//	                          │
//	registry ─► Pipeline ◄────┘  (SwitchKernel: Advance, then Rebuild)
//
// New compiles every filter once and publishes the first one; a compile
// failure there is fatal. Run drives the loop until the context is done or
// the surface is closed by the user.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/camfx"
	"github.com/gogpu/camfx/bridge"
	"github.com/gogpu/camfx/capture"
	"github.com/gogpu/camfx/display"
	"github.com/gogpu/camfx/gpucore"
	"github.com/gogpu/camfx/kernel"
	"github.com/gogpu/camfx/pipeline"
	"github.com/gogpu/camfx/render"
)

// Surface is a display surface that also drives render ticks.
type Surface interface {
	display.Surface
	display.Looper
}

// Option configures an App.
type Option func(*App)

// WithCaptureConfig sets the capture mode requested in Run.
func WithCaptureConfig(cfg capture.Config) Option {
	return func(a *App) { a.captureCfg = cfg }
}

// WithAutoCycle switches to the next filter every interval while running.
func WithAutoCycle(interval time.Duration) Option {
	return func(a *App) { a.autoCycle = interval }
}

// WithFrameLimit stops Run after n frames have been presented.
func WithFrameLimit(n uint64) Option {
	return func(a *App) { a.frameLimit = n }
}

// WithBridgeCapacity bounds the texture cache of the bridge.
func WithBridgeCapacity(n int) Option {
	return func(a *App) { a.bridgeCapacity = n }
}

// WithOnPresented installs a hook called for every completed draw.
func WithOnPresented(fn func(render.Presented)) Option {
	return func(a *App) { a.onPresented = fn }
}

// App owns the pipeline components between a source and a surface.
type App struct {
	dev     gpucore.Device
	source  capture.Source
	surface Surface

	registry *kernel.Registry
	pipeline *pipeline.Pipeline
	bridge   *bridge.Bridge
	mailbox  *camfx.Mailbox
	renderer *render.Renderer

	captureCfg     capture.Config
	autoCycle      time.Duration
	frameLimit     uint64
	bridgeCapacity int
	onPresented    func(render.Presented)

	// switchMu serializes kernel switches.
	switchMu sync.Mutex
	switches atomic.Uint64

	limitOnce sync.Once
	limitHit  chan struct{}

	closeOnce sync.Once
}

// New validates every filter on dev, publishes the first one and wires the
// components. The caller keeps ownership of dev, source and surface's
// device; Close releases the rest.
func New(dev gpucore.Device, source capture.Source, surface Surface, opts ...Option) (*App, error) {
	if dev == nil || source == nil || surface == nil {
		return nil, errors.New("app: nil device, source or surface")
	}
	a := &App{
		dev:            dev,
		source:         source,
		surface:        surface,
		registry:       kernel.NewRegistry(),
		mailbox:        &camfx.Mailbox{},
		bridgeCapacity: bridge.DefaultCapacity,
		limitHit:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}

	log := camfx.Logger()
	if err := pipeline.ValidateAll(dev, a.registry); err != nil {
		log.Error("app: filter validation failed", "device", dev.Name(), "err", err)
		return nil, err
	}
	a.pipeline = pipeline.New(dev)
	if _, err := a.pipeline.Rebuild(a.registry.Current()); err != nil {
		log.Error("app: initial pipeline build failed", "err", err)
		return nil, err
	}
	a.bridge = bridge.New(dev.TextureCache(), bridge.WithCapacity(a.bridgeCapacity))
	a.renderer = render.New(dev, a.mailbox, a.bridge, a.pipeline, surface,
		render.WithOnPresented(a.presented))
	source.SetHandler(a.mailbox.Store)

	log.Info("app: ready",
		"device", dev.Name(),
		"filters", a.registry.Len(),
		"kernel", a.registry.Current().Name,
		"max_in_flight", surface.MaxInFlight(),
	)
	return a, nil
}

// SwitchKernel advances to the next filter and rebuilds the pipeline before
// returning. If the rebuild fails the registry is rolled back so that it
// keeps naming the published pipeline.
func (a *App) SwitchKernel() (kernel.Descriptor, error) {
	a.switchMu.Lock()
	defer a.switchMu.Unlock()

	prev := a.registry.Current()
	next := a.registry.Advance()
	if _, err := a.pipeline.Rebuild(next); err != nil {
		if rerr := a.registry.Set(prev.Index); rerr != nil {
			err = errors.Join(err, rerr)
		}
		camfx.Logger().Error("app: kernel switch failed", "from", prev.Name, "to", next.Name, "err", err)
		return prev, fmt.Errorf("app: switch to %s: %w", next.Name, err)
	}
	a.switches.Add(1)
	camfx.Logger().Info("app: kernel switched", "from", prev.Name, "to", next.Name, "index", next.Index)
	return next, nil
}

// Kernel returns the current filter.
func (a *App) Kernel() kernel.Descriptor {
	return a.registry.Current()
}

// Registry returns the filter registry.
func (a *App) Registry() *kernel.Registry {
	return a.registry
}

// Run requests camera access, configures and starts capture, then drives
// render ticks from the surface until ctx is done, the surface closes or
// the frame limit is reached. Capture is stopped and in-flight draws have
// presented when Run returns.
//
// A refused camera permission returns camfx.ErrPermissionDenied.
func (a *App) Run(ctx context.Context) error {
	log := camfx.Logger()

	granted, err := a.source.RequestAccess(ctx)
	if err != nil {
		return fmt.Errorf("app: request camera access: %w", err)
	}
	if !granted {
		log.Warn("app: camera access denied")
		return camfx.ErrPermissionDenied
	}
	res, err := a.source.Configure(ctx, a.captureCfg)
	if err != nil {
		return fmt.Errorf("app: configure capture: %w", err)
	}
	if res.Degraded {
		log.Warn("app: capture running in default mode", "err", res.Warning)
	}
	if err := a.source.Start(ctx); err != nil {
		return fmt.Errorf("app: start capture: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		select {
		case <-a.limitHit:
			log.Info("app: frame limit reached", "frames", a.frameLimit)
			cancel()
		case <-gctx.Done():
		}
		return nil
	})
	if a.autoCycle > 0 {
		g.Go(func() error {
			return a.cycle(gctx)
		})
	}

	loopErr := a.surface.Loop(gctx, a.tick)
	cancel()

	stopErr := a.source.Stop()
	a.renderer.Wait()
	groupErr := g.Wait()

	st := a.renderer.Stats()
	log.Info("app: stopped",
		"ticks", st.Ticks,
		"presented", st.Presented,
		"skipped", st.ConversionSkips+st.DrawableSkips+st.OtherSkips,
		"kernel", a.registry.Current().Name,
	)
	return errors.Join(loopErr, stopErr, groupErr)
}

func (a *App) tick(ctx context.Context) {
	if _, err := a.renderer.Tick(ctx); err != nil && !camfx.Recoverable(err) {
		camfx.Logger().Error("app: render tick failed", "err", err)
	}
}

func (a *App) cycle(ctx context.Context) error {
	t := time.NewTicker(a.autoCycle)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if _, err := a.SwitchKernel(); err != nil {
				return err
			}
		}
	}
}

func (a *App) presented(p render.Presented) {
	if a.onPresented != nil {
		a.onPresented(p)
	}
	if a.frameLimit > 0 && a.renderer.Stats().Presented >= a.frameLimit {
		a.limitOnce.Do(func() { close(a.limitHit) })
	}
}

// Stats is a snapshot of the application counters.
type Stats struct {
	Renderer render.Stats
	Mailbox  camfx.MailboxStats
	Bridge   bridge.Stats
	Kernel   kernel.Descriptor
	Switches uint64
}

// Stats returns the current counters.
func (a *App) Stats() Stats {
	return Stats{
		Renderer: a.renderer.Stats(),
		Mailbox:  a.mailbox.Stats(),
		Bridge:   a.bridge.Stats(),
		Kernel:   a.registry.Current(),
		Switches: a.switches.Load(),
	}
}

// Close stops capture, waits for in-flight draws and releases the bridge,
// the surface and the pipeline. The device is left open.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		stopErr := a.source.Stop()
		a.renderer.Wait()
		a.bridge.Close()
		surfErr := a.surface.Close()
		a.pipeline.Close()
		err = errors.Join(stopErr, surfErr)
	})
	return err
}
