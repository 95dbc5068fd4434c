// Package pipeline compiles the active filter and publishes it to the
// render loop.
//
// A published [State] pairs a compiled program with the descriptor it was
// built from. States are swapped in with a single atomic pointer store, so
// a reader always sees a matching (descriptor, program) pair. Retired states
// stay alive until the last draw that acquired them releases them.
package pipeline

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/camfx"
	"github.com/gogpu/camfx/gpucore"
	"github.com/gogpu/camfx/kernel"
)

// State is an immutable published pipeline.
type State struct {
	// Descriptor is the program the pipeline was compiled from.
	Descriptor kernel.Descriptor

	// Pipeline is the compiled program.
	Pipeline gpucore.ComputePipeline

	// Version increases with every successful build.
	Version uint64

	// refs counts the owner reference held while published plus one per
	// Acquire. The pipeline is destroyed when it drops to zero.
	refs atomic.Int64
}

func newState(d kernel.Descriptor, p gpucore.ComputePipeline, version uint64) *State {
	s := &State{Descriptor: d, Pipeline: p, Version: version}
	s.refs.Store(1)
	return s
}

// tryRef takes a reference unless the state has already been destroyed.
func (s *State) tryRef() bool {
	for {
		n := s.refs.Load()
		if n <= 0 {
			return false
		}
		if s.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Release drops a reference obtained from Acquire.
func (s *State) Release() {
	if s.refs.Add(-1) == 0 {
		s.Pipeline.Destroy()
		camfx.Logger().Debug("pipeline: destroyed retired state",
			"kernel", s.Descriptor.Name, "version", s.Version)
	}
}

// Pipeline holds the published State.
//
// Pipeline is safe for concurrent use. Builds are serialized; readers never
// block.
type Pipeline struct {
	dev     gpucore.Device
	current atomic.Pointer[State]

	buildMu sync.Mutex
	version uint64
	closed  bool
}

// New creates a pipeline holder for dev. Nothing is published until the
// first Rebuild.
func New(dev gpucore.Device) *Pipeline {
	return &Pipeline{dev: dev}
}

// Build compiles the program for d on dev. Failures wrap
// camfx.ErrPipelineCompilation.
func Build(dev gpucore.Device, d kernel.Descriptor) (gpucore.ComputePipeline, error) {
	desc, err := kernel.PipelineDesc(d)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", camfx.ErrPipelineCompilation, d.Name, err)
	}
	p, err := dev.CreateComputePipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", camfx.ErrPipelineCompilation, d.Name, err)
	}
	return p, nil
}

// ValidateAll builds and immediately destroys every program in r. It is
// run once at startup so that a missing program fails before the first
// frame instead of on a later switch.
func ValidateAll(dev gpucore.Device, r *kernel.Registry) error {
	for _, d := range r.All() {
		p, err := Build(dev, d)
		if err != nil {
			return err
		}
		p.Destroy()
	}
	return nil
}

// Rebuild compiles d and publishes it. The previous state is retired and
// destroyed once no draw holds it. On failure the published state is left
// unchanged.
func (p *Pipeline) Rebuild(d kernel.Descriptor) (*State, error) {
	p.buildMu.Lock()
	defer p.buildMu.Unlock()

	if p.closed {
		return nil, camfx.ErrClosed
	}

	compiled, err := Build(p.dev, d)
	if err != nil {
		return nil, err
	}
	p.version++
	s := newState(d, compiled, p.version)

	if old := p.current.Swap(s); old != nil {
		old.Release()
	}
	camfx.Logger().Info("pipeline: published", "kernel", d.Name, "index", d.Index, "version", s.Version)
	return s, nil
}

// Current returns the published state without taking a reference, or nil
// before the first build. Use it for inspection only; draws use Acquire.
func (p *Pipeline) Current() *State {
	return p.current.Load()
}

// Acquire returns the published state with a reference held. The caller
// must Release it once the GPU work using it has completed.
func (p *Pipeline) Acquire() (*State, bool) {
	for {
		s := p.current.Load()
		if s == nil {
			return nil, false
		}
		if s.tryRef() {
			return s, true
		}
		// s was retired and destroyed between Load and tryRef; a newer
		// state has been published.
	}
}

// Close retires the published state. Draws holding a reference keep it
// alive until they release it.
func (p *Pipeline) Close() {
	p.buildMu.Lock()
	defer p.buildMu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	if old := p.current.Swap(nil); old != nil {
		old.Release()
	}
}
