package pipeline

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gogpu/camfx"
	"github.com/gogpu/camfx/gpucore"
	"github.com/gogpu/camfx/kernel"
)

type fakePipeline struct {
	label     string
	destroyed atomic.Bool
}

func (p *fakePipeline) Label() string { return p.label }
func (p *fakePipeline) Destroy() {
	if !p.destroyed.CompareAndSwap(false, true) {
		panic("pipeline destroyed twice: " + p.label)
	}
}

// fakeDevice compiles every program except those listed in missing.
type fakeDevice struct {
	gpucore.Device
	mu      sync.Mutex
	missing map[string]bool
	built   []*fakePipeline
}

func (d *fakeDevice) CreateComputePipeline(desc gpucore.ComputePipelineDesc) (gpucore.ComputePipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.missing[desc.Function] {
		return nil, fmt.Errorf("no function named %s in library", desc.Function)
	}
	p := &fakePipeline{label: desc.Function}
	d.built = append(d.built, p)
	return p, nil
}

func TestRebuildPublishes(t *testing.T) {
	r := kernel.NewRegistry()
	p := New(&fakeDevice{})

	if p.Current() != nil {
		t.Fatal("Current() before the first build should be nil")
	}
	if _, ok := p.Acquire(); ok {
		t.Fatal("Acquire() before the first build should fail")
	}

	s, err := p.Rebuild(r.At(0))
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if p.Current() != s || s.Version != 1 || s.Descriptor != r.At(0) {
		t.Errorf("published %+v, want version 1 of %v", s, r.At(0))
	}
	if s.Pipeline.Label() != kernel.Passthrough {
		t.Errorf("pipeline label = %q, want %q", s.Pipeline.Label(), kernel.Passthrough)
	}
}

func TestRetiredStateOutlivesDraw(t *testing.T) {
	r := kernel.NewRegistry()
	dev := &fakeDevice{}
	p := New(dev)

	first, _ := p.Rebuild(r.At(0))
	held, ok := p.Acquire()
	if !ok || held != first {
		t.Fatal("Acquire should return the published state")
	}

	second, err := p.Rebuild(r.At(1))
	if err != nil {
		t.Fatal(err)
	}
	if second.Version != 2 {
		t.Errorf("Version = %d, want 2", second.Version)
	}
	if dev.built[0].destroyed.Load() {
		t.Fatal("retired pipeline destroyed while a draw holds it")
	}

	held.Release()
	if !dev.built[0].destroyed.Load() {
		t.Error("retired pipeline should be destroyed after the last release")
	}
	if dev.built[1].destroyed.Load() {
		t.Error("published pipeline must stay alive")
	}
}

func TestRebuildFailureKeepsPublished(t *testing.T) {
	r := kernel.NewRegistry()
	p := New(&fakeDevice{missing: map[string]bool{kernel.Gamma: true}})

	s, _ := p.Rebuild(r.At(0))
	gamma, _ := r.Lookup(kernel.Gamma)
	_, err := p.Rebuild(gamma)
	if !errors.Is(err, camfx.ErrPipelineCompilation) {
		t.Fatalf("Rebuild error = %v, want ErrPipelineCompilation", err)
	}
	if p.Current() != s {
		t.Error("a failed rebuild must not replace the published state")
	}
}

func TestValidateAll(t *testing.T) {
	r := kernel.NewRegistry()

	dev := &fakeDevice{}
	if err := ValidateAll(dev, r); err != nil {
		t.Fatalf("ValidateAll: %v", err)
	}
	if len(dev.built) != r.Len() {
		t.Errorf("built %d pipelines, want %d", len(dev.built), r.Len())
	}
	for _, b := range dev.built {
		if !b.destroyed.Load() {
			t.Errorf("validation pipeline %s not destroyed", b.label)
		}
	}

	bad := &fakeDevice{missing: map[string]bool{kernel.BoxBlur: true}}
	if err := ValidateAll(bad, r); !errors.Is(err, camfx.ErrPipelineCompilation) {
		t.Errorf("ValidateAll with a missing program error = %v, want ErrPipelineCompilation", err)
	}
}

func TestClose(t *testing.T) {
	r := kernel.NewRegistry()
	dev := &fakeDevice{}
	p := New(dev)
	p.Rebuild(r.At(0))

	held, _ := p.Acquire()
	p.Close()
	p.Close()

	if p.Current() != nil {
		t.Error("Current() after Close should be nil")
	}
	if dev.built[0].destroyed.Load() {
		t.Error("Close destroyed a pipeline still in use")
	}
	held.Release()
	if !dev.built[0].destroyed.Load() {
		t.Error("pipeline should be destroyed after the last release")
	}
	if _, err := p.Rebuild(r.At(1)); !errors.Is(err, camfx.ErrClosed) {
		t.Errorf("Rebuild after Close error = %v, want ErrClosed", err)
	}
}

// Readers racing with rebuilds must always see a pipeline compiled from
// the descriptor it is published with, and never a destroyed one.
func TestAcquireDuringRebuilds(t *testing.T) {
	r := kernel.NewRegistry()
	p := New(&fakeDevice{})
	p.Rebuild(r.At(0))

	var stop atomic.Bool
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				s, ok := p.Acquire()
				if !ok {
					t.Error("Acquire failed while published")
					return
				}
				if s.Pipeline.Label() != s.Descriptor.Name {
					t.Errorf("pipeline %q published with descriptor %v", s.Pipeline.Label(), s.Descriptor)
				}
				if s.Pipeline.(*fakePipeline).destroyed.Load() {
					t.Error("acquired a destroyed pipeline")
				}
				s.Release()
			}
		}()
	}

	for i := range 200 {
		if _, err := p.Rebuild(r.At(i % r.Len())); err != nil {
			t.Fatal(err)
		}
	}
	stop.Store(true)
	wg.Wait()
}
