package kernel

import (
	"fmt"
	"sync/atomic"
)

// Descriptor names one compute program. Descriptors are immutable.
type Descriptor struct {
	// Name is the program name, e.g. "brightnessKernel".
	Name string

	// Index is the position of the descriptor in the registry.
	Index int
}

// String returns the descriptor name and index.
func (d Descriptor) String() string {
	return fmt.Sprintf("%s[%d]", d.Name, d.Index)
}

// Built-in program names, in registry order.
const (
	Passthrough = "passthroughKernel"
	Brightness  = "brightnessKernel"
	Inversion   = "inversionKernel"
	Contrast    = "contrastKernel"
	RGBA2BGRA   = "rgba2bgraKernel"
	Exposure    = "exposureKernel"
	Gamma       = "gammaKernel"
	Grayscale   = "grayscaleKernel"
	Pixellate   = "pixellateKernel"
	BoxBlur     = "boxBlurKernel"
)

// Names lists the built-in programs in registry order.
var Names = [...]string{
	Passthrough,
	Brightness,
	Inversion,
	Contrast,
	RGBA2BGRA,
	Exposure,
	Gamma,
	Grayscale,
	Pixellate,
	BoxBlur,
}

// Registry is the fixed ordered table of descriptors plus the active index.
//
// Registry is safe for concurrent use.
type Registry struct {
	descs   []Descriptor
	current atomic.Int64
}

// NewRegistry returns a registry over the built-in programs with index 0
// active.
func NewRegistry() *Registry {
	descs := make([]Descriptor, len(Names))
	for i, name := range Names {
		descs[i] = Descriptor{Name: name, Index: i}
	}
	return &Registry{descs: descs}
}

// Len returns the number of descriptors.
func (r *Registry) Len() int {
	return len(r.descs)
}

// At returns the descriptor at index i.
func (r *Registry) At(i int) Descriptor {
	return r.descs[i]
}

// All returns a copy of the table.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, len(r.descs))
	copy(out, r.descs)
	return out
}

// Lookup returns the descriptor with the given name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	for _, d := range r.descs {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Current returns the active descriptor.
func (r *Registry) Current() Descriptor {
	return r.descs[r.current.Load()]
}

// Advance makes the next descriptor active, wrapping to 0 after the last
// one, and returns it.
func (r *Registry) Advance() Descriptor {
	n := int64(len(r.descs))
	for {
		cur := r.current.Load()
		next := (cur + 1) % n
		if r.current.CompareAndSwap(cur, next) {
			return r.descs[next]
		}
	}
}

// Set makes the descriptor at index i active. It is used to roll back a
// switch whose pipeline failed to build.
func (r *Registry) Set(i int) error {
	if i < 0 || i >= len(r.descs) {
		return fmt.Errorf("kernel: index %d out of range [0, %d)", i, len(r.descs))
	}
	r.current.Store(int64(i))
	return nil
}
