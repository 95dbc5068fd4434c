package kernel

import (
	"sync"
	"testing"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", r.Len())
	}
	if got := r.Current(); got.Index != 0 || got.Name != Passthrough {
		t.Errorf("Current() = %v, want passthroughKernel[0]", got)
	}
	for i, d := range r.All() {
		if d.Index != i {
			t.Errorf("All()[%d].Index = %d", i, d.Index)
		}
		if d.Name != Names[i] {
			t.Errorf("All()[%d].Name = %q, want %q", i, d.Name, Names[i])
		}
	}
}

func TestAdvanceCycles(t *testing.T) {
	r := NewRegistry()
	for k := 1; k <= 25; k++ {
		got := r.Advance()
		if want := k % r.Len(); got.Index != want {
			t.Fatalf("after %d advances index = %d, want %d", k, got.Index, want)
		}
		if r.Current() != got {
			t.Fatalf("Current() = %v, Advance() returned %v", r.Current(), got)
		}
	}
}

func TestAdvanceConcurrent(t *testing.T) {
	r := NewRegistry()
	const goroutines, per = 8, 125

	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range per {
				d := r.Advance()
				if d.Index < 0 || d.Index >= r.Len() {
					t.Errorf("Advance() index %d out of range", d.Index)
					return
				}
				_ = r.Current()
			}
		}()
	}
	wg.Wait()

	// 1000 advances over 10 entries lands back on 0.
	if got := r.Current().Index; got != (goroutines*per)%r.Len() {
		t.Errorf("Current().Index = %d, want %d", got, (goroutines*per)%r.Len())
	}
}

func TestSet(t *testing.T) {
	r := NewRegistry()
	if err := r.Set(7); err != nil {
		t.Fatalf("Set(7) error = %v", err)
	}
	if got := r.Current().Name; got != Grayscale {
		t.Errorf("Current() = %q, want %q", got, Grayscale)
	}
	for _, i := range []int{-1, 10} {
		if err := r.Set(i); err == nil {
			t.Errorf("Set(%d) should fail", i)
		}
	}
}

func TestLookup(t *testing.T) {
	r := NewRegistry()
	d, ok := r.Lookup(BoxBlur)
	if !ok || d.Index != 9 {
		t.Errorf("Lookup(%q) = %v, %v; want index 9", BoxBlur, d, ok)
	}
	if _, ok := r.Lookup("sharpenKernel"); ok {
		t.Error("Lookup of an unknown name should fail")
	}
}
