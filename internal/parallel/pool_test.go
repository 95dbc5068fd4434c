package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

func TestPoolCreate(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	if p.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", p.Workers())
	}
	if !p.IsRunning() {
		t.Error("Pool should be running after creation")
	}
}

func TestPoolDefaultWorkers(t *testing.T) {
	for _, n := range []int{0, -5} {
		p := NewPool(n)
		if p.Workers() != runtime.GOMAXPROCS(0) {
			t.Errorf("NewPool(%d).Workers() = %d, want GOMAXPROCS", n, p.Workers())
		}
		p.Close()
	}
}

func TestPoolRunVisitsEveryIndex(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	const n = 500
	var seen [n]atomic.Int32
	p.Run(n, func(i int) { seen[i].Add(1) })

	for i := range seen {
		if got := seen[i].Load(); got != 1 {
			t.Fatalf("index %d visited %d times, want 1", i, got)
		}
	}
}

func TestPoolRunConcurrentCallers(t *testing.T) {
	p := NewPool(3)
	defer p.Close()

	var total atomic.Int64
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Run(100, func(int) { total.Add(1) })
		}()
	}
	wg.Wait()

	if total.Load() != 400 {
		t.Errorf("total = %d, want 400", total.Load())
	}
}

func TestPoolRunAfterClose(t *testing.T) {
	p := NewPool(2)
	p.Close()
	p.Close()

	if p.IsRunning() {
		t.Error("Pool should not be running after Close")
	}
	var count atomic.Int32
	p.Run(10, func(int) { count.Add(1) })
	if count.Load() != 10 {
		t.Errorf("Run after Close executed %d tasks, want 10", count.Load())
	}
}

func TestPoolRunZero(t *testing.T) {
	p := NewPool(2)
	defer p.Close()
	p.Run(0, func(int) { t.Error("fn called for n = 0") })
}
