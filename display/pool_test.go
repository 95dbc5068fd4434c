package display

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/camfx"
	"github.com/gogpu/camfx/backend/software"
)

func newDevice(t *testing.T) *software.Device {
	t.Helper()
	d := software.New(software.WithWorkers(2))
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestNextDrawableBounded(t *testing.T) {
	dev := newDevice(t)
	s, err := NewOffscreen(dev, 8, 8, WithMaxInFlight(2), WithAcquireTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewOffscreen: %v", err)
	}
	defer s.Close()

	if s.MaxInFlight() != 2 {
		t.Errorf("MaxInFlight() = %d, want 2", s.MaxInFlight())
	}

	ctx := context.Background()
	d1, err := s.NextDrawable(ctx)
	if err != nil {
		t.Fatal(err)
	}
	d2, err := s.NextDrawable(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if d1 == d2 {
		t.Fatal("two in-flight drawables must differ")
	}

	start := time.Now()
	_, err = s.NextDrawable(ctx)
	if !errors.Is(err, camfx.ErrDrawableUnavailable) {
		t.Fatalf("third NextDrawable error = %v, want ErrDrawableUnavailable", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("NextDrawable should wait for the acquire timeout")
	}
	if s.Timeouts() != 1 || s.InFlight() != 2 {
		t.Errorf("Timeouts/InFlight = %d/%d, want 1/2", s.Timeouts(), s.InFlight())
	}

	d1.Release()
	d1.Release() // idempotent
	d3, err := s.NextDrawable(ctx)
	if err != nil {
		t.Fatalf("NextDrawable after release: %v", err)
	}
	d2.Release()
	d3.Release()
	if s.InFlight() != 0 {
		t.Errorf("InFlight() = %d, want 0", s.InFlight())
	}
}

func TestNextDrawableWaitsForRelease(t *testing.T) {
	dev := newDevice(t)
	s, _ := NewOffscreen(dev, 4, 4, WithMaxInFlight(1), WithAcquireTimeout(time.Second))
	defer s.Close()

	d, _ := s.NextDrawable(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		d.Release()
	}()
	if _, err := s.NextDrawable(context.Background()); err != nil {
		t.Fatalf("NextDrawable should succeed once the drawable is released: %v", err)
	}
}

func TestPresentKeepsLastImage(t *testing.T) {
	dev := newDevice(t)
	var mu sync.Mutex
	var hooked int
	s, _ := NewOffscreen(dev, 2, 1, WithOnPresent(func(img Image) error {
		mu.Lock()
		hooked++
		mu.Unlock()
		return nil
	}))
	defer s.Close()

	d, _ := s.NextDrawable(context.Background())
	if err := d.Present(); err != nil {
		t.Fatalf("Present: %v", err)
	}
	d.Release()

	if s.Presents() != 1 || hooked != 1 {
		t.Errorf("Presents/hook = %d/%d, want 1/1", s.Presents(), hooked)
	}
	img := s.LastImage()
	if img.Rect.Dx() != 2 || img.Rect.Dy() != 1 {
		t.Errorf("LastImage size = %v, want 2x1", img.Rect)
	}
}

func TestBGRAToRGBA(t *testing.T) {
	dev := newDevice(t)
	s, _ := NewOffscreen(dev, 1, 1)
	defer s.Close()

	dst := s.LastImage()
	BGRAToRGBA(dst, Image{Pix: []byte{1, 2, 3, 4}, Width: 1, Height: 1})
	if got := dst.Pix[:4]; got[0] != 3 || got[1] != 2 || got[2] != 1 || got[3] != 4 {
		t.Errorf("RGBA = %v, want [3 2 1 4]", got)
	}
}

func TestCloseRejects(t *testing.T) {
	dev := newDevice(t)
	s, _ := NewOffscreen(dev, 4, 4)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := s.NextDrawable(context.Background()); !errors.Is(err, camfx.ErrClosed) {
		t.Errorf("NextDrawable after Close error = %v, want ErrClosed", err)
	}
}

func TestCloseKeepsInFlightDrawablesAlive(t *testing.T) {
	dev := newDevice(t)
	p, err := NewPool(dev, 4, 4, nil, WithMaxInFlight(2))
	if err != nil {
		t.Fatal(err)
	}
	p.closeTimeout = 20 * time.Millisecond

	held, err := p.NextDrawable(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err == nil {
		t.Fatal("Close succeeded with a drawable in flight")
	}
	if got := p.InFlight(); got != 1 {
		t.Errorf("InFlight after Close = %d, want 1", got)
	}

	// The command buffer holding the drawable can still present it.
	if err := held.Present(); err != nil {
		t.Fatalf("Present after timed out Close: %v", err)
	}
	held.Release()
	if got := p.InFlight(); got != 0 {
		t.Errorf("InFlight after Release = %d, want 0", got)
	}
	if err := held.Texture().ReadPixels(make([]byte, 4*4*4)); err == nil {
		t.Error("texture still alive after Release on a closed pool")
	}
}

func TestLoopStopsOnCancel(t *testing.T) {
	dev := newDevice(t)
	s, _ := NewOffscreen(dev, 4, 4, WithTickInterval(time.Millisecond))
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ticks := 0
	err := s.Loop(ctx, func(context.Context) {
		ticks++
		if ticks == 5 {
			cancel()
		}
	})
	if err != nil {
		t.Fatalf("Loop: %v", err)
	}
	if ticks != 5 {
		t.Errorf("ticks = %d, want 5", ticks)
	}
}

func TestNilDevice(t *testing.T) {
	if _, err := NewOffscreen(nil, 4, 4); err == nil {
		t.Error("NewOffscreen(nil) should fail")
	}
}
