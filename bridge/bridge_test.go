// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package bridge

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gogpu/camfx"
	"github.com/gogpu/camfx/gpucore"
)

// fakeTexture records Destroy calls.
type fakeTexture struct {
	img       gpucore.ImageBuffer
	destroyed atomic.Bool
}

func (t *fakeTexture) Width() int                    { return t.img.Width }
func (t *fakeTexture) Height() int                   { return t.img.Height }
func (t *fakeTexture) Format() gpucore.TextureFormat { return t.img.Format }
func (t *fakeTexture) ReadPixels(dst []byte) error   { copy(dst, t.img.Pix); return nil }
func (t *fakeTexture) Destroy()                      { t.destroyed.Store(true) }

type fakeCache struct {
	mu      sync.Mutex
	created []*fakeTexture
	fail    error
	flushes int
}

func (c *fakeCache) CreateTextureFromImage(img gpucore.ImageBuffer) (gpucore.Texture, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return nil, c.fail
	}
	t := &fakeTexture{img: img}
	c.created = append(c.created, t)
	return t, nil
}

func (c *fakeCache) Flush() {
	c.mu.Lock()
	c.flushes++
	c.mu.Unlock()
}

func TestConvertIsIdempotent(t *testing.T) {
	fc := &fakeCache{}
	b := New(fc)
	f := camfx.NewFrame(16, 8)
	f.Pix[5] = 42

	v1, err := b.Convert(f)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	v2, err := b.Convert(f)
	if err != nil {
		t.Fatalf("second Convert: %v", err)
	}
	if v1.Texture() != v2.Texture() {
		t.Error("converting the same frame twice should reuse the texture")
	}
	if len(fc.created) != 1 {
		t.Errorf("textures created = %d, want 1", len(fc.created))
	}

	// Zero-copy: the texture sees the frame's own buffer.
	if &fc.created[0].img.Pix[0] != &f.Pix[0] {
		t.Error("texture was created from a copy of the pixels")
	}
	if v1.Width() != 16 || v1.Height() != 8 || v1.Frame() != f {
		t.Errorf("view = %dx%d frame %p, want 16x8 frame %p", v1.Width(), v1.Height(), v1.Frame(), f)
	}

	v1.Release()
	v2.Release()
	v2.Release()

	st := b.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Pinned != 0 {
		t.Errorf("Stats() = %+v, want 1 hit, 1 miss, nothing pinned", st)
	}
}

func TestDistinctBuffersDistinctTextures(t *testing.T) {
	fc := &fakeCache{}
	b := New(fc)

	v1, _ := b.Convert(camfx.NewFrame(8, 8))
	v2, _ := b.Convert(camfx.NewFrame(8, 8))
	if v1.Texture() == v2.Texture() {
		t.Error("different buffers must not share a texture")
	}
}

func TestEvictionDestroysUnpinned(t *testing.T) {
	fc := &fakeCache{}
	b := New(fc, WithCapacity(2))

	frames := []*camfx.Frame{camfx.NewFrame(4, 4), camfx.NewFrame(4, 4), camfx.NewFrame(4, 4)}
	for _, f := range frames {
		v, err := b.Convert(f)
		if err != nil {
			t.Fatalf("Convert: %v", err)
		}
		v.Release()
	}

	if !fc.created[0].destroyed.Load() {
		t.Error("least recently used texture should be destroyed")
	}
	if fc.created[1].destroyed.Load() || fc.created[2].destroyed.Load() {
		t.Error("recent textures should survive")
	}
	if st := b.Stats(); st.Len != 2 || st.Evictions != 1 {
		t.Errorf("Stats() = %+v, want Len 2, Evictions 1", st)
	}
}

func TestConvertFailsWhenAllPinned(t *testing.T) {
	fc := &fakeCache{}
	b := New(fc, WithCapacity(1))

	v, err := b.Convert(camfx.NewFrame(4, 4))
	if err != nil {
		t.Fatal(err)
	}
	_, err = b.Convert(camfx.NewFrame(4, 4))
	if !errors.Is(err, camfx.ErrConversion) {
		t.Fatalf("Convert with a pinned full cache error = %v, want ErrConversion", err)
	}
	if fc.created[0].destroyed.Load() {
		t.Error("pinned texture was destroyed")
	}

	v.Release()
	if _, err := b.Convert(camfx.NewFrame(4, 4)); err != nil {
		t.Errorf("Convert after Release: %v", err)
	}
	if b.Stats().Failures != 1 {
		t.Errorf("Failures = %d, want 1", b.Stats().Failures)
	}
}

func TestConvertPlatformFailure(t *testing.T) {
	fc := &fakeCache{fail: errors.New("CVMetalTextureCache error -6660")}
	b := New(fc)

	_, err := b.Convert(camfx.NewFrame(4, 4))
	if !errors.Is(err, camfx.ErrConversion) {
		t.Fatalf("error = %v, want ErrConversion", err)
	}

	// The failure is per call.
	fc.fail = nil
	if _, err := b.Convert(camfx.NewFrame(4, 4)); err != nil {
		t.Errorf("Convert after recovery: %v", err)
	}
}

func TestConvertInvalidFrame(t *testing.T) {
	b := New(&fakeCache{})
	bad := &camfx.Frame{Pix: make([]byte, 3), Stride: 4, Width: 1, Height: 1, Format: camfx.FormatBGRA8}
	if _, err := b.Convert(bad); !errors.Is(err, camfx.ErrConversion) {
		t.Errorf("error = %v, want ErrConversion", err)
	}
	if _, err := b.Convert(nil); !errors.Is(err, camfx.ErrConversion) {
		t.Errorf("nil frame error = %v, want ErrConversion", err)
	}
}

func TestFlushAndClose(t *testing.T) {
	fc := &fakeCache{}
	b := New(fc)

	pinned, _ := b.Convert(camfx.NewFrame(4, 4))
	free, _ := b.Convert(camfx.NewFrame(4, 4))
	free.Release()

	if n := b.Flush(); n != 1 {
		t.Errorf("Flush() = %d, want 1", n)
	}
	if fc.created[0].destroyed.Load() {
		t.Error("Flush destroyed a pinned texture")
	}
	pinned.Release()

	b.Close()
	b.Close()
	if !fc.created[0].destroyed.Load() {
		t.Error("Close should destroy every texture")
	}
	if fc.flushes != 2 {
		t.Errorf("platform flushes = %d, want 2", fc.flushes)
	}
	if _, err := b.Convert(camfx.NewFrame(4, 4)); !errors.Is(err, camfx.ErrClosed) {
		t.Errorf("Convert after Close error = %v, want ErrClosed", err)
	}
}
