// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package bridge turns captured frames into GPU texture views without
// copying pixel data.
//
// Textures are registered with the device's texture cache and kept in a
// bounded LRU keyed by the identity of the frame's pixel buffer, so a frame
// that is drawn on several ticks is registered once. A view pins its entry
// until Release; pinned entries are never reclaimed.
package bridge

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/gogpu/camfx"
	"github.com/gogpu/camfx/gpucore"
	"github.com/gogpu/camfx/internal/cache"
)

// DefaultCapacity is the number of frame textures kept registered.
const DefaultCapacity = 8

// Option configures a Bridge.
type Option func(*Bridge)

// WithCapacity bounds the number of registered frame textures.
func WithCapacity(n int) Option {
	return func(b *Bridge) {
		if n > 0 {
			b.capacity = n
		}
	}
}

// key identifies a pixel buffer. The cached entry holds a reference to
// the buffer, so its address cannot be reused while the entry exists.
type key struct {
	addr   uintptr
	width  int
	height int
	stride int
}

type entry struct {
	tex gpucore.Texture
	pix []byte
}

// Bridge converts frames to texture views.
//
// Bridge is safe for concurrent use.
type Bridge struct {
	textures gpucore.TextureCache
	capacity int
	lru      *cache.Cache[key, *entry]
	failures atomic.Uint64
	closed   atomic.Bool
}

// New creates a bridge over the device's texture cache.
func New(textures gpucore.TextureCache, opts ...Option) *Bridge {
	b := &Bridge{textures: textures, capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(b)
	}
	b.lru = cache.New[key, *entry](b.capacity, func(_ key, e *entry) {
		e.tex.Destroy()
	})
	return b
}

// View is a GPU-visible view over a frame's pixels, valid until Release.
type View struct {
	texture  gpucore.Texture
	frame    *camfx.Frame
	key      key
	bridge   *Bridge
	released atomic.Bool
}

// Texture returns the texture to bind.
func (v *View) Texture() gpucore.Texture { return v.texture }

// Frame returns the frame the view was created from.
func (v *View) Frame() *camfx.Frame { return v.frame }

// Width returns the texture width in pixels.
func (v *View) Width() int { return v.texture.Width() }

// Height returns the texture height in pixels.
func (v *View) Height() int { return v.texture.Height() }

// Release unpins the view's cache entry. Safe to call more than once.
func (v *View) Release() {
	if v.released.CompareAndSwap(false, true) {
		v.bridge.lru.Release(v.key)
	}
}

// Convert returns a view over f's pixels. Converting the same frame again
// returns a view over the same texture.
//
// All failures wrap camfx.ErrConversion; the caller skips the frame.
func (b *Bridge) Convert(f *camfx.Frame) (*View, error) {
	if b.closed.Load() {
		return nil, fmt.Errorf("%w: %w", camfx.ErrConversion, camfx.ErrClosed)
	}
	if err := f.Validate(); err != nil {
		return nil, b.fail(f, err)
	}

	k := key{
		addr:   uintptr(unsafe.Pointer(unsafe.SliceData(f.Pix))),
		width:  f.Width,
		height: f.Height,
		stride: f.Stride,
	}
	e, err := b.lru.Acquire(k, func() (*entry, error) {
		tex, err := b.textures.CreateTextureFromImage(gpucore.ImageBuffer{
			Pix:    f.Pix,
			Stride: f.Stride,
			Width:  f.Width,
			Height: f.Height,
			Format: textureFormat(f.Format),
		})
		if err != nil {
			return nil, err
		}
		camfx.Logger().Debug("bridge: registered frame texture",
			"seq", f.Seq, "width", f.Width, "height", f.Height)
		return &entry{tex: tex, pix: f.Pix}, nil
	})
	if err != nil {
		return nil, b.fail(f, err)
	}
	return &View{texture: e.tex, frame: f, key: k, bridge: b}, nil
}

func (b *Bridge) fail(f *camfx.Frame, err error) error {
	b.failures.Add(1)
	var seq uint64
	if f != nil {
		seq = f.Seq
	}
	return fmt.Errorf("%w: frame %d: %w", camfx.ErrConversion, seq, err)
}

func textureFormat(f camfx.PixelFormat) gpucore.TextureFormat {
	if f == camfx.FormatBGRA8 {
		return gpucore.TextureFormatBGRA8Unorm
	}
	return 0
}

// Flush reclaims every entry not pinned by a live view and asks the
// platform cache to release what it no longer needs.
func (b *Bridge) Flush() int {
	n := b.lru.Purge()
	b.textures.Flush()
	return n
}

// Close releases every registered texture. Views still in use must not be
// drawn afterwards.
func (b *Bridge) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}
	b.lru.Clear()
	b.textures.Flush()
}

// Stats reports conversion counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Failures  uint64
	Len       int
	Pinned    int
}

// Stats returns a snapshot of the counters.
func (b *Bridge) Stats() Stats {
	cs := b.lru.Stats()
	return Stats{
		Hits:      cs.Hits,
		Misses:    cs.Misses,
		Evictions: cs.Evictions,
		Failures:  b.failures.Load(),
		Len:       cs.Len,
		Pinned:    cs.Pinned,
	}
}
