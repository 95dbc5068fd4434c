// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/camfx/gpucore"
	"github.com/gogpu/camfx/kernel"
)

// CreateTexture allocates a storage buffer for a width x height texture.
// Textures with TextureUsageReadback also get a staging buffer and a host
// mirror so that ReadPixels can serve completed results.
func (d *Device) CreateTexture(desc gpucore.TextureDesc) (gpucore.Texture, error) {
	if desc.Format.BytesPerPixel() != 4 {
		return nil, fmt.Errorf("wgpu: unsupported texture format %d", desc.Format)
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("wgpu: invalid texture size %dx%d", desc.Width, desc.Height)
	}
	return d.newTexture(desc.Label, desc.Width, desc.Height, desc.Format, desc.Usage&gpucore.TextureUsageReadback != 0)
}

func (d *Device) newTexture(label string, w, h int, format gpucore.TextureFormat, readback bool) (*texture, error) {
	size := uint64(w * h * 4) //nolint:gosec // dimensions validated by callers

	d.halMu.Lock()
	defer d.halMu.Unlock()

	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label, Size: size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture buffer %q: %w", label, err)
	}
	t := &texture{dev: d, label: label, width: w, height: h, format: format, size: size, buffer: buf}
	if readback {
		staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
			Label: label + "_staging", Size: size,
			Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			d.device.DestroyBuffer(buf)
			return nil, fmt.Errorf("wgpu: create staging buffer %q: %w", label, err)
		}
		t.staging = staging
		t.mirror = make([]byte, size)
	}
	return t, nil
}

// CreateComputePipeline compiles desc.Source to SPIR-V and builds a compute
// pipeline on the shared filter layout.
func (d *Device) CreateComputePipeline(desc gpucore.ComputePipelineDesc) (gpucore.ComputePipeline, error) {
	if desc.WorkgroupSize != gpucore.WorkgroupSize {
		return nil, fmt.Errorf("wgpu: program %q: workgroup size %v, want %v",
			desc.Function, desc.WorkgroupSize, gpucore.WorkgroupSize)
	}
	words, err := kernel.CompileSPIRV(desc.Source)
	if err != nil {
		return nil, fmt.Errorf("wgpu: program %q: %w", desc.Function, err)
	}
	entry := desc.EntryPoint
	if entry == "" {
		entry = kernel.EntryPoint
	}

	d.halMu.Lock()
	defer d.halMu.Unlock()

	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: desc.Label,
		Source: hal.ShaderSource{
			SPIRV: words,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create shader module %q: %w", desc.Label, err)
	}
	p, err := d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: desc.Label, Layout: d.pipeLayout,
		Compute: hal.ComputeState{Module: module, EntryPoint: entry},
	})
	if err != nil {
		d.device.DestroyShaderModule(module)
		return nil, fmt.Errorf("wgpu: create compute pipeline %q: %w", desc.Label, err)
	}
	return &pipeline{dev: d, label: desc.Label, module: module, pipeline: p}, nil
}

// textureCache uploads external images into storage buffers.
type textureCache struct {
	dev  *Device
	live atomic.Int64
}

// CreateTextureFromImage uploads img, packing rows when the stride is wider
// than the image.
func (c *textureCache) CreateTextureFromImage(img gpucore.ImageBuffer) (gpucore.Texture, error) {
	if img.Format.BytesPerPixel() != 4 {
		return nil, fmt.Errorf("wgpu: unsupported image format %d", img.Format)
	}
	row := img.Width * 4
	if img.Width <= 0 || img.Height <= 0 || img.Stride < row ||
		len(img.Pix) < img.Stride*(img.Height-1)+row {
		return nil, fmt.Errorf("wgpu: invalid image %dx%d stride %d (%d bytes)",
			img.Width, img.Height, img.Stride, len(img.Pix))
	}
	t, err := c.dev.newTexture("camfx_frame", img.Width, img.Height, img.Format, false)
	if err != nil {
		return nil, err
	}

	data := img.Pix[:row*img.Height]
	if img.Stride != row {
		data = packRows(img.Pix, img.Stride, row, img.Height)
	}
	c.dev.halMu.Lock()
	c.dev.queue.WriteBuffer(t.buffer, 0, data)
	c.dev.halMu.Unlock()

	t.cache = c
	c.live.Add(1)
	return t, nil
}

// Flush is a no-op: uploaded buffers are released by Texture.Destroy.
func (c *textureCache) Flush() {}

func packRows(pix []byte, stride, row, height int) []byte {
	out := make([]byte, row*height)
	for y := 0; y < height; y++ {
		copy(out[y*row:(y+1)*row], pix[y*stride:])
	}
	return out
}

type texture struct {
	dev    *Device
	label  string
	width  int
	height int
	format gpucore.TextureFormat
	size   uint64
	cache  *textureCache

	buffer  hal.Buffer
	staging hal.Buffer

	mu     sync.Mutex
	mirror []byte

	destroyed atomic.Bool
}

func (t *texture) Width() int                    { return t.width }
func (t *texture) Height() int                   { return t.height }
func (t *texture) Format() gpucore.TextureFormat { return t.format }

// ReadPixels copies the host mirror, refreshed after the last completed
// submission that wrote the texture.
func (t *texture) ReadPixels(dst []byte) error {
	if t.destroyed.Load() {
		return fmt.Errorf("wgpu: read of destroyed texture %q", t.label)
	}
	if t.mirror == nil {
		return fmt.Errorf("wgpu: texture %q was not created for readback", t.label)
	}
	if uint64(len(dst)) < t.size {
		return fmt.Errorf("wgpu: ReadPixels buffer too small: %d < %d", len(dst), t.size)
	}
	t.mu.Lock()
	copy(dst, t.mirror)
	t.mu.Unlock()
	return nil
}

// readback copies the staging buffer into the mirror. Called with halMu held.
func (t *texture) readback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.dev.queue.ReadBuffer(t.staging, 0, t.mirror); err != nil {
		return fmt.Errorf("readback %q: %w", t.label, err)
	}
	return nil
}

func (t *texture) Destroy() {
	if !t.destroyed.CompareAndSwap(false, true) {
		return
	}
	if t.cache != nil {
		t.cache.live.Add(-1)
	}
	t.dev.halMu.Lock()
	defer t.dev.halMu.Unlock()
	t.dev.device.DestroyBuffer(t.buffer)
	if t.staging != nil {
		t.dev.device.DestroyBuffer(t.staging)
	}
}

type pipeline struct {
	dev       *Device
	label     string
	module    hal.ShaderModule
	pipeline  hal.ComputePipeline
	destroyed atomic.Bool
}

func (p *pipeline) Label() string { return p.label }

func (p *pipeline) Destroy() {
	if !p.destroyed.CompareAndSwap(false, true) {
		return
	}
	p.dev.halMu.Lock()
	defer p.dev.halMu.Unlock()
	p.dev.device.DestroyComputePipeline(p.pipeline)
	p.dev.device.DestroyShaderModule(p.module)
}
