// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/camfx/gpucore"
)

// paramsSize is the size of the Params uniform: four u32 dimensions.
const paramsSize = 16

type commandBuffer struct {
	dev       *Device
	label     string
	passes    []*computePass
	presents  []gpucore.Presentable
	handlers  []func(error)
	committed bool
	err       error
}

type computePass struct {
	cb         *commandBuffer
	label      string
	pipeline   *pipeline
	textures   [2]*texture
	dispatches [][3]uint32
	ended      bool
}

func (cb *commandBuffer) BeginComputePass(label string) gpucore.ComputePassEncoder {
	p := &computePass{cb: cb, label: label}
	cb.passes = append(cb.passes, p)
	return p
}

func (cb *commandBuffer) Present(p gpucore.Presentable) {
	cb.presents = append(cb.presents, p)
}

func (cb *commandBuffer) AddCompletedHandler(fn func(error)) {
	cb.handlers = append(cb.handlers, fn)
}

func (cb *commandBuffer) Commit() error {
	if cb.committed {
		return fmt.Errorf("wgpu: command buffer %q committed twice", cb.label)
	}
	cb.committed = true
	for _, p := range cb.passes {
		if !p.ended {
			return fmt.Errorf("wgpu: command buffer %q has an open compute pass", cb.label)
		}
	}
	return cb.dev.submit(cb)
}

func (cb *commandBuffer) recordErr(err error) {
	if cb.err == nil {
		cb.err = err
	}
}

func (cb *commandBuffer) present() error {
	var errs []error
	for _, pr := range cb.presents {
		if err := pr.Present(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (cb *commandBuffer) complete(err error) {
	for _, fn := range cb.handlers {
		fn(err)
	}
}

func (p *computePass) SetPipeline(pl gpucore.ComputePipeline) {
	wp, ok := pl.(*pipeline)
	if !ok {
		p.cb.recordErr(fmt.Errorf("wgpu: foreign pipeline %T", pl))
		return
	}
	p.pipeline = wp
}

func (p *computePass) SetTexture(t gpucore.Texture, index int) {
	wt, ok := t.(*texture)
	if !ok {
		p.cb.recordErr(fmt.Errorf("wgpu: foreign texture %T", t))
		return
	}
	if index < 0 || index >= len(p.textures) {
		p.cb.recordErr(fmt.Errorf("wgpu: texture index %d out of range", index))
		return
	}
	p.textures[index] = wt
}

func (p *computePass) Dispatch(x, y, z uint32) {
	p.dispatches = append(p.dispatches, [3]uint32{x, y, z})
}

func (p *computePass) End() {
	p.ended = true
}

func (p *computePass) validate() error {
	if p.pipeline == nil {
		return errors.New("dispatch without pipeline")
	}
	if p.pipeline.destroyed.Load() {
		return fmt.Errorf("pipeline %q used after Destroy", p.pipeline.label)
	}
	src, dst := p.textures[gpucore.InputTextureIndex], p.textures[gpucore.OutputTextureIndex]
	if src == nil || dst == nil {
		return errors.New("dispatch without input and output textures")
	}
	if src.destroyed.Load() || dst.destroyed.Load() {
		return errors.New("texture used after Destroy")
	}
	return nil
}

// bindings holds the per-submission resources released after the fence.
type bindings struct {
	dev     *Device
	buffers []hal.Buffer
	groups  []hal.BindGroup
}

func (b *bindings) release() {
	for _, g := range b.groups {
		b.dev.device.DestroyBindGroup(g)
	}
	for _, buf := range b.buffers {
		b.dev.device.DestroyBuffer(buf)
	}
}

// bind creates the params uniform and the bind group of one pass.
func (b *bindings) bind(p *computePass) (hal.BindGroup, error) {
	d := b.dev
	src, dst := p.textures[gpucore.InputTextureIndex], p.textures[gpucore.OutputTextureIndex]

	ub, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "camfx_params", Size: paramsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create uniform buffer: %w", err)
	}
	b.buffers = append(b.buffers, ub)
	d.queue.WriteBuffer(ub, 0, Params(src.width, src.height, dst.width, dst.height))

	bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "camfx_filter_bind", Layout: d.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: ub.NativeHandle(), Offset: 0, Size: paramsSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: src.buffer.NativeHandle(), Offset: 0, Size: src.size}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: dst.buffer.NativeHandle(), Offset: 0, Size: dst.size}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group: %w", err)
	}
	b.groups = append(b.groups, bg)
	return bg, nil
}

// Params encodes the Params uniform shared by every program.
func Params(srcW, srcH, dstW, dstH int) []byte {
	out := make([]byte, paramsSize)
	binary.LittleEndian.PutUint32(out[0:], uint32(srcW)) //nolint:gosec // texture sizes fit uint32
	binary.LittleEndian.PutUint32(out[4:], uint32(srcH)) //nolint:gosec // texture sizes fit uint32
	binary.LittleEndian.PutUint32(out[8:], uint32(dstW)) //nolint:gosec // texture sizes fit uint32
	binary.LittleEndian.PutUint32(out[12:], uint32(dstH)) //nolint:gosec // texture sizes fit uint32
	return out
}

// execute encodes every pass of cb into one HAL command buffer, submits it,
// waits on a fence and refreshes the mirrors of written readback textures.
// It runs on the queue goroutine.
func (d *Device) execute(cb *commandBuffer) error {
	if cb.err != nil {
		return cb.err
	}

	d.halMu.Lock()
	defer d.halMu.Unlock()

	b := &bindings{dev: d}
	defer b.release()

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: cb.label})
	if err != nil {
		return fmt.Errorf("wgpu: %s: create command encoder: %w", cb.label, err)
	}
	if err := encoder.BeginEncoding(cb.label); err != nil {
		return fmt.Errorf("wgpu: %s: begin encoding: %w", cb.label, err)
	}

	var outputs []*texture
	for _, p := range cb.passes {
		if len(p.dispatches) == 0 {
			continue
		}
		if err := p.validate(); err != nil {
			return fmt.Errorf("wgpu: %s: %w", cb.label, err)
		}
		bg, err := b.bind(p)
		if err != nil {
			return fmt.Errorf("wgpu: %s: %w", cb.label, err)
		}
		pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: p.label})
		pass.SetPipeline(p.pipeline.pipeline)
		pass.SetBindGroup(0, bg, nil)
		for _, g := range p.dispatches {
			pass.Dispatch(g[0], g[1], g[2])
		}
		pass.End()

		if dst := p.textures[gpucore.OutputTextureIndex]; dst.staging != nil {
			outputs = appendUnique(outputs, dst)
		}
	}
	for _, t := range outputs {
		encoder.CopyBufferToBuffer(t.buffer, t.staging, []hal.BufferCopy{
			{SrcOffset: 0, DstOffset: 0, Size: t.size},
		})
	}

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: %s: end encoding: %w", cb.label, err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("wgpu: %s: create fence: %w", cb.label, err)
	}
	defer d.device.DestroyFence(fence)
	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("wgpu: %s: submit: %w", cb.label, err)
	}
	fenceOK, err := d.device.Wait(fence, 1, d.fenceTimeout)
	if err != nil || !fenceOK {
		return fmt.Errorf("wgpu: %s: wait for GPU: ok=%v err=%w", cb.label, fenceOK, err)
	}

	for _, t := range outputs {
		if err := t.readback(); err != nil {
			return fmt.Errorf("wgpu: %s: %w", cb.label, err)
		}
	}
	return nil
}

func appendUnique(ts []*texture, t *texture) []*texture {
	for _, have := range ts {
		if have == t {
			return ts
		}
	}
	return append(ts, t)
}
