package software

import (
	"errors"
	"fmt"

	"github.com/gogpu/camfx/gpucore"
	"github.com/gogpu/camfx/kernel"
)

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
	pipeline   *pipeline
	textures   [2]*texture
	dispatches [][3]uint32
	ended      bool
	cb         *commandBuffer
}

func (cb *commandBuffer) BeginComputePass(string) gpucore.ComputePassEncoder {
	p := &computePass{cb: cb}
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
		return fmt.Errorf("software: command buffer %q committed twice", cb.label)
	}
	cb.committed = true
	for _, p := range cb.passes {
		if !p.ended {
			return fmt.Errorf("software: command buffer %q has an open compute pass", cb.label)
		}
	}
	return cb.dev.submit(cb)
}

func (cb *commandBuffer) recordErr(err error) {
	if cb.err == nil {
		cb.err = err
	}
}

// execute runs on the queue goroutine.
func (cb *commandBuffer) execute() error {
	if cb.err != nil {
		return cb.err
	}
	for _, p := range cb.passes {
		if err := p.run(cb.dev); err != nil {
			return fmt.Errorf("software: %s: %w", cb.label, err)
		}
	}
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
	sp, ok := pl.(*pipeline)
	if !ok {
		p.cb.recordErr(fmt.Errorf("software: foreign pipeline %T", pl))
		return
	}
	p.pipeline = sp
}

func (p *computePass) SetTexture(t gpucore.Texture, index int) {
	st, ok := t.(*texture)
	if !ok {
		p.cb.recordErr(fmt.Errorf("software: foreign texture %T", t))
		return
	}
	if index < 0 || index >= len(p.textures) {
		p.cb.recordErr(fmt.Errorf("software: texture index %d out of range", index))
		return
	}
	p.textures[index] = st
}

func (p *computePass) Dispatch(x, y, z uint32) {
	p.dispatches = append(p.dispatches, [3]uint32{x, y, z})
}

func (p *computePass) End() {
	p.ended = true
}

func (p *computePass) run(dev *Device) error {
	if len(p.dispatches) == 0 {
		return nil
	}
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

	fn := p.pipeline.fn
	for _, g := range p.dispatches {
		gx, gy := int(g[0]), int(g[1])
		for range g[2] {
			dev.pool.Run(gx*gy, func(i int) {
				kernel.RunWorkgroup(fn, src.plane, dst.plane, i%gx, i/gx)
			})
		}
	}
	return nil
}
