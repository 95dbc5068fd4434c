// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package render draws the latest captured frame once per display tick.
//
// Each tick peeks the mailbox, converts the frame to a texture view,
// acquires a drawable and the published pipeline, encodes one compute pass
// and commits it with the drawable scheduled for present. Resources taken
// for the draw are released from the command buffer's completion handler.
// Failures on one tick are reported and the next tick proceeds normally.
package render

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/camfx"
	"github.com/gogpu/camfx/bridge"
	"github.com/gogpu/camfx/display"
	"github.com/gogpu/camfx/gpucore"
	"github.com/gogpu/camfx/pipeline"
)

// Outcome is the result of one tick.
type Outcome int

const (
	// OutcomeIdle means no frame was available; no GPU work was issued.
	OutcomeIdle Outcome = iota
	// OutcomeDrawn means a draw was committed.
	OutcomeDrawn
	// OutcomeSkipped means a frame was available but the tick failed.
	OutcomeSkipped
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeIdle:
		return "idle"
	case OutcomeDrawn:
		return "drawn"
	case OutcomeSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Presented describes a completed draw.
type Presented struct {
	// Seq is the sequence number of the frame drawn.
	Seq uint64
	// Kernel is the descriptor the pipeline was built from.
	Kernel string
	// KernelIndex is the registry index of Kernel.
	KernelIndex int
	// Pipeline is the label of the compiled program that ran.
	Pipeline string
	// Version is the pipeline version.
	Version uint64
	// Err is non-nil if execution or present failed.
	Err error
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithOnPresented installs a hook called from the completion handler of
// every committed draw.
func WithOnPresented(fn func(Presented)) Option {
	return func(r *Renderer) { r.onPresented = fn }
}

// Renderer performs at most one draw per tick.
type Renderer struct {
	dev      gpucore.Device
	mailbox  *camfx.Mailbox
	bridge   *bridge.Bridge
	pipeline *pipeline.Pipeline
	surface  display.Surface

	onPresented func(Presented)
	inflight    sync.WaitGroup

	ticks          atomic.Uint64
	idle           atomic.Uint64
	drawn          atomic.Uint64
	presented      atomic.Uint64
	failed         atomic.Uint64
	conversionSkip atomic.Uint64
	drawableSkip   atomic.Uint64
	otherSkip      atomic.Uint64
	lastSeq        atomic.Uint64
}

// New creates a renderer.
func New(dev gpucore.Device, mailbox *camfx.Mailbox, br *bridge.Bridge,
	pl *pipeline.Pipeline, surface display.Surface, opts ...Option,
) *Renderer {
	r := &Renderer{
		dev:      dev,
		mailbox:  mailbox,
		bridge:   br,
		pipeline: pl,
		surface:  surface,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Tick draws the latest frame, if any.
//
// Conversion failures return camfx.ErrConversion and drawable failures
// return camfx.ErrDrawableUnavailable; both leave the renderer ready for
// the next tick.
func (r *Renderer) Tick(ctx context.Context) (Outcome, error) {
	r.ticks.Add(1)
	log := camfx.Logger()

	frame := r.mailbox.Peek()
	if frame == nil {
		r.idle.Add(1)
		return OutcomeIdle, nil
	}

	view, err := r.bridge.Convert(frame)
	if err != nil {
		r.conversionSkip.Add(1)
		log.Warn("render: frame skipped", "seq", frame.Seq, "err", err)
		return OutcomeSkipped, err
	}

	drawable, err := r.surface.NextDrawable(ctx)
	if err != nil {
		view.Release()
		r.drawableSkip.Add(1)
		log.Warn("render: tick skipped", "seq", frame.Seq, "err", err)
		if !camfx.Recoverable(err) {
			err = fmt.Errorf("%w: %w", camfx.ErrDrawableUnavailable, err)
		}
		return OutcomeSkipped, err
	}

	state, ok := r.pipeline.Acquire()
	if !ok {
		view.Release()
		drawable.Release()
		r.otherSkip.Add(1)
		return OutcomeSkipped, fmt.Errorf("render: no pipeline published: %w", camfx.ErrPipelineCompilation)
	}

	release := func() {
		view.Release()
		state.Release()
		drawable.Release()
	}

	cb, err := r.dev.NewCommandBuffer("frame")
	if err != nil {
		release()
		r.otherSkip.Add(1)
		return OutcomeSkipped, fmt.Errorf("render: command buffer: %w", err)
	}

	pass := cb.BeginComputePass(state.Descriptor.Name)
	pass.SetPipeline(state.Pipeline)
	pass.SetTexture(view.Texture(), gpucore.InputTextureIndex)
	pass.SetTexture(drawable.Texture(), gpucore.OutputTextureIndex)
	grid := gpucore.DispatchGrid(view.Width(), view.Height())
	pass.Dispatch(grid[0], grid[1], grid[2])
	pass.End()

	cb.Present(drawable)

	info := Presented{
		Seq:         frame.Seq,
		Kernel:      state.Descriptor.Name,
		KernelIndex: state.Descriptor.Index,
		Pipeline:    state.Pipeline.Label(),
		Version:     state.Version,
	}
	cb.AddCompletedHandler(func(err error) {
		release()
		if err != nil {
			r.failed.Add(1)
			camfx.Logger().Warn("render: draw failed", "seq", info.Seq, "kernel", info.Kernel, "err", err)
		} else {
			r.presented.Add(1)
			r.lastSeq.Store(info.Seq)
		}
		if r.onPresented != nil {
			info.Err = err
			r.onPresented(info)
		}
		r.inflight.Done()
	})

	r.inflight.Add(1)
	if err := cb.Commit(); err != nil {
		release()
		r.inflight.Done()
		r.otherSkip.Add(1)
		return OutcomeSkipped, fmt.Errorf("render: commit: %w", err)
	}

	r.drawn.Add(1)
	log.Debug("render: committed", "seq", frame.Seq, "kernel", info.Kernel,
		"groups_x", grid[0], "groups_y", grid[1])
	return OutcomeDrawn, nil
}

// Wait blocks until every committed draw has completed.
func (r *Renderer) Wait() {
	r.inflight.Wait()
}

// Stats reports renderer counters.
type Stats struct {
	Ticks           uint64
	Idle            uint64
	Drawn           uint64
	Presented       uint64
	Failed          uint64
	ConversionSkips uint64
	DrawableSkips   uint64
	OtherSkips      uint64
	LastSeq         uint64
}

// Stats returns a snapshot of the counters.
func (r *Renderer) Stats() Stats {
	return Stats{
		Ticks:           r.ticks.Load(),
		Idle:            r.idle.Load(),
		Drawn:           r.drawn.Load(),
		Presented:       r.presented.Load(),
		Failed:          r.failed.Load(),
		ConversionSkips: r.conversionSkip.Load(),
		DrawableSkips:   r.drawableSkip.Load(),
		OtherSkips:      r.otherSkip.Load(),
		LastSeq:         r.lastSeq.Load(),
	}
}
