//go:build gst

package gst

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/gogpu/camfx"
	"github.com/gogpu/camfx/capture"
)

// DefaultDevice is the V4L2 device opened when none is given.
const DefaultDevice = "/dev/video0"

var initOnce sync.Once

// Source is a capture.Source backed by a GStreamer pipeline.
type Source struct {
	device string

	mu       sync.Mutex
	handler  capture.Handler
	plan     Plan
	allowed  bool
	asked    bool
	pipeline *gst.Pipeline
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	seq     atomic.Uint64
	dropped atomic.Uint64
}

var _ capture.Source = (*Source)(nil)

// New creates a source for the given V4L2 device node. An empty device
// selects DefaultDevice.
func New(device string) *Source {
	if device == "" {
		device = DefaultDevice
	}
	return &Source{device: device, plan: defaultPlan()}
}

// RequestAccess checks that the device node can be opened. A permission
// error is reported as a refusal.
func (s *Source) RequestAccess(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	f, err := os.Open(s.device)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asked = true
	switch {
	case errors.Is(err, fs.ErrPermission):
		s.allowed = false
		return false, nil
	case err != nil:
		return false, fmt.Errorf("capture/gst: open %s: %w", s.device, err)
	}
	_ = f.Close()
	s.allowed = true
	return true, nil
}

// Configure lists the modes the camera offers and selects one with
// capture.SelectFormat. When no mode matches, the device keeps its own mode,
// videoscale and videoflip adapt it, and the result is degraded.
func (s *Source) Configure(ctx context.Context, cfg capture.Config) (capture.Result, error) {
	if err := ctx.Err(); err != nil {
		return capture.Result{}, err
	}
	modes, err := s.probeModes()
	if err != nil {
		camfx.Logger().Warn("capture/gst: cannot list device modes", "device", s.device, "err", err)
	}
	plan, res, err := Negotiate(modes, cfg)
	if err != nil {
		return capture.Result{}, err
	}

	s.mu.Lock()
	s.plan = plan
	s.mu.Unlock()
	camfx.Logger().Info("capture: configured",
		"source", "gst",
		"device", s.device,
		"modes", len(modes),
		"width", plan.Width,
		"height", plan.Height,
		"fps", plan.FrameRate,
		"rotate", plan.Rotate,
		"format", res.Format.String(),
		"degraded", res.Degraded,
	)
	return res, nil
}

// probeModes brings a bare v4l2src to READY and queries its src pad caps.
func (s *Source) probeModes() ([]capture.DeviceFormat, error) {
	initOnce.Do(func() { gst.Init(nil) })
	src, err := gst.NewElement("v4l2src")
	if err != nil {
		return nil, fmt.Errorf("create v4l2src: %w", err)
	}
	src.SetProperty("device", s.device)
	if err := src.SetState(gst.StateReady); err != nil {
		return nil, fmt.Errorf("open %s: %w", s.device, err)
	}
	defer src.SetState(gst.StateNull)

	pad := src.GetStaticPad("src")
	if pad == nil {
		return nil, errors.New("v4l2src has no src pad")
	}
	caps := pad.QueryCaps(nil)
	if caps == nil {
		return nil, errors.New("caps query failed")
	}
	return ParseModes(caps.String()), nil
}

// SetHandler installs the frame callback.
func (s *Source) SetHandler(h capture.Handler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

// Start builds the pipeline and sets it to PLAYING.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.asked && !s.allowed {
		return camfx.ErrPermissionDenied
	}
	if s.handler == nil {
		return errors.New("capture/gst: Start without a handler")
	}
	if s.pipeline != nil {
		return nil
	}
	initOnce.Do(func() { gst.Init(nil) })

	pipeline, sink, err := buildPipeline(s.device, s.plan)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	frames := make(chan *camfx.Frame, 1)
	handler := s.handler
	w, h := s.plan.Width, s.plan.Height

	sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(sink *app.Sink) gst.FlowReturn {
			return s.onNewSample(sink, frames, w, h)
		},
	})

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		cancel()
		return fmt.Errorf("capture/gst: start pipeline: %w", err)
	}

	s.pipeline = pipeline
	s.cancel = cancel
	s.wg.Add(2)
	go s.deliver(runCtx, frames, handler)
	go s.monitor(runCtx, pipeline)

	camfx.Logger().Info("capture: started", "source", "gst", "device", s.device)
	return nil
}

// Stop sets the pipeline to NULL and waits for the delivery goroutine.
func (s *Source) Stop() error {
	s.mu.Lock()
	pipeline, cancel := s.pipeline, s.cancel
	s.pipeline, s.cancel = nil, nil
	s.mu.Unlock()
	if pipeline == nil {
		return nil
	}
	err := pipeline.SetState(gst.StateNull)
	cancel()
	s.wg.Wait()
	camfx.Logger().Info("capture: stopped",
		"source", "gst",
		"frames", s.seq.Load(),
		"dropped", s.dropped.Load(),
	)
	if err != nil {
		return fmt.Errorf("capture/gst: stop pipeline: %w", err)
	}
	return nil
}

func buildPipeline(device string, plan Plan) (*gst.Pipeline, *app.Sink, error) {
	desc := plan.Description(device)
	camfx.Logger().Debug("capture/gst: pipeline", "description", desc)
	pipeline, err := gst.NewPipelineFromString(desc)
	if err != nil {
		return nil, nil, fmt.Errorf("capture/gst: create pipeline: %w", err)
	}
	el, err := pipeline.GetElementByName(sinkName)
	if err != nil {
		return nil, nil, fmt.Errorf("capture/gst: find appsink: %w", err)
	}
	return pipeline, app.SinkFromElement(el), nil
}

// onNewSample runs on the GStreamer streaming thread. It copies the sample
// and hands it to the delivery goroutine, replacing any frame not yet taken.
func (s *Source) onNewSample(sink *app.Sink, frames chan *camfx.Frame, width, height int) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		camfx.Logger().Warn("capture/gst: failed to pull sample")
		return gst.FlowOK
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		camfx.Logger().Warn("capture/gst: sample without buffer")
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) < width*height*4 {
		buffer.Unmap()
		camfx.Logger().Warn("capture/gst: short buffer", "len", len(data), "want", width*height*4)
		return gst.FlowOK
	}
	f := camfx.NewFrame(width, height)
	copy(f.Pix, data)
	buffer.Unmap()

	f.Seq = s.seq.Add(1)
	f.Timestamp = time.Now()
	f.TraceID = uuid.New().String()

	for {
		select {
		case frames <- f:
			return gst.FlowOK
		default:
		}
		select {
		case <-frames:
			s.dropped.Add(1)
		default:
		}
	}
}

func (s *Source) deliver(ctx context.Context, frames <-chan *camfx.Frame, h capture.Handler) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-frames:
			if ctx.Err() != nil {
				return
			}
			h(f)
		}
	}
}

func (s *Source) monitor(ctx context.Context, pipeline *gst.Pipeline) {
	defer s.wg.Done()
	bus := pipeline.GetPipelineBus()
	for ctx.Err() == nil {
		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageEOS:
			camfx.Logger().Info("capture/gst: end of stream", "device", s.device)
			return
		case gst.MessageError:
			gerr := msg.ParseError()
			camfx.Logger().Error("capture/gst: pipeline error",
				"device", s.device,
				"error", gerr.Error(),
				"debug", gerr.DebugString(),
			)
		case gst.MessageStateChanged:
			if msg.Source() == pipeline.GetName() {
				old, cur := msg.ParseStateChanged()
				camfx.Logger().Debug("capture/gst: state changed", "from", old, "to", cur)
			}
		}
	}
}
