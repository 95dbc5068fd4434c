package capture

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gogpu/camfx"
)

// Pattern fills a frame. seq is the frame's sequence number.
type Pattern func(f *camfx.Frame, seq uint64)

// SyntheticOption configures a Synthetic source.
type SyntheticOption func(*Synthetic)

// WithAccess sets the answer RequestAccess gives. The default is true.
func WithAccess(granted bool) SyntheticOption {
	return func(s *Synthetic) { s.granted = granted }
}

// WithFormats replaces the device formats the source advertises.
func WithFormats(formats ...DeviceFormat) SyntheticOption {
	return func(s *Synthetic) { s.formats = append([]DeviceFormat(nil), formats...) }
}

// WithPattern replaces the default moving gradient.
func WithPattern(p Pattern) SyntheticOption {
	return func(s *Synthetic) {
		if p != nil {
			s.pattern = p
		}
	}
}

// DefaultFormats are the modes a Synthetic source advertises unless
// WithFormats is given. 1080p is limited to 30 fps.
func DefaultFormats() []DeviceFormat {
	return []DeviceFormat{
		{Width: 640, Height: 480, Subtype: SubtypeBGRA, FrameRateRanges: []FrameRateRange{{1, 60}}},
		{Width: 640, Height: 480, Subtype: SubtypeBiPlanar420Full, FrameRateRanges: []FrameRateRange{{1, 60}}},
		{Width: 1280, Height: 720, Subtype: SubtypeBiPlanar420Full, FrameRateRanges: []FrameRateRange{{1, 30}, {1, 60}}},
		{Width: 1280, Height: 720, Subtype: SubtypeBiPlanar420Full, FrameRateRanges: []FrameRateRange{{1, 60}}},
		{Width: 1920, Height: 1080, Subtype: SubtypeBiPlanar420Full, FrameRateRanges: []FrameRateRange{{1, 30}}},
	}
}

// Synthetic produces a deterministic test pattern on a ticker.
// Each frame gets freshly allocated storage, like a camera buffer pool that
// never hands out a buffer still in use.
type Synthetic struct {
	granted bool
	formats []DeviceFormat
	pattern Pattern

	mu       sync.Mutex
	asked    bool
	allowed  bool
	handler  Handler
	width    int
	height   int
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}

	seq       atomic.Uint64
	delivered atomic.Uint64
}

// NewSynthetic creates a source configured for the default preset.
func NewSynthetic(opts ...SyntheticOption) *Synthetic {
	s := &Synthetic{
		granted: true,
		formats: DefaultFormats(),
		pattern: Gradient,
	}
	for _, opt := range opts {
		opt(s)
	}
	w, h, _ := Config{}.Size()
	s.width, s.height = w, h
	s.interval = time.Second / DefaultFrameRate
	return s
}

// Formats returns the advertised device formats.
func (s *Synthetic) Formats() []DeviceFormat {
	return append([]DeviceFormat(nil), s.formats...)
}

// RequestAccess reports the configured answer.
func (s *Synthetic) RequestAccess(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asked = true
	s.allowed = s.granted
	return s.allowed, nil
}

// Configure selects a format for cfg among the advertised ones.
func (s *Synthetic) Configure(ctx context.Context, cfg Config) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	cfg = cfg.withDefaults()
	pw, ph, err := cfg.Landscape()
	if err != nil {
		return Result{}, err
	}
	active := DeviceFormat{Width: pw, Height: ph, Subtype: SubtypeBGRA}

	res := Result{Format: active}
	fps := cfg.FrameRate
	if f, ok := SelectFormat(s.formats, active, fps, cfg.Policy); ok {
		res.Format = f
	} else {
		res = Degrade(active, "no 420f format supports the requested frame rate")
		fps = DefaultFrameRate / 2
	}

	w, h := pw, ph
	if cfg.Portrait {
		w, h = h, w
	}

	s.mu.Lock()
	s.width, s.height = w, h
	s.interval = time.Duration(float64(time.Second) / fps)
	s.mu.Unlock()

	camfx.Logger().Info("capture: configured",
		"source", "synthetic",
		"width", w,
		"height", h,
		"fps", fps,
		"format", res.Format.String(),
		"degraded", res.Degraded,
	)
	return res, nil
}

// SetHandler installs the frame callback.
func (s *Synthetic) SetHandler(h Handler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

// Start begins delivery on a dedicated goroutine.
func (s *Synthetic) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.asked && !s.allowed {
		return camfx.ErrPermissionDenied
	}
	if s.handler == nil {
		return errors.New("capture: Start without a handler")
	}
	if s.done != nil {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(runCtx, s.done, s.handler, s.width, s.height, s.interval)
	camfx.Logger().Info("capture: started", "source", "synthetic")
	return nil
}

// Stop halts delivery and waits for the delivery goroutine to exit.
func (s *Synthetic) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	cancel()
	<-done
	camfx.Logger().Info("capture: stopped", "source", "synthetic", "delivered", s.delivered.Load())
	return nil
}

// Delivered returns the number of frames handed to the handler.
func (s *Synthetic) Delivered() uint64 {
	return s.delivered.Load()
}

func (s *Synthetic) run(ctx context.Context, done chan struct{}, deliver Handler, w, h int, interval time.Duration) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			f := camfx.NewFrame(w, h)
			f.Seq = s.seq.Add(1)
			f.Timestamp = now
			f.TraceID = uuid.New().String()
			s.pattern(f, f.Seq)
			deliver(f)
			s.delivered.Add(1)
		}
	}
}

// Gradient is the default pattern: a diagonal gradient that scrolls one
// pixel per frame, with opaque alpha.
func Gradient(f *camfx.Frame, seq uint64) {
	shift := int(seq)
	for y := 0; y < f.Height; y++ {
		row := f.Pix[y*f.Stride:]
		for x := 0; x < f.Width; x++ {
			i := x * 4
			row[i+0] = uint8(x + shift)
			row[i+1] = uint8(y)
			row[i+2] = uint8(x + y + shift)
			row[i+3] = 0xff
		}
	}
}

// Solid returns a pattern that fills every pixel with one BGRA value.
func Solid(b, g, r, a uint8) Pattern {
	px := [4]byte{b, g, r, a}
	return func(f *camfx.Frame, _ uint64) {
		for y := 0; y < f.Height; y++ {
			row := f.Pix[y*f.Stride:]
			for x := 0; x < f.Width; x++ {
				copy(row[x*4:], px[:])
			}
		}
	}
}
