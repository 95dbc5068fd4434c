package capture

import (
	"context"
	"fmt"

	"github.com/gogpu/camfx"
)

// Preset names a capture resolution in landscape orientation.
type Preset string

// Resolution presets.
const (
	PresetVGA640x480  Preset = "vga640x480"
	PresetHD1280x720  Preset = "hd1280x720"
	PresetHD1920x1080 Preset = "hd1920x1080"
)

// Defaults applied to a zero Config.
const (
	DefaultPreset    = PresetHD1280x720
	DefaultFrameRate = 60
)

// Dimensions returns the landscape width and height of the preset.
func (p Preset) Dimensions() (width, height int, err error) {
	switch p {
	case PresetVGA640x480:
		return 640, 480, nil
	case PresetHD1280x720:
		return 1280, 720, nil
	case PresetHD1920x1080:
		return 1920, 1080, nil
	}
	return 0, 0, fmt.Errorf("capture: unknown preset %q", string(p))
}

// Config requests a capture mode.
type Config struct {
	Preset    Preset
	FrameRate float64

	// Width and Height, when both set, request a custom resolution instead
	// of Preset.
	Width, Height int

	// Portrait swaps width and height of delivered frames.
	Portrait bool

	// Policy breaks ties between matching device formats.
	Policy TieBreak
}

func (c Config) withDefaults() Config {
	if c.Preset == "" {
		c.Preset = DefaultPreset
	}
	if c.FrameRate <= 0 {
		c.FrameRate = DefaultFrameRate
	}
	return c
}

// Landscape returns the requested resolution before orientation is applied.
func (c Config) Landscape() (width, height int, err error) {
	if c.Width > 0 && c.Height > 0 {
		return c.Width, c.Height, nil
	}
	return c.withDefaults().Preset.Dimensions()
}

// Size returns the frame size the configuration delivers.
func (c Config) Size() (width, height int, err error) {
	w, h, err := c.Landscape()
	if err != nil {
		return 0, 0, err
	}
	if c.Portrait {
		w, h = h, w
	}
	return w, h, nil
}

// Result reports the mode a source settled on.
type Result struct {
	Format   DeviceFormat
	Degraded bool

	// Warning wraps camfx.ErrCaptureConfiguration when Degraded is set.
	Warning error
}

// Handler receives frames. It is never called concurrently with itself.
type Handler func(*camfx.Frame)

// Source is a frame producer.
type Source interface {
	// RequestAccess asks for camera permission. A false result without an
	// error means the user refused.
	RequestAccess(ctx context.Context) (bool, error)

	// Configure selects a device mode. A mode that cannot be matched is not
	// an error: the source degrades to its default mode and reports it in
	// Result.
	Configure(ctx context.Context, cfg Config) (Result, error)

	// SetHandler installs the frame callback. It must be called before Start.
	SetHandler(h Handler)

	// Start begins delivery. Calling Start on a running source is a no-op.
	Start(ctx context.Context) error

	// Stop halts delivery. When Stop returns no further callbacks occur.
	Stop() error
}

// Degrade builds the Result for a configuration that could not be applied
// and logs it as a warning.
func Degrade(active DeviceFormat, reason string) Result {
	warn := fmt.Errorf("%w: %s; using %v", camfx.ErrCaptureConfiguration, reason, active)
	camfx.Logger().Warn("capture: degraded configuration",
		"reason", reason,
		"format", active.String(),
	)
	return Result{Format: active, Degraded: true, Warning: warn}
}
