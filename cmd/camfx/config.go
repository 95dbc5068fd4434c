package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/camfx/bridge"
	"github.com/gogpu/camfx/capture"
	"github.com/gogpu/camfx/display"
)

// Duration wraps time.Duration for YAML unmarshaling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config is the CLI configuration. Values come from the YAML file named by
// -config, then from flags given explicitly on the command line.
type Config struct {
	Backend  string `yaml:"backend"`   // auto, wgpu or software
	Source   string `yaml:"source"`    // synthetic or camera
	Device   string `yaml:"device"`    // camera device node
	Headless bool   `yaml:"headless"`  // offscreen surface instead of a window
	LogLevel string `yaml:"log_level"` // debug, info, warn, error

	Preset    string  `yaml:"preset"`
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
	FrameRate float64 `yaml:"fps"`
	Portrait  bool    `yaml:"portrait"`
	TieBreak  string  `yaml:"tie_break"` // first or closest

	Frames         uint64   `yaml:"frames"` // stop after this many presented frames; 0 runs until interrupted
	Cycle          Duration `yaml:"cycle"`  // auto-advance interval; 0 disables
	SnapshotDir    string   `yaml:"snapshot_dir"`
	SnapshotEvery  uint64   `yaml:"snapshot_every"`
	MaxInFlight    int      `yaml:"max_in_flight"`
	AcquireTimeout Duration `yaml:"acquire_timeout"`
	TickInterval   Duration `yaml:"tick"`
	BridgeCapacity int      `yaml:"bridge_capacity"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Backend:        "auto",
		Source:         "synthetic",
		LogLevel:       "info",
		Preset:         string(capture.DefaultPreset),
		FrameRate:      capture.DefaultFrameRate,
		Portrait:       true,
		TieBreak:       "first",
		SnapshotEvery:  30,
		MaxInFlight:    display.DefaultMaxInFlight,
		AcquireTimeout: Duration(display.DefaultAcquireTimeout),
		TickInterval:   Duration(display.DefaultTickInterval),
		BridgeCapacity: bridge.DefaultCapacity,
	}
}

// LoadConfig reads path over the defaults. An empty path returns the
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks enumerated values.
func (c Config) Validate() error {
	switch c.Backend {
	case "auto", "wgpu", "software":
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	switch c.Source {
	case "synthetic", "camera":
	default:
		return fmt.Errorf("unknown source %q", c.Source)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := c.Capture(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return l, nil
}

// Capture returns the requested capture mode.
func (c Config) Capture() (capture.Config, error) {
	policy, err := capture.ParseTieBreak(c.TieBreak)
	if err != nil {
		return capture.Config{}, err
	}
	cc := capture.Config{
		Preset:    capture.Preset(c.Preset),
		FrameRate: c.FrameRate,
		Width:     c.Width,
		Height:    c.Height,
		Portrait:  c.Portrait,
		Policy:    policy,
	}
	if _, _, err := cc.Size(); err != nil {
		return capture.Config{}, err
	}
	return cc, nil
}

// SurfaceOptions returns the drawable pool options.
func (c Config) SurfaceOptions() []display.Option {
	return []display.Option{
		display.WithMaxInFlight(c.MaxInFlight),
		display.WithAcquireTimeout(c.AcquireTimeout.Duration()),
		display.WithTickInterval(c.TickInterval.Duration()),
	}
}
