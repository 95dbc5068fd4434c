package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gogpu/camfx"
	"github.com/gogpu/camfx/capture"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "camfx.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
backend: software
source: synthetic
preset: vga640x480
fps: 30
portrait: true
tie_break: closest
cycle: 1500ms
acquire_timeout: 250ms
max_in_flight: 2
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend != "software" || cfg.Preset != "vga640x480" || cfg.FrameRate != 30 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Cycle.Duration() != 1500*time.Millisecond {
		t.Errorf("Cycle = %v, want 1.5s", cfg.Cycle.Duration())
	}
	if cfg.AcquireTimeout.Duration() != 250*time.Millisecond {
		t.Errorf("AcquireTimeout = %v", cfg.AcquireTimeout.Duration())
	}
	// Unset keys keep their defaults.
	if cfg.BridgeCapacity != DefaultConfig().BridgeCapacity {
		t.Errorf("BridgeCapacity = %d, want default", cfg.BridgeCapacity)
	}

	cc, err := cfg.Capture()
	if err != nil {
		t.Fatal(err)
	}
	if cc.Policy != capture.ClosestMatch {
		t.Errorf("Policy = %v, want closest", cc.Policy)
	}
	if w, h, _ := cc.Size(); w != 480 || h != 640 {
		t.Errorf("Size = %dx%d, want 480x640", w, h)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(writeConfig(t, "cycle: soon\n")); err == nil {
		t.Error("invalid duration accepted")
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestParseArgsFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, "backend: wgpu\nlog_level: debug\nframes: 10\n")
	cfg, check, err := parseArgs([]string{"-config", path, "-backend", "software", "-frames", "3", "-cycle", "2s"}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if check {
		t.Error("check = true without -check")
	}
	if cfg.Backend != "software" || cfg.Frames != 3 || cfg.Cycle.Duration() != 2*time.Second {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want file value debug", cfg.LogLevel)
	}
}

func TestDefaultOrientationIsPortrait(t *testing.T) {
	cfg, _, err := parseArgs(nil, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	cc, err := cfg.Capture()
	if err != nil {
		t.Fatal(err)
	}
	if w, h, _ := cc.Size(); w != 720 || h != 1280 {
		t.Errorf("default size = %dx%d, want 720x1280", w, h)
	}

	cfg, _, err = parseArgs([]string{"-portrait=false"}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	cc, _ = cfg.Capture()
	if w, h, _ := cc.Size(); w != 1280 || h != 720 {
		t.Errorf("landscape size = %dx%d, want 1280x720", w, h)
	}
}

func TestParseArgsValidation(t *testing.T) {
	tests := [][]string{
		{"-backend", "metal"},
		{"-source", "webcam"},
		{"-log-level", "loud"},
		{"-preset", "8k"},
	}
	for _, args := range tests {
		if _, _, err := parseArgs(args, io.Discard); err == nil {
			t.Errorf("parseArgs(%v) succeeded", args)
		}
	}
}

func TestRunHeadless(t *testing.T) {
	t.Cleanup(func() { camfx.SetLogger(nil) })
	snaps := t.TempDir()
	path := writeConfig(t, `
width: 32
height: 24
fps: 120
tick: 2ms
snapshot_every: 2
`)
	var stdout, stderr bytes.Buffer
	code := run([]string{
		"-config", path,
		"-backend", "software",
		"-headless",
		"-frames", "6",
		"-snapshot-dir", snaps,
		"-log-level", "error",
	}, &stdout, &stderr)
	if code != exitOK {
		t.Fatalf("exit %d, stderr:\n%s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "presented:") {
		t.Errorf("stats missing from output:\n%s", stdout.String())
	}
	files, err := filepath.Glob(filepath.Join(snaps, "frame_*.png"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Error("no snapshots written")
	}
}

func TestRunCameraWithoutSupport(t *testing.T) {
	t.Cleanup(func() { camfx.SetLogger(nil) })
	var stdout, stderr bytes.Buffer
	code := run([]string{"-backend", "software", "-headless", "-source", "camera", "-log-level", "error"}, &stdout, &stderr)
	if code == exitOK {
		t.Skip("built with camera support")
	}
	if code != exitFatal {
		t.Errorf("exit %d, want %d", code, exitFatal)
	}
}
