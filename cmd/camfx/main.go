// Command camfx runs camera frames through GPU compute filters.
//
// Usage:
//
//	camfx [flags]
//
// Press Space or Enter in the window to switch to the next filter. With
// -headless the frames are rendered offscreen; -snapshot-dir writes them as
// PNG files and -cycle advances the filter on a timer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gogpu/camfx"
	"github.com/gogpu/camfx/app"
	"github.com/gogpu/camfx/backend"
	"github.com/gogpu/camfx/capture"
	"github.com/gogpu/camfx/display"
	"github.com/gogpu/camfx/gpucore"
	"github.com/gogpu/camfx/kernel"

	_ "github.com/gogpu/camfx/backend/software"
	_ "github.com/gogpu/camfx/backend/wgpu"
)

// Exit codes.
const (
	exitOK         = 0
	exitFatal      = 1
	exitPermission = 2
	exitUsage      = 64
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, check, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, "camfx:", err)
		return exitUsage
	}
	level, _ := cfg.Level()
	camfx.SetLogger(newLogger(stderr, level))
	log := camfx.Logger()

	if check {
		if err := kernel.Validate(kernel.NewRegistry()); err != nil {
			fmt.Fprintln(stderr, "camfx:", err)
			return exitFatal
		}
		fmt.Fprintln(stdout, "all filters compile")
		return exitOK
	}

	dev, name, err := openDevice(cfg.Backend)
	if err != nil {
		log.Error("open device", "backend", cfg.Backend, "err", err)
		fmt.Fprintln(stderr, "camfx:", err)
		return exitFatal
	}
	defer dev.Close()
	log.Info("device opened", "backend", name)

	ccfg, _ := cfg.Capture()
	width, height, _ := ccfg.Size()

	source, err := openSource(cfg)
	if err != nil {
		fmt.Fprintln(stderr, "camfx:", err)
		return exitFatal
	}

	var a *app.App
	advance := func() {
		if a == nil {
			return
		}
		if _, err := a.SwitchKernel(); err != nil {
			log.Error("switch kernel", "err", err)
		}
	}
	overlay := func() string {
		if a == nil {
			return ""
		}
		return a.Kernel().Name
	}

	surface, err := openSurface(cfg, dev, width, height, advance, overlay)
	if err != nil {
		fmt.Fprintln(stderr, "camfx:", err)
		return exitFatal
	}

	opts := []app.Option{
		app.WithCaptureConfig(ccfg),
		app.WithBridgeCapacity(cfg.BridgeCapacity),
		app.WithFrameLimit(cfg.Frames),
		app.WithAutoCycle(cfg.Cycle.Duration()),
	}
	a, err = app.New(dev, source, surface, opts...)
	if err != nil {
		_ = surface.Close()
		fmt.Fprintln(stderr, "camfx:", err)
		return exitFatal
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	err = a.Run(ctx)
	elapsed := time.Since(start)

	st := a.Stats()
	printStats(stdout, st)
	if elapsed > 0 {
		fmt.Fprintf(stdout, "rate:        %.1f frames/s\n", float64(st.Renderer.Presented)/elapsed.Seconds())
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, camfx.ErrPermissionDenied):
		fmt.Fprintln(stderr, camfx.ErrPermissionDenied.Error())
		return exitPermission
	default:
		fmt.Fprintln(stderr, "camfx:", err)
		return exitFatal
	}
}

func parseArgs(args []string, stderr io.Writer) (Config, bool, error) {
	fs := flag.NewFlagSet("camfx", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		configPath  = fs.String("config", "", "YAML configuration file")
		backendName = fs.String("backend", "", "device backend: auto, wgpu or software")
		sourceName  = fs.String("source", "", "frame source: synthetic or camera")
		device      = fs.String("device", "", "camera device node")
		headless    = fs.Bool("headless", false, "render offscreen instead of opening a window")
		frames      = fs.Uint64("frames", 0, "stop after this many presented frames")
		snapshotDir = fs.String("snapshot-dir", "", "write presented frames as PNG files into this directory")
		cycle       = fs.Duration("cycle", 0, "advance to the next filter at this interval")
		logLevel    = fs.String("log-level", "", "log level: debug, info, warn or error")
		preset      = fs.String("preset", "", "capture preset: vga640x480, hd1280x720 or hd1920x1080")
		fps         = fs.Float64("fps", 0, "target capture frame rate")
		portrait    = fs.Bool("portrait", true, "rotate the camera image to portrait")
		check       = fs.Bool("check", false, "compile every filter and exit")
	)
	if err := fs.Parse(args); err != nil {
		return Config{}, false, err
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return cfg, false, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			cfg.Backend = *backendName
		case "source":
			cfg.Source = *sourceName
		case "device":
			cfg.Device = *device
		case "headless":
			cfg.Headless = *headless
		case "frames":
			cfg.Frames = *frames
		case "snapshot-dir":
			cfg.SnapshotDir = *snapshotDir
		case "cycle":
			cfg.Cycle = Duration(*cycle)
		case "log-level":
			cfg.LogLevel = *logLevel
		case "preset":
			cfg.Preset = *preset
		case "fps":
			cfg.FrameRate = *fps
		case "portrait":
			cfg.Portrait = *portrait
		}
	})
	if err := cfg.Validate(); err != nil {
		return cfg, false, err
	}
	return cfg, *check, nil
}

func openDevice(name string) (gpucore.Device, string, error) {
	if name == "auto" {
		return backend.OpenDefault()
	}
	dev, err := backend.Open(name)
	return dev, name, err
}

func openSource(cfg Config) (capture.Source, error) {
	if cfg.Source == "camera" {
		return openCamera(cfg.Device)
	}
	return capture.NewSynthetic(), nil
}

func openSurface(cfg Config, dev gpucore.Device, width, height int,
	advance func(), overlay func() string,
) (app.Surface, error) {
	opts := cfg.SurfaceOptions()
	if cfg.SnapshotDir != "" {
		snap, err := newSnapshotter(cfg.SnapshotDir, cfg.SnapshotEvery)
		if err != nil {
			return nil, err
		}
		opts = append(opts, display.WithOnPresent(snap.present))
	}
	if cfg.Headless {
		return display.NewOffscreen(dev, width, height, opts...)
	}
	return openWindow(dev, width, height, advance, overlay, opts)
}
