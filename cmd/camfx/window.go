//go:build !headless

package main

import (
	"github.com/gogpu/camfx/app"
	"github.com/gogpu/camfx/display"
	"github.com/gogpu/camfx/display/window"
	"github.com/gogpu/camfx/gpucore"
)

func openWindow(dev gpucore.Device, width, height int, advance func(), overlay func() string,
	opts []display.Option,
) (app.Surface, error) {
	return window.New(dev, width, height,
		window.WithTitle("camfx"),
		window.WithOnAdvance(advance),
		window.WithOverlay(overlay),
		window.WithSurfaceOptions(opts...),
	)
}
