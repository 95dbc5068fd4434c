//go:build headless

package main

import (
	"errors"

	"github.com/gogpu/camfx/app"
	"github.com/gogpu/camfx/display"
	"github.com/gogpu/camfx/gpucore"
)

func openWindow(gpucore.Device, int, int, func(), func() string, []display.Option) (app.Surface, error) {
	return nil, errors.New("built with -tags headless; run with -headless")
}
