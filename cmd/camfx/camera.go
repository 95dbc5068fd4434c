//go:build gst

package main

import (
	"github.com/gogpu/camfx/capture"
	"github.com/gogpu/camfx/capture/gst"
)

func openCamera(device string) (capture.Source, error) {
	return gst.New(device), nil
}
