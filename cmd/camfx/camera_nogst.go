//go:build !gst

package main

import (
	"errors"

	"github.com/gogpu/camfx/capture"
)

func openCamera(string) (capture.Source, error) {
	return nil, errors.New("camera capture needs a build with -tags gst")
}
