//go:build gst

// Package gst captures camera frames through GStreamer.
//
// Configure queries the caps of the camera's v4l2src pad, parses them into
// capture.DeviceFormat values and selects a mode with capture.SelectFormat.
// The pipeline is then
//
//	v4l2src ! <mode caps> ! videoconvert ! [videoflip] ! videoscale ! videorate ! <BGRA caps> ! appsink
//
// where the mode caps are omitted when the configuration degraded and
// videoflip rotates the landscape sensor image for portrait output. The
// appsink keeps a single buffer. Each sample is copied into a fresh
// camfx.Frame because GStreamer recycles its buffers.
//
// Build with -tags gst; the package needs the GStreamer development headers.
// Mode parsing and negotiation build without it.
package gst
