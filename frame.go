package camfx

import (
	"fmt"
	"time"
)

// PixelFormat identifies the memory layout of a frame.
type PixelFormat uint8

const (
	// FormatBGRA8 is 8-bit blue, green, red, alpha, one byte each.
	FormatBGRA8 PixelFormat = iota + 1
)

// String returns the format name.
func (f PixelFormat) String() string {
	switch f {
	case FormatBGRA8:
		return "BGRA8"
	default:
		return fmt.Sprintf("PixelFormat(%d)", uint8(f))
	}
}

// BytesPerPixel returns the pixel size of the format, or 0 if unknown.
func (f PixelFormat) BytesPerPixel() int {
	if f == FormatBGRA8 {
		return 4
	}
	return 0
}

// Frame is one captured image. The pixel storage belongs to the capture
// source; consumers must treat it as read-only and must not keep it beyond
// the draw it was converted for.
type Frame struct {
	// Pix holds Height rows of Stride bytes.
	Pix    []byte
	Stride int
	Width  int
	Height int
	Format PixelFormat

	// Timestamp is taken with time.Now and carries the monotonic clock reading.
	Timestamp time.Time

	// Seq increases by one per frame delivered by a source.
	Seq uint64

	// TraceID identifies the frame in logs.
	TraceID string
}

// NewFrame allocates a zeroed BGRA8 frame with a tight stride.
func NewFrame(width, height int) *Frame {
	return &Frame{
		Pix:    make([]byte, width*height*4),
		Stride: width * 4,
		Width:  width,
		Height: height,
		Format: FormatBGRA8,
	}
}

// Validate checks that the frame geometry is consistent with its storage.
func (f *Frame) Validate() error {
	if f == nil {
		return fmt.Errorf("camfx: nil frame")
	}
	bpp := f.Format.BytesPerPixel()
	if bpp == 0 {
		return fmt.Errorf("camfx: unsupported pixel format %v", f.Format)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("camfx: invalid frame size %dx%d", f.Width, f.Height)
	}
	if f.Stride < f.Width*bpp {
		return fmt.Errorf("camfx: stride %d too small for width %d", f.Stride, f.Width)
	}
	if len(f.Pix) < f.Stride*(f.Height-1)+f.Width*bpp {
		return fmt.Errorf("camfx: pixel buffer too small: %d bytes for %dx%d stride %d",
			len(f.Pix), f.Width, f.Height, f.Stride)
	}
	return nil
}

// PixOffset returns the index of the first byte of pixel (x, y).
func (f *Frame) PixOffset(x, y int) int {
	return y*f.Stride + x*4
}
