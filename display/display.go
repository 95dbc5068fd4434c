// Package display provides the surfaces processed frames are presented to.
//
// A surface hands out drawables, each backed by a device texture the
// compute pass writes into. The number of drawables in flight (acquired and
// not yet released after present) is bounded explicitly; when every
// drawable is in flight, NextDrawable waits up to the acquire timeout and
// then fails with camfx.ErrDrawableUnavailable so the render loop skips the
// tick instead of stalling.
package display

import (
	"context"
	"time"

	"github.com/gogpu/camfx/gpucore"
)

// Defaults for surface configuration.
const (
	DefaultMaxInFlight    = 3
	DefaultAcquireTimeout = time.Second
	DefaultTickInterval   = time.Second / 60
)

// Drawable is a presentable target for one render tick.
type Drawable interface {
	gpucore.Presentable

	// Release returns the drawable to its surface. It is called after the
	// command buffer that presents it has completed, whether or not the
	// work succeeded. Safe to call more than once.
	Release()
}

// Surface hands out drawables.
type Surface interface {
	// NextDrawable returns a free drawable, waiting at most the surface's
	// acquire timeout.
	NextDrawable(ctx context.Context) (Drawable, error)

	// Size returns the drawable size in pixels.
	Size() (width, height int)

	// MaxInFlight returns the in-flight bound.
	MaxInFlight() int

	// Close releases the drawables after the in-flight ones come back.
	Close() error
}

// Looper drives render ticks at a surface's cadence. Loop blocks until ctx
// is done or the surface is closed by the user.
type Looper interface {
	Loop(ctx context.Context, tick func(context.Context)) error
}

// Image is a presented frame: tightly packed BGRA8 rows.
type Image struct {
	Pix    []byte
	Width  int
	Height int
}

// PresentFunc receives every presented image. The pixel slice is reused
// for the next present of the same drawable and must be copied if kept.
type PresentFunc func(img Image) error
