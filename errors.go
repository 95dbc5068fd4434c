package camfx

import "errors"

// Error taxonomy. Concrete failures wrap one of these with fmt.Errorf("...: %w")
// so that callers classify them with errors.Is.
var (
	// ErrPermissionDenied is returned when the user refuses camera access.
	// It is user-visible and recoverable: access can be granted in the
	// system privacy settings and the application restarted.
	ErrPermissionDenied = errors.New("camfx: camera access denied; allow camera access for this application in the system privacy settings")

	// ErrCaptureConfiguration reports that the requested capture mode could
	// not be applied. The source keeps running in its default mode.
	ErrCaptureConfiguration = errors.New("camfx: capture configuration failed")

	// ErrConversion reports that a frame could not be turned into a GPU
	// texture view. The frame is skipped.
	ErrConversion = errors.New("camfx: frame conversion failed")

	// ErrPipelineCompilation reports that a compute program could not be
	// found or compiled. Fatal during startup.
	ErrPipelineCompilation = errors.New("camfx: compute pipeline compilation failed")

	// ErrDrawableUnavailable reports that no drawable could be acquired for
	// the current tick. The tick is skipped.
	ErrDrawableUnavailable = errors.New("camfx: drawable unavailable")

	// ErrClosed is returned by components used after Close.
	ErrClosed = errors.New("camfx: closed")
)

// Recoverable reports whether err is a per-frame or per-tick failure that
// leaves the pipeline running.
func Recoverable(err error) bool {
	return errors.Is(err, ErrConversion) ||
		errors.Is(err, ErrDrawableUnavailable) ||
		errors.Is(err, ErrCaptureConfiguration) ||
		errors.Is(err, ErrPermissionDenied)
}
