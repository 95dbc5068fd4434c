package backend

import (
	"errors"

	"github.com/gogpu/camfx/gpucore"
)

// Backend name constants.
const (
	// BackendWGPU is the gogpu/wgpu HAL backend.
	BackendWGPU = "wgpu"
	// BackendSoftware is the CPU reference backend.
	BackendSoftware = "software"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not
	// registered or none could be opened.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Factory opens a new device.
type Factory func() (gpucore.Device, error)
