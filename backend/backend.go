package backend

import (
	"errors"

	"github.com/gogpu/gpuimage/gpucore"
)

// Backend names.
const (
	NameNative   = "native"
	NameGLES     = "gles"
	NameSoftware = "software"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not
	// registered or no backend could create a device.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Factory creates a device. Factories are called on the goroutine that will
// own the device.
type Factory func() (gpucore.Device, error)
