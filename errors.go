package gpuimage

import "errors"

// Renderer errors.
var (
	// ErrNoDevice is returned by New when no device was given and no
	// backend could create one.
	ErrNoDevice = errors.New("gpuimage: no device")

	// ErrCaptureSetup wraps failures of SetUpCapture.
	ErrCaptureSetup = errors.New("gpuimage: capture setup failed")

	// ErrNilSource is returned by SetUpCapture for a nil source.
	ErrNilSource = errors.New("gpuimage: nil capture source")

	// ErrReleased is returned when using a renderer after Release.
	ErrReleased = errors.New("gpuimage: renderer released")
)
