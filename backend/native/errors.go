package native

import "errors"

// Package errors for the native backend.
var (
	// ErrNoGPU is returned when no hardware adapter is available.
	ErrNoGPU = errors.New("native: no GPU adapter available")

	// ErrNilHALDevice is returned when a device or queue is missing.
	ErrNilHALDevice = errors.New("native: HAL device is nil")

	// ErrNoHALAccess is returned by NewFromProvider when the provider does
	// not expose its HAL device and queue.
	ErrNoHALAccess = errors.New("native: provider does not expose HAL device")

	// ErrClosed is returned for operations after Close.
	ErrClosed = errors.New("native: device closed")
)
