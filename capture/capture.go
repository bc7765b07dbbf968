// Package capture connects camera-like frame producers to a renderer.
//
// A [Source] produces preview frames and hands them to a [Listener],
// typically a gpuimage.Renderer. Frames arrive as NV21 (YUV 4:2:0 with
// interleaved VU, the Android camera default) and are turned into RGBA by
// a [Converter] on the rendering goroutine before upload.
package capture

import (
	"errors"

	"github.com/gogpu/gpuimage/gpucore"
)

// Errors returned by sources and converters.
var (
	// ErrFrameSize is returned when a frame buffer is smaller than its
	// dimensions require.
	ErrFrameSize = errors.New("capture: frame buffer too small")

	// ErrAlreadyStarted is returned by StartPreview on a running source.
	ErrAlreadyStarted = errors.New("capture: preview already started")

	// ErrClosed is returned when using a converter after Close.
	ErrClosed = errors.New("capture: converter closed")
)

// Listener receives preview frames. The listener owns data after the call
// and may keep it; sources allocate a new buffer per frame.
type Listener interface {
	OnPreviewFrame(data []byte, width, height int)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(data []byte, width, height int)

// OnPreviewFrame implements Listener.
func (f ListenerFunc) OnPreviewFrame(data []byte, width, height int) { f(data, width, height) }

// Source is a camera-like frame producer.
type Source interface {
	// SetPreviewTexture attaches the stream texture that receives frames
	// on the GPU side. It may be nil.
	SetPreviewTexture(st gpucore.StreamTexture) error

	// SetPreviewCallback sets the listener called for every frame.
	SetPreviewCallback(l Listener)

	// StartPreview starts producing frames.
	StartPreview() error

	// StopPreview stops producing frames and waits for the last callback
	// to return.
	StopPreview()
}

// Converter turns a YUV frame into tightly packed RGBA.
type Converter interface {
	// Convert writes width*height RGBA pixels into dst.
	Convert(yuv []byte, width, height int, dst []byte) error
}

// NV21Size returns the number of bytes in a width x height NV21 frame.
func NV21Size(width, height int) int {
	if width <= 0 || height <= 0 {
		return 0
	}
	return width*height + 2*((width+1)/2)*((height+1)/2)
}
