package gpucore

import "errors"

// Common device errors.
var (
	// ErrUnknownTexture is returned when a TextureID does not name a live texture.
	ErrUnknownTexture = errors.New("gpucore: unknown texture")

	// ErrUnknownProgram is returned when a ProgramID does not name a live program.
	ErrUnknownProgram = errors.New("gpucore: unknown program")

	// ErrInvalidSize is returned for zero or negative texture dimensions.
	ErrInvalidSize = errors.New("gpucore: invalid texture size")

	// ErrDataSize is returned when uploaded pixel data does not match the
	// texture dimensions.
	ErrDataSize = errors.New("gpucore: pixel data size mismatch")

	// ErrStreamUnsupported is returned by backends without external
	// stream textures.
	ErrStreamUnsupported = errors.New("gpucore: stream textures not supported")
)

// TextureStore is the part of a Device that owns 2D textures.
type TextureStore interface {
	// CreateTexture allocates a width x height texture.
	CreateTexture(width, height int, format TextureFormat) (TextureID, error)

	// WriteTexture replaces the full contents of a texture. data is tightly
	// packed, width*height*BytesPerPixel bytes, top row first.
	WriteTexture(id TextureID, width, height int, data []byte) error

	// DeleteTexture releases a texture. Unknown IDs are ignored.
	DeleteTexture(id TextureID)
}

// Device is the GPU context a renderer draws with.
type Device interface {
	TextureStore

	// SetClearColor sets the color used by Clear.
	SetClearColor(r, g, b, a float32)

	// SetDepthTest enables or disables depth testing.
	SetDepthTest(enabled bool)

	// Clear fills the viewport with the clear color.
	Clear()

	// Viewport sets the drawing rectangle in framebuffer pixels. The first
	// call also sizes the framebuffer.
	Viewport(x, y, width, height int)

	// CreateProgram compiles and links a filter program.
	CreateProgram(src ProgramSource) (ProgramID, error)

	// DeleteProgram releases a program. Unknown IDs are ignored.
	DeleteProgram(id ProgramID)

	// UseProgram makes a program current.
	UseProgram(id ProgramID)

	// DrawQuad draws one textured quad.
	DrawQuad(q DrawQuad) error

	// NewStreamTexture creates a texture fed by an external producer such
	// as a camera.
	NewStreamTexture() (StreamTexture, error)
}

// StreamTexture is a texture whose contents are produced outside the
// renderer, typically a camera preview.
type StreamTexture interface {
	// ID returns the texture that holds the latest frame.
	ID() TextureID

	// UpdateTexImage latches the most recent frame into the texture.
	UpdateTexImage() error

	// Release frees the stream and its texture.
	Release()
}

// StreamWriter is implemented by stream textures that accept frames pushed
// from the host side.
type StreamWriter interface {
	// WriteFrame queues an RGBA frame. It is picked up by the next
	// UpdateTexImage. Safe to call from any goroutine.
	WriteFrame(rgba []byte, width, height int) error
}
