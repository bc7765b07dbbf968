// Package texture manages the single image texture a renderer draws from.
//
// The Manager owns at most one live texture at a time. Uploads replace it:
// a texture of the same size is rewritten in place, otherwise the old one is
// deleted and a new one created. The Manager is not safe for concurrent use
// and is meant to be driven from the rendering goroutine, usually from a
// deferred task.
package texture

import (
	"fmt"

	"github.com/gogpu/gpuimage/gpucore"
)

// Handle refers to an uploaded texture. The zero value is None.
type Handle struct {
	id     gpucore.TextureID
	width  int
	height int
}

// None is the handle of "no image".
var None = Handle{}

// NewHandle wraps an existing texture, for example a stream texture.
func NewHandle(id gpucore.TextureID, width, height int) Handle {
	if !id.Valid() {
		return None
	}
	return Handle{id: id, width: width, height: height}
}

// Valid reports whether h refers to a texture.
func (h Handle) Valid() bool { return h.id.Valid() }

// ID returns the backend texture ID, gpucore.InvalidID for None.
func (h Handle) ID() gpucore.TextureID { return h.id }

// Width returns the texture width in pixels, padding included.
func (h Handle) Width() int { return h.width }

// Height returns the texture height in pixels.
func (h Handle) Height() int { return h.height }

// String implements fmt.Stringer.
func (h Handle) String() string {
	if !h.Valid() {
		return "texture(none)"
	}
	return fmt.Sprintf("texture(%d %dx%d)", h.id, h.width, h.height)
}
