package gpuimage

import (
	"fmt"

	"github.com/gogpu/gpuimage/geometry"
)

// State is the lifecycle state of a Renderer's drawing surface.
type State int32

// Renderer states, in the order a host drives them.
const (
	StateUninitialized State = iota
	StateSurfaceReady
	StateSurfaceSized
	StateRendering
	StateReleased
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSurfaceReady:
		return "surface-ready"
	case StateSurfaceSized:
		return "surface-sized"
	case StateRendering:
		return "rendering"
	case StateReleased:
		return "released"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Color is an opaque RGB background color, channels in [0, 1].
type Color struct {
	R, G, B float32
}

// RenderState is the scalar configuration the geometry is computed from.
type RenderState struct {
	OutputWidth  int
	OutputHeight int
	ImageWidth   int
	ImageHeight  int

	// AddedPadding is 1 when the current image had an odd width and was
	// padded by one transparent column.
	AddedPadding int

	Rotation       geometry.Rotation
	FlipHorizontal bool
	FlipVertical   bool
	ScaleType      geometry.ScaleType
	Background     Color
}

// params returns the geometry inputs of s.
func (s *RenderState) params() geometry.Params {
	return geometry.Params{
		OutputWidth:    s.OutputWidth,
		OutputHeight:   s.OutputHeight,
		ImageWidth:     s.ImageWidth,
		ImageHeight:    s.ImageHeight,
		Rotation:       s.Rotation,
		FlipHorizontal: s.FlipHorizontal,
		FlipVertical:   s.FlipVertical,
		ScaleType:      s.ScaleType,
	}
}

// config holds the fields producers set; the rest of RenderState is
// owned by the rendering goroutine.
type config struct {
	rotation       geometry.Rotation
	flipHorizontal bool
	flipVertical   bool
	scaleType      geometry.ScaleType
	background     Color
}

func (s *RenderState) apply(c config) {
	s.Rotation = c.rotation
	s.FlipHorizontal = c.flipHorizontal
	s.FlipVertical = c.flipVertical
	s.ScaleType = c.scaleType
	s.Background = c.background
}
