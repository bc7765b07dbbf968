package geometry

import (
	"fmt"
	"strings"
)

// Rotation is a clockwise image rotation in multiples of 90 degrees.
type Rotation uint8

// Supported rotations.
const (
	Normal Rotation = iota
	Rotation90
	Rotation180
	Rotation270
)

// FromDegrees converts an angle to a Rotation. Any multiple of 90 is
// accepted, negative angles included.
func FromDegrees(deg int) (Rotation, error) {
	if deg%90 != 0 {
		return Normal, fmt.Errorf("geometry: rotation %d is not a multiple of 90", deg)
	}
	steps := (deg / 90) % 4
	if steps < 0 {
		steps += 4
	}
	return Rotation(steps), nil
}

// Degrees returns the rotation angle in degrees.
func (r Rotation) Degrees() int {
	return int(r%4) * 90
}

// Add returns r rotated further by deg degrees (a multiple of 90).
func (r Rotation) Add(deg int) Rotation {
	d, err := FromDegrees(r.Degrees() + deg)
	if err != nil {
		return r
	}
	return d
}

// SwapsAxes reports whether the rotation exchanges width and height.
func (r Rotation) SwapsAxes() bool {
	return r == Rotation90 || r == Rotation270
}

// String returns the rotation in degrees, for example "90".
func (r Rotation) String() string {
	return fmt.Sprintf("%d", r.Degrees())
}

// ScaleType selects how an image is fitted into the output viewport.
type ScaleType uint8

const (
	// CenterCrop fills the viewport and crops the overflow. This is the
	// renderer default.
	CenterCrop ScaleType = iota

	// Fit shows the whole image and leaves the rest of the viewport at
	// the background color.
	Fit
)

// String returns the scale type name.
func (s ScaleType) String() string {
	switch s {
	case CenterCrop:
		return "center_crop"
	case Fit:
		return "fit"
	default:
		return fmt.Sprintf("ScaleType(%d)", uint8(s))
	}
}

// ParseScaleType parses "fit" or "center_crop" (also "crop", "centercrop").
func ParseScaleType(s string) (ScaleType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "center_crop", "centercrop", "crop":
		return CenterCrop, nil
	case "fit":
		return Fit, nil
	default:
		return CenterCrop, fmt.Errorf("geometry: unknown scale type %q", s)
	}
}
