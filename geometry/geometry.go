package geometry

import "math"

// Quad holds 4 corners of 2 floats each (see the package documentation for
// the corner order).
type Quad [8]float32

// Cube is the canonical full-viewport vertex quad.
var Cube = Quad{
	-1, -1, // bottom-left
	1, -1, // bottom-right
	-1, 1, // top-left
	1, 1, // top-right
}

// Canonical texture coordinates for each rotation, without flips.
var (
	textureNoRotation = Quad{
		0, 1,
		1, 1,
		0, 0,
		1, 0,
	}
	textureRotated90 = Quad{
		1, 1,
		1, 0,
		0, 1,
		0, 0,
	}
	textureRotated180 = Quad{
		1, 0,
		0, 0,
		1, 1,
		0, 1,
	}
	textureRotated270 = Quad{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
	}
)

// TextureCoords returns the canonical texture-coordinate quad for a
// rotation and flip combination.
func TextureCoords(r Rotation, flipHorizontal, flipVertical bool) Quad {
	var q Quad
	switch r {
	case Rotation90:
		q = textureRotated90
	case Rotation180:
		q = textureRotated180
	case Rotation270:
		q = textureRotated270
	default:
		q = textureNoRotation
	}
	if flipHorizontal {
		for i := 0; i < len(q); i += 2 {
			q[i] = flip(q[i])
		}
	}
	if flipVertical {
		for i := 1; i < len(q); i += 2 {
			q[i] = flip(q[i])
		}
	}
	return q
}

// Rotate90 rotates texture coordinates a further 90 degrees clockwise.
// Rotate90(TextureCoords(r, false, false)) equals
// TextureCoords(r.Add(90), false, false).
func Rotate90(q Quad) Quad {
	var out Quad
	for i := 0; i < len(q); i += 2 {
		u, v := q[i], q[i+1]
		out[i] = v
		out[i+1] = 1 - u
	}
	return out
}

func flip(c float32) float32 {
	if c == 0 {
		return 1
	}
	return 0
}

// Params are the inputs of Compute.
type Params struct {
	OutputWidth    int
	OutputHeight   int
	ImageWidth     int
	ImageHeight    int
	Rotation       Rotation
	FlipHorizontal bool
	FlipVertical   bool
	ScaleType      ScaleType
}

// Valid reports whether both the output and the image sizes are known.
func (p Params) Valid() bool {
	return p.OutputWidth > 0 && p.OutputHeight > 0 && p.ImageWidth > 0 && p.ImageHeight > 0
}

// Scaling is the intermediate result of the aspect computation, exposed
// for diagnostics and tests.
type Scaling struct {
	// RatioMax is the scale that makes the image cover the output.
	RatioMax float32

	// RenderedWidth and RenderedHeight are the image size at RatioMax,
	// rounded to whole pixels.
	RenderedWidth  int
	RenderedHeight int

	// ScaledRatioWidth and ScaledRatioHeight relate the rendered size to
	// the (rotation-adjusted) output size. Both are >= 1 up to rounding.
	ScaledRatioWidth  float32
	ScaledRatioHeight float32
}

// Scale computes the cover scaling for p. ok is false when a size is zero.
func Scale(p Params) (s Scaling, ok bool) {
	if !p.Valid() {
		return Scaling{}, false
	}
	outW := float32(p.OutputWidth)
	outH := float32(p.OutputHeight)
	if p.Rotation.SwapsAxes() {
		outW, outH = outH, outW
	}

	ratioW := outW / float32(p.ImageWidth)
	ratioH := outH / float32(p.ImageHeight)
	s.RatioMax = max(ratioW, ratioH)

	s.RenderedWidth = int(math.Round(float64(float32(p.ImageWidth) * s.RatioMax)))
	s.RenderedHeight = int(math.Round(float64(float32(p.ImageHeight) * s.RatioMax)))

	s.ScaledRatioWidth = float32(s.RenderedWidth) / outW
	s.ScaledRatioHeight = float32(s.RenderedHeight) / outH
	return s, true
}

// Insets returns the horizontal and vertical texture-coordinate insets used
// by CenterCrop. Both are in [0, 0.5).
func (s Scaling) Insets() (horizontal, vertical float32) {
	return inset(s.ScaledRatioWidth), inset(s.ScaledRatioHeight)
}

func inset(ratio float32) float32 {
	if ratio <= 1 {
		return 0
	}
	return (1 - 1/ratio) / 2
}

// Compute returns the vertex and texture-coordinate quads for p.
// ok is false, and both quads are zero, when the output or image size is
// not known yet.
func Compute(p Params) (vertices, texCoords Quad, ok bool) {
	s, ok := Scale(p)
	if !ok {
		return Quad{}, Quad{}, false
	}

	vertices = Cube
	texCoords = TextureCoords(p.Rotation, p.FlipHorizontal, p.FlipVertical)

	switch p.ScaleType {
	case Fit:
		for i := 0; i < len(vertices); i += 2 {
			vertices[i] /= s.ScaledRatioHeight
			vertices[i+1] /= s.ScaledRatioWidth
		}
	default:
		h, v := s.Insets()
		for i := 0; i < len(texCoords); i += 2 {
			texCoords[i] = addDistance(texCoords[i], h)
			texCoords[i+1] = addDistance(texCoords[i+1], v)
		}
	}
	return vertices, texCoords, true
}

func addDistance(coordinate, distance float32) float32 {
	if coordinate == 0 {
		return distance
	}
	return 1 - distance
}

// Buffers holds the geometry currently used for drawing.
//
// Buffers is not safe for concurrent use. The renderer only touches it from
// the rendering goroutine, which also issues the draw calls.
type Buffers struct {
	vertices  Quad
	texCoords Quad
	params    Params
	valid     bool
}

// NewBuffers returns buffers holding the canonical cube and unrotated
// texture coordinates.
func NewBuffers() *Buffers {
	return &Buffers{
		vertices:  Cube,
		texCoords: textureNoRotation,
	}
}

// Update recomputes both quads from p. When p has a zero size the previous
// geometry is kept and Update returns false.
func (b *Buffers) Update(p Params) bool {
	vertices, texCoords, ok := Compute(p)
	if !ok {
		return false
	}
	b.vertices = vertices
	b.texCoords = texCoords
	b.params = p
	b.valid = true
	return true
}

// Vertices returns the vertex quad.
func (b *Buffers) Vertices() Quad { return b.vertices }

// TexCoords returns the texture-coordinate quad.
func (b *Buffers) TexCoords() Quad { return b.texCoords }

// Params returns the inputs of the last successful Update.
func (b *Buffers) Params() Params { return b.params }

// Computed reports whether Update has succeeded at least once.
func (b *Buffers) Computed() bool { return b.valid }
