package gpucore

// Resource IDs
//
// These opaque IDs represent GPU resources. Each backend maintains a
// mapping between IDs and actual resources. IDs are uint64 to accommodate
// various backend handle sizes.

// TextureID is an opaque handle to a GPU texture.
type TextureID uint64

// ProgramID is an opaque handle to a linked shader program.
type ProgramID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// Valid reports whether id refers to a texture.
func (id TextureID) Valid() bool { return id != InvalidID }

// Valid reports whether id refers to a program.
func (id ProgramID) Valid() bool { return id != InvalidID }

// TextureFormat specifies the format of texture data.
type TextureFormat uint32

// Texture formats.
const (
	// TextureFormatRGBA8Unorm is 8-bit RGBA, normalized unsigned integer.
	// Every upload performed by the renderer uses this format.
	TextureFormatRGBA8Unorm TextureFormat = iota + 1

	// TextureFormatBGRA8Unorm is 8-bit BGRA, normalized unsigned integer.
	TextureFormatBGRA8Unorm
)

// BytesPerPixel returns the number of bytes per pixel for the format.
func (f TextureFormat) BytesPerPixel() int {
	switch f {
	case TextureFormatRGBA8Unorm, TextureFormatBGRA8Unorm:
		return 4
	default:
		return 0
	}
}

// String returns the format name.
func (f TextureFormat) String() string {
	switch f {
	case TextureFormatRGBA8Unorm:
		return "RGBA8Unorm"
	case TextureFormatBGRA8Unorm:
		return "BGRA8Unorm"
	default:
		return "Unknown"
	}
}

// Kernel is the CPU equivalent of a fragment shader. It receives a sampled
// texel as stored (premultiplied RGBA, channels in [0, 1]) and returns the
// shaded texel in the same form. Backends that cannot run shader source (the software
// backend) apply the kernel instead.
type Kernel func(r, g, b, a float32) (float32, float32, float32, float32)

// ProgramSource carries every representation of a filter program.
// A backend picks the one it understands and ignores the rest.
type ProgramSource struct {
	// Name is a debug label.
	Name string

	// VertexGLSL and FragmentGLSL are GLSL ES 1.00 sources for the
	// OpenGL ES backend. The vertex shader must declare the attributes
	// "position" and "inputTextureCoordinate"; the fragment shader samples
	// "inputImageTexture".
	VertexGLSL   string
	FragmentGLSL string

	// WGSL is a single WGSL module with entry points vs_main and fs_main.
	// Binding 0 is the input texture, binding 1 its sampler.
	WGSL string

	// Kernel is the per-pixel CPU fallback. Nil means identity.
	Kernel Kernel
}

// DrawQuad describes one textured-quad draw.
//
// Vertices holds 4 corners (x, y) in normalized device coordinates in the
// order bottom-left, bottom-right, top-left, top-right. TexCoords holds the
// matching texture coordinates (u, v) in [0, 1], v pointing down the image.
type DrawQuad struct {
	Program   ProgramID
	Texture   TextureID
	Vertices  [8]float32
	TexCoords [8]float32
}
