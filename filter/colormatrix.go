package filter

import (
	"fmt"
	"math"
	"sync"

	"github.com/gogpu/gpuimage/gpucore"
)

// ColorMatrix applies a 4x5 color transformation matrix to every pixel.
// The transformation is:
//
//	[R']   [a00 a01 a02 a03 a04]   [R]
//	[G'] = [a10 a11 a12 a13 a14] * [G]
//	[B']   [a20 a21 a22 a23 a24]   [B]
//	[A']   [a30 a31 a32 a33 a34]   [A]
//	                               [1]
//
// Color values are in the [0, 255] range during the transformation, on
// straight (non-premultiplied) alpha, and clamped afterwards. The fifth
// column holds the bias.
type ColorMatrix struct {
	Base

	label string

	mu     sync.Mutex
	matrix [20]float32
}

// IdentityMatrix leaves colors unchanged.
var IdentityMatrix = [20]float32{
	1, 0, 0, 0, 0, // R
	0, 1, 0, 0, 0, // G
	0, 0, 1, 0, 0, // B
	0, 0, 0, 1, 0, // A
}

// NewColorMatrix returns a color matrix filter.
func NewColorMatrix(matrix [20]float32) *ColorMatrix {
	return newNamedColorMatrix("colormatrix", matrix)
}

func newNamedColorMatrix(name string, matrix [20]float32) *ColorMatrix {
	f := &ColorMatrix{label: name, matrix: matrix}
	f.Init(colorMatrixSource(name, &matrix))
	return f
}

// Matrix returns the matrix most recently set.
func (f *ColorMatrix) Matrix() [20]float32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.matrix
}

// SetMatrix replaces the matrix. Safe to call from any goroutine: the
// program is rebuilt at the start of the next draw.
func (f *ColorMatrix) SetMatrix(matrix [20]float32) {
	f.mu.Lock()
	f.matrix = matrix
	f.mu.Unlock()

	f.RunOnDraw(func() error {
		return f.SetSource(colorMatrixSource(f.label, &matrix))
	})
}

// Multiply returns the matrix that applies a first, then b.
func Multiply(a, b [20]float32) [20]float32 {
	var r [20]float32
	for row := range 4 {
		for col := range 4 {
			var sum float32
			for k := range 4 {
				sum += b[row*5+k] * a[k*5+col]
			}
			r[row*5+col] = sum
		}
		r[row*5+4] = b[row*5+0]*a[4] + b[row*5+1]*a[9] +
			b[row*5+2]*a[14] + b[row*5+3]*a[19] + b[row*5+4]
	}
	return r
}

// NewGrayscale converts to grayscale with Rec. 709 luminance weights.
func NewGrayscale() *ColorMatrix {
	return newNamedColorMatrix("grayscale", SaturationMatrix(0))
}

// NewSepia applies a sepia tone.
func NewSepia() *ColorMatrix {
	return newNamedColorMatrix("sepia", [20]float32{
		0.393, 0.769, 0.189, 0, 0,
		0.349, 0.686, 0.168, 0, 0,
		0.272, 0.534, 0.131, 0, 0,
		0, 0, 0, 1, 0,
	})
}

// NewInvert inverts colors.
func NewInvert() *ColorMatrix {
	return newNamedColorMatrix("invert", [20]float32{
		-1, 0, 0, 0, 255,
		0, -1, 0, 0, 255,
		0, 0, -1, 0, 255,
		0, 0, 0, 1, 0,
	})
}

// NewBrightness scales brightness.
// factor: 0.0 = black, 1.0 = unchanged, 2.0 = twice as bright
func NewBrightness(factor float32) *ColorMatrix {
	return newNamedColorMatrix("brightness", BrightnessMatrix(factor))
}

// BrightnessMatrix returns the matrix used by NewBrightness.
func BrightnessMatrix(factor float32) [20]float32 {
	return [20]float32{
		factor, 0, 0, 0, 0,
		0, factor, 0, 0, 0,
		0, 0, factor, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// NewContrast adjusts contrast around mid gray.
// factor: 0.0 = gray, 1.0 = unchanged, 2.0 = high contrast
func NewContrast(factor float32) *ColorMatrix {
	return newNamedColorMatrix("contrast", ContrastMatrix(factor))
}

// ContrastMatrix returns the matrix used by NewContrast.
func ContrastMatrix(factor float32) [20]float32 {
	// (color - 128) * factor + 128
	offset := 128 * (1 - factor)
	return [20]float32{
		factor, 0, 0, 0, offset,
		0, factor, 0, 0, offset,
		0, 0, factor, 0, offset,
		0, 0, 0, 1, 0,
	}
}

// NewSaturation adjusts color saturation.
// factor: 0.0 = grayscale, 1.0 = unchanged, 2.0 = oversaturated
func NewSaturation(factor float32) *ColorMatrix {
	return newNamedColorMatrix("saturation", SaturationMatrix(factor))
}

// SaturationMatrix returns the matrix used by NewSaturation.
func SaturationMatrix(factor float32) [20]float32 {
	// Rec. 709
	const (
		lumR = 0.2126
		lumG = 0.7152
		lumB = 0.0722
	)
	inv := 1 - factor
	return [20]float32{
		lumR*inv + factor, lumG * inv, lumB * inv, 0, 0,
		lumR * inv, lumG*inv + factor, lumB * inv, 0, 0,
		lumR * inv, lumG * inv, lumB*inv + factor, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// NewHueRotate rotates hue by degrees.
func NewHueRotate(degrees float32) *ColorMatrix {
	return newNamedColorMatrix("hue", HueRotateMatrix(degrees))
}

// HueRotateMatrix returns the matrix used by NewHueRotate.
func HueRotateMatrix(degrees float32) [20]float32 {
	rad := float64(degrees) * math.Pi / 180
	cos := float32(math.Cos(rad))
	sin := float32(math.Sin(rad))

	const (
		lumR = 0.213
		lumG = 0.715
		lumB = 0.072
	)
	return [20]float32{
		lumR + cos*(1-lumR) + sin*(-lumR), lumG + cos*(-lumG) + sin*(-lumG), lumB + cos*(-lumB) + sin*(1-lumB), 0, 0,
		lumR + cos*(-lumR) + sin*(0.143), lumG + cos*(1-lumG) + sin*(0.140), lumB + cos*(-lumB) + sin*(-0.283), 0, 0,
		lumR + cos*(-lumR) + sin*(-(1 - lumR)), lumG + cos*(-lumG) + sin*(lumG), lumB + cos*(1-lumB) + sin*(lumB), 0, 0,
		0, 0, 0, 1, 0,
	}
}

// NewOpacity multiplies alpha by factor.
func NewOpacity(factor float32) *ColorMatrix {
	return newNamedColorMatrix("opacity", [20]float32{
		1, 0, 0, 0, 0,
		0, 1, 0, 0, 0,
		0, 0, 1, 0, 0,
		0, 0, 0, factor, 0,
	})
}

// colorMatrixKernel returns the CPU form of the color matrix program.
func colorMatrixKernel(m [20]float32) gpucore.Kernel {
	return func(pr, pg, pb, a float32) (float32, float32, float32, float32) {
		// Un-premultiply into [0, 255].
		var r, g, b float32
		if a > 0 {
			r = pr / a * 255
			g = pg / a * 255
			b = pb / a * 255
		}
		a255 := a * 255

		nr := m[0]*r + m[1]*g + m[2]*b + m[3]*a255 + m[4]
		ng := m[5]*r + m[6]*g + m[7]*b + m[8]*a255 + m[9]
		nb := m[10]*r + m[11]*g + m[12]*b + m[13]*a255 + m[14]
		na := m[15]*r + m[16]*g + m[17]*b + m[18]*a255 + m[19]

		na = clamp01(na / 255)
		return clamp01(nr/255) * na, clamp01(ng/255) * na, clamp01(nb/255) * na, na
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// String implements fmt.Stringer.
func (f *ColorMatrix) String() string {
	return fmt.Sprintf("filter.ColorMatrix(%s)", f.label)
}
