package filter

import (
	_ "embed"
	"strconv"
	"strings"
	"text/template"

	"github.com/gogpu/gpuimage/gpucore"
)

// Embedded shader sources.

//go:embed shaders/passthrough.vert
var passthroughVertexGLSL string

//go:embed shaders/passthrough.frag
var passthroughFragmentGLSL string

//go:embed shaders/passthrough.wgsl
var passthroughWGSL string

//go:embed shaders/colormatrix.frag.tmpl
var colorMatrixFragmentTemplate string

//go:embed shaders/colormatrix.wgsl.tmpl
var colorMatrixWGSLTemplate string

var (
	colorMatrixFragment = template.Must(template.New("colormatrix.frag").Parse(colorMatrixFragmentTemplate))
	colorMatrixWGSL     = template.Must(template.New("colormatrix.wgsl").Parse(colorMatrixWGSLTemplate))
)

// DefaultVertexGLSL is the vertex shader shared by the bundled filters.
// It passes the quad through and forwards the texture coordinate.
func DefaultVertexGLSL() string { return passthroughVertexGLSL }

// PassthroughSource returns the program of the identity filter.
func PassthroughSource() gpucore.ProgramSource {
	return gpucore.ProgramSource{
		Name:         "passthrough",
		VertexGLSL:   passthroughVertexGLSL,
		FragmentGLSL: passthroughFragmentGLSL,
		WGSL:         passthroughWGSL,
	}
}

// matrixArgs holds a color matrix in shader constructor form: four
// column-major columns of the linear part, and the bias in [0, 1].
type matrixArgs struct {
	Columns string
	Bias    string
}

func newMatrixArgs(m *[20]float32) matrixArgs {
	cols := make([]string, 0, 16)
	for col := range 4 {
		for row := range 4 {
			cols = append(cols, shaderFloat(m[row*5+col]))
		}
	}
	bias := make([]string, 0, 4)
	for row := range 4 {
		bias = append(bias, shaderFloat(m[row*5+4]/255))
	}
	return matrixArgs{
		Columns: strings.Join(cols, ", "),
		Bias:    strings.Join(bias, ", "),
	}
}

func colorMatrixSource(name string, m *[20]float32) gpucore.ProgramSource {
	args := newMatrixArgs(m)
	return gpucore.ProgramSource{
		Name:         name,
		VertexGLSL:   passthroughVertexGLSL,
		FragmentGLSL: execute(colorMatrixFragment, args),
		WGSL:         execute(colorMatrixWGSL, args),
		Kernel:       colorMatrixKernel(*m),
	}
}

func execute(t *template.Template, data any) string {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		// Templates are embedded and their data is plain strings.
		panic("filter: " + t.Name() + ": " + err.Error())
	}
	return sb.String()
}

// shaderFloat formats v as a float literal valid in both GLSL ES and WGSL.
func shaderFloat(v float32) string {
	s := strconv.FormatFloat(float64(v), 'f', -1, 32)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
