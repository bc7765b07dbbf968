//go:build gles

package gles

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"golang.org/x/mobile/gl"

	"github.com/gogpu/gpuimage/backend"
	"github.com/gogpu/gpuimage/gpucore"
)

// Attribute and uniform names every GLSL filter program declares.
const (
	attribPosition = "position"
	attribTexCoord = "inputTextureCoordinate"
	uniformTexture = "inputImageTexture"
)

// A quad vertex is position (x, y) followed by texture coordinate (u, v).
const (
	vertexStride = 4 * 4
	quadSize     = 4 * vertexStride
)

const (
	passthroughVertex = `attribute vec4 position;
attribute vec4 inputTextureCoordinate;
varying vec2 textureCoordinate;
void main() {
    gl_Position = position;
    textureCoordinate = inputTextureCoordinate.xy;
}`
	passthroughFragment = `varying highp vec2 textureCoordinate;
uniform sampler2D inputImageTexture;
void main() {
    gl_FragColor = texture2D(inputImageTexture, textureCoordinate);
}`
)

// Package errors.
var (
	// ErrNilContext is returned by New for a nil context.
	ErrNilContext = errors.New("gles: nil GL context")

	// ErrCompile is returned when a shader fails to compile.
	ErrCompile = errors.New("gles: shader compile failed")

	// ErrLink is returned when a program fails to link.
	ErrLink = errors.New("gles: program link failed")

	// ErrNoGLSL is returned for programs without GLSL sources.
	ErrNoGLSL = errors.New("gles: program has no GLSL source")
)

// Register registers ctx as the "gles" backend.
func Register(ctx gl.Context) {
	backend.Register(backend.NameGLES, func() (gpucore.Device, error) {
		return New(ctx)
	})
}

type texture struct {
	tex    gl.Texture
	width  int
	height int
	format gpucore.TextureFormat
}

type program struct {
	name     string
	prog     gl.Program
	position gl.Attrib
	texCoord gl.Attrib
	sampler  gl.Uniform
}

// Device is a gpucore.Device issuing OpenGL ES 2 calls.
type Device struct {
	mu       sync.Mutex
	ctx      gl.Context
	nextID   uint64
	textures map[gpucore.TextureID]*texture
	programs map[gpucore.ProgramID]*program
	current  gpucore.ProgramID

	passthrough *program
	quad        gl.Buffer
	viewport    [4]int

	logger atomic.Pointer[slog.Logger]
}

var _ gpucore.Device = (*Device)(nil)

// New wraps a current GL context.
func New(ctx gl.Context) (*Device, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	d := &Device{
		ctx:      ctx,
		nextID:   1,
		textures: make(map[gpucore.TextureID]*texture),
		programs: make(map[gpucore.ProgramID]*program),
		quad:     ctx.CreateBuffer(),
	}
	return d, nil
}

// SetLogger sets the device logger. Nil falls back to the backend logger.
func (d *Device) SetLogger(l *slog.Logger) {
	d.logger.Store(l)
}

func (d *Device) log() *slog.Logger {
	if l := d.logger.Load(); l != nil {
		return l
	}
	return backend.Logger()
}

// Close deletes every GL object the Device created.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, t := range d.textures {
		d.ctx.DeleteTexture(t.tex)
		delete(d.textures, id)
	}
	for id, p := range d.programs {
		d.ctx.DeleteProgram(p.prog)
		delete(d.programs, id)
	}
	if d.passthrough != nil {
		d.ctx.DeleteProgram(d.passthrough.prog)
		d.passthrough = nil
	}
	d.ctx.DeleteBuffer(d.quad)
}

func (d *Device) newID() uint64 {
	id := d.nextID
	d.nextID++
	return id
}

// CreateTexture implements gpucore.TextureStore.
func (d *Device) CreateTexture(width, height int, format gpucore.TextureFormat) (gpucore.TextureID, error) {
	if width <= 0 || height <= 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: %dx%d", gpucore.ErrInvalidSize, width, height)
	}
	if format.BytesPerPixel() != 4 {
		return gpucore.InvalidID, fmt.Errorf("gles: unsupported texture format %v", format)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	tex := d.ctx.CreateTexture()
	d.ctx.BindTexture(gl.TEXTURE_2D, tex)
	d.ctx.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	d.ctx.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	d.ctx.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	d.ctx.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	d.ctx.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, width, height, gl.RGBA, gl.UNSIGNED_BYTE, nil)

	id := gpucore.TextureID(d.newID())
	d.textures[id] = &texture{tex: tex, width: width, height: height, format: format}
	return id, nil
}

// WriteTexture implements gpucore.TextureStore. BGRA data is swizzled on
// the CPU; GLES 2 has no BGRA upload without an extension.
func (d *Device) WriteTexture(id gpucore.TextureID, width, height int, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("%w: %d", gpucore.ErrUnknownTexture, id)
	}
	return d.upload(t, width, height, data)
}

func (d *Device) upload(t *texture, width, height int, data []byte) error {
	if len(data) != width*height*4 {
		return fmt.Errorf("%w: got %d bytes, want %d", gpucore.ErrDataSize, len(data), width*height*4)
	}
	if t.width != width || t.height != height {
		return fmt.Errorf("%w: %dx%d into %dx%d texture", gpucore.ErrDataSize, width, height, t.width, t.height)
	}
	if t.format == gpucore.TextureFormatBGRA8Unorm {
		data = swizzle(data)
	}
	d.ctx.BindTexture(gl.TEXTURE_2D, t.tex)
	d.ctx.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, width, height, gl.RGBA, gl.UNSIGNED_BYTE, data)
	return nil
}

// swizzle returns a copy of BGRA data as RGBA.
func swizzle(bgra []byte) []byte {
	out := make([]byte, len(bgra))
	for i := 0; i+3 < len(bgra); i += 4 {
		out[i], out[i+1], out[i+2], out[i+3] = bgra[i+2], bgra[i+1], bgra[i], bgra[i+3]
	}
	return out
}

// DeleteTexture implements gpucore.TextureStore.
func (d *Device) DeleteTexture(id gpucore.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[id]
	if !ok {
		return
	}
	delete(d.textures, id)
	d.ctx.DeleteTexture(t.tex)
}

// SetClearColor implements gpucore.Device.
func (d *Device) SetClearColor(r, g, b, a float32) {
	d.ctx.ClearColor(r, g, b, a)
}

// SetDepthTest implements gpucore.Device.
func (d *Device) SetDepthTest(enabled bool) {
	if enabled {
		d.ctx.Enable(gl.DEPTH_TEST)
	} else {
		d.ctx.Disable(gl.DEPTH_TEST)
	}
}

// Clear implements gpucore.Device.
func (d *Device) Clear() {
	d.ctx.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// Viewport implements gpucore.Device.
func (d *Device) Viewport(x, y, width, height int) {
	d.mu.Lock()
	d.viewport = [4]int{x, y, width, height}
	d.mu.Unlock()
	d.ctx.Viewport(x, y, width, height)
}

// CreateProgram implements gpucore.Device.
func (d *Device) CreateProgram(src gpucore.ProgramSource) (gpucore.ProgramID, error) {
	if src.VertexGLSL == "" || src.FragmentGLSL == "" {
		return gpucore.InvalidID, fmt.Errorf("%w: %q", ErrNoGLSL, src.Name)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	p, err := d.link(src.Name, src.VertexGLSL, src.FragmentGLSL)
	if err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.ProgramID(d.newID())
	d.programs[id] = p
	d.log().Debug("gles: program linked", "name", src.Name, "id", uint64(id))
	return id, nil
}

func (d *Device) link(name, vertex, fragment string) (*program, error) {
	vs, err := d.compile(gl.VERTEX_SHADER, vertex)
	if err != nil {
		return nil, fmt.Errorf("%s vertex: %w", name, err)
	}
	defer d.ctx.DeleteShader(vs)
	fs, err := d.compile(gl.FRAGMENT_SHADER, fragment)
	if err != nil {
		return nil, fmt.Errorf("%s fragment: %w", name, err)
	}
	defer d.ctx.DeleteShader(fs)

	prog := d.ctx.CreateProgram()
	d.ctx.AttachShader(prog, vs)
	d.ctx.AttachShader(prog, fs)
	d.ctx.LinkProgram(prog)
	if d.ctx.GetProgrami(prog, gl.LINK_STATUS) == gl.FALSE {
		info := d.ctx.GetProgramInfoLog(prog)
		d.ctx.DeleteProgram(prog)
		return nil, fmt.Errorf("%w: %s: %s", ErrLink, name, info)
	}
	return &program{
		name:     name,
		prog:     prog,
		position: d.ctx.GetAttribLocation(prog, attribPosition),
		texCoord: d.ctx.GetAttribLocation(prog, attribTexCoord),
		sampler:  d.ctx.GetUniformLocation(prog, uniformTexture),
	}, nil
}

func (d *Device) compile(ty gl.Enum, src string) (gl.Shader, error) {
	s := d.ctx.CreateShader(ty)
	d.ctx.ShaderSource(s, src)
	d.ctx.CompileShader(s)
	if d.ctx.GetShaderi(s, gl.COMPILE_STATUS) == gl.FALSE {
		info := d.ctx.GetShaderInfoLog(s)
		d.ctx.DeleteShader(s)
		return gl.Shader{}, fmt.Errorf("%w: %s", ErrCompile, info)
	}
	return s, nil
}

// DeleteProgram implements gpucore.Device.
func (d *Device) DeleteProgram(id gpucore.ProgramID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.programs[id]
	if !ok {
		return
	}
	delete(d.programs, id)
	if d.current == id {
		d.current = gpucore.InvalidID
	}
	d.ctx.DeleteProgram(p.prog)
}

// UseProgram implements gpucore.Device.
func (d *Device) UseProgram(id gpucore.ProgramID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.programs[id]
	if !ok {
		return
	}
	d.current = id
	d.ctx.UseProgram(p.prog)
}

func (d *Device) programFor(id gpucore.ProgramID) (*program, error) {
	if id != gpucore.InvalidID {
		p, ok := d.programs[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", gpucore.ErrUnknownProgram, id)
		}
		return p, nil
	}
	if d.passthrough == nil {
		p, err := d.link("passthrough", passthroughVertex, passthroughFragment)
		if err != nil {
			return nil, err
		}
		d.passthrough = p
	}
	return d.passthrough, nil
}

// DrawQuad implements gpucore.Device.
func (d *Device) DrawQuad(q gpucore.DrawQuad) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[q.Texture]
	if !ok {
		return fmt.Errorf("%w: %d", gpucore.ErrUnknownTexture, q.Texture)
	}
	p, err := d.programFor(q.Program)
	if err != nil {
		return err
	}

	ctx := d.ctx
	ctx.UseProgram(p.prog)
	ctx.ActiveTexture(gl.TEXTURE0)
	ctx.BindTexture(gl.TEXTURE_2D, t.tex)
	ctx.Uniform1i(p.sampler, 0)

	ctx.BindBuffer(gl.ARRAY_BUFFER, d.quad)
	ctx.BufferData(gl.ARRAY_BUFFER, quadBytes(q), gl.DYNAMIC_DRAW)
	ctx.EnableVertexAttribArray(p.position)
	ctx.VertexAttribPointer(p.position, 2, gl.FLOAT, false, vertexStride, 0)
	ctx.EnableVertexAttribArray(p.texCoord)
	ctx.VertexAttribPointer(p.texCoord, 2, gl.FLOAT, false, vertexStride, 8)

	ctx.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)

	ctx.DisableVertexAttribArray(p.position)
	ctx.DisableVertexAttribArray(p.texCoord)
	ctx.BindTexture(gl.TEXTURE_2D, gl.Texture{})

	if code := ctx.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("gles: draw %s: GL error 0x%04x", p.name, uint32(code))
	}
	// Restore the program the caller made current.
	if cur, ok := d.programs[d.current]; ok && cur != p {
		ctx.UseProgram(cur.prog)
	}
	return nil
}

// quadBytes interleaves the quad corners with their texture coordinates.
func quadBytes(q gpucore.DrawQuad) []byte {
	b := make([]byte, quadSize)
	for i := range 4 {
		off := i * vertexStride
		binary.LittleEndian.PutUint32(b[off:], math.Float32bits(q.Vertices[2*i]))
		binary.LittleEndian.PutUint32(b[off+4:], math.Float32bits(q.Vertices[2*i+1]))
		binary.LittleEndian.PutUint32(b[off+8:], math.Float32bits(q.TexCoords[2*i]))
		binary.LittleEndian.PutUint32(b[off+12:], math.Float32bits(q.TexCoords[2*i+1]))
	}
	return b
}

// Framebuffer reads the current viewport back, top row first.
func (d *Device) Framebuffer() *image.RGBA {
	d.mu.Lock()
	vp := d.viewport
	d.mu.Unlock()
	if vp[2] <= 0 || vp[3] <= 0 {
		return nil
	}
	w, h := vp[2], vp[3]
	buf := make([]byte, w*h*4)
	d.ctx.ReadPixels(buf, vp[0], vp[1], w, h, gl.RGBA, gl.UNSIGNED_BYTE)

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for row := range h {
		src := buf[(h-1-row)*w*4 : (h-row)*w*4]
		copy(img.Pix[row*img.Stride:], src)
	}
	return img
}
