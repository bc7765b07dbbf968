package software

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/naga"

	"github.com/gogpu/gpuimage/backend"
	"github.com/gogpu/gpuimage/gpucore"
	"github.com/gogpu/gpuimage/internal/cache"
	"github.com/gogpu/gpuimage/internal/parallel"
)

func init() {
	backend.Register(backend.NameSoftware, func() (gpucore.Device, error) {
		return New(), nil
	})
}

type program struct {
	name   string
	kernel gpucore.Kernel
}

// validation is a cached naga compile result.
type validation struct {
	err error
}

type texture struct {
	img    *image.RGBA
	format gpucore.TextureFormat
}

// Device is a CPU gpucore.Device. All methods are safe for concurrent use;
// Framebuffer in particular may be called from any goroutine.
type Device struct {
	mu       sync.Mutex
	nextID   uint64
	textures map[gpucore.TextureID]*texture
	programs map[gpucore.ProgramID]*program
	current  gpucore.ProgramID

	clearColor color.RGBA
	depthTest  bool
	viewport   image.Rectangle
	fb         *image.RGBA
	scratch    *image.RGBA

	pool      *parallel.WorkerPool
	validate  bool
	validated *cache.Cache[cache.Key, validation]

	logger atomic.Pointer[slog.Logger]
}

var _ gpucore.Device = (*Device)(nil)

// New returns a device with an empty framebuffer. The framebuffer is
// allocated by the first Viewport call.
func New(opts ...Option) *Device {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	d := &Device{
		nextID:     1,
		textures:   make(map[gpucore.TextureID]*texture),
		programs:   make(map[gpucore.ProgramID]*program),
		clearColor: color.RGBA{A: 255},
		pool:       parallel.NewWorkerPool(o.workers),
		validate:   o.validate,
		validated:  cache.New[cache.Key, validation](o.cacheCap, nil),
	}
	return d
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

// Close stops the kernel workers. Draws after Close run on the calling
// goroutine.
func (d *Device) Close() {
	d.pool.Close()
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
		return gpucore.InvalidID, fmt.Errorf("software: unsupported texture format %v", format)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	id := gpucore.TextureID(d.newID())
	d.textures[id] = &texture{
		img:    newRGBA(width, height),
		format: format,
	}
	return id, nil
}

// WriteTexture implements gpucore.TextureStore.
func (d *Device) WriteTexture(id gpucore.TextureID, width, height int, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeTexture(id, width, height, data)
}

func (d *Device) writeTexture(id gpucore.TextureID, width, height int, data []byte) error {
	t, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("%w: %d", gpucore.ErrUnknownTexture, id)
	}
	if b := t.img.Bounds(); b.Dx() != width || b.Dy() != height {
		return fmt.Errorf("%w: %dx%d into %dx%d texture", gpucore.ErrDataSize, width, height, b.Dx(), b.Dy())
	}
	if len(data) != width*height*4 {
		return fmt.Errorf("%w: %d bytes for %dx%d", gpucore.ErrDataSize, len(data), width, height)
	}
	copy(t.img.Pix, data)
	if t.format == gpucore.TextureFormatBGRA8Unorm {
		for i := 0; i < len(t.img.Pix); i += 4 {
			t.img.Pix[i], t.img.Pix[i+2] = t.img.Pix[i+2], t.img.Pix[i]
		}
	}
	return nil
}

// DeleteTexture implements gpucore.TextureStore.
func (d *Device) DeleteTexture(id gpucore.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.textures, id)
}

// Texture returns a copy of a texture's contents, or nil for an unknown id.
func (d *Device) Texture(id gpucore.TextureID) *image.RGBA {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[id]
	if !ok {
		return nil
	}
	return cloneRGBA(t.img)
}

// SetClearColor implements gpucore.Device.
func (d *Device) SetClearColor(r, g, b, a float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a8 := to8(a)
	// Stored premultiplied like every other pixel.
	d.clearColor = color.RGBA{
		R: to8(r * a),
		G: to8(g * a),
		B: to8(b * a),
		A: a8,
	}
}

// SetDepthTest implements gpucore.Device. Quads are drawn in submission
// order, so the flag is only recorded.
func (d *Device) SetDepthTest(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.depthTest = enabled
}

// DepthTest reports the last SetDepthTest value.
func (d *Device) DepthTest() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.depthTest
}

// Clear implements gpucore.Device.
func (d *Device) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fb == nil {
		return
	}
	draw.Draw(d.fb, d.viewport, image.NewUniform(d.clearColor), image.Point{}, draw.Src)
}

// Viewport implements gpucore.Device. The framebuffer is resized to
// (x+width) x (y+height); y counts from the bottom edge.
func (d *Device) Viewport(x, y, width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if width <= 0 || height <= 0 {
		d.viewport = image.Rectangle{}
		return
	}
	fw, fh := x+width, y+height
	if d.fb == nil || d.fb.Bounds().Dx() != fw || d.fb.Bounds().Dy() != fh {
		d.fb = image.NewRGBA(image.Rect(0, 0, fw, fh))
		d.log().Debug("software: framebuffer resized", "width", fw, "height", fh)
	}
	d.viewport = image.Rect(x, fh-y-height, x+width, fh-y)
}

// Framebuffer returns a copy of the framebuffer, or nil before the first
// Viewport call.
func (d *Device) Framebuffer() *image.RGBA {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fb == nil {
		return nil
	}
	return cloneRGBA(d.fb)
}

// CreateProgram implements gpucore.Device. Only the kernel is used for
// drawing; the WGSL source is compiled when validation is enabled.
func (d *Device) CreateProgram(src gpucore.ProgramSource) (gpucore.ProgramID, error) {
	if d.validate && src.WGSL != "" {
		v, _ := d.validated.GetOrCreate(cache.KeyOf(src.WGSL), func() (validation, error) {
			_, err := naga.Compile(src.WGSL)
			return validation{err: err}, nil
		})
		if v.err != nil {
			return gpucore.InvalidID, fmt.Errorf("software: program %q: %w", src.Name, v.err)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	id := gpucore.ProgramID(d.newID())
	d.programs[id] = &program{name: src.Name, kernel: src.Kernel}
	d.log().Debug("software: program created", "name", src.Name, "id", uint64(id))
	return id, nil
}

// DeleteProgram implements gpucore.Device.
func (d *Device) DeleteProgram(id gpucore.ProgramID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.programs, id)
	if d.current == id {
		d.current = gpucore.InvalidID
	}
}

// UseProgram implements gpucore.Device.
func (d *Device) UseProgram(id gpucore.ProgramID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current = id
}

// ValidationStats returns the hit statistics of the shader validation
// cache.
func (d *Device) ValidationStats() cache.Stats {
	return d.validated.Stats()
}

func newRGBA(width, height int) *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, width, height))
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}

func to8(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}
