package native

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpuimage/backend"
	"github.com/gogpu/gpuimage/gpucore"
	"github.com/gogpu/gpuimage/internal/cache"
)

// texture is a sampled texture with its view and lazily created bind group.
type texture struct {
	tex    hal.Texture
	view   hal.TextureView
	group  hal.BindGroup
	width  int
	height int
	format gpucore.TextureFormat
}

// target is the offscreen render target.
type target struct {
	tex    hal.Texture
	view   hal.TextureView
	width  int
	height int
}

// Device is a gpucore.Device backed by a HAL device and queue.
//
// Thread Safety:
// All methods are safe for concurrent use. GPU work is submitted while
// holding the device lock, so command recording is serialized.
type Device struct {
	mu     sync.Mutex
	dev    hal.Device
	queue  hal.Queue
	owned  func()
	closed bool

	nextID   uint64
	textures map[gpucore.TextureID]*texture
	programs map[gpucore.ProgramID]*program
	current  gpucore.ProgramID

	sampler        hal.Sampler
	groupLayout    hal.BindGroupLayout
	pipelineLayout hal.PipelineLayout
	vertices       hal.Buffer
	passthrough    *program
	spirv          *cache.Cache[cache.Key, []uint32]

	clearColor gputypes.Color
	depthTest  bool
	viewport   [4]int
	fb         *target

	logger atomic.Pointer[slog.Logger]
}

var _ gpucore.Device = (*Device)(nil)

// New wraps an open HAL device and its queue. The caller keeps ownership
// of both; Close releases only the resources created by the Device.
func New(dev hal.Device, queue hal.Queue, opts ...Option) (*Device, error) {
	if dev == nil || queue == nil {
		return nil, ErrNilHALDevice
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	d := &Device{
		dev:        dev,
		queue:      queue,
		nextID:     1,
		textures:   make(map[gpucore.TextureID]*texture),
		programs:   make(map[gpucore.ProgramID]*program),
		clearColor: gputypes.Color{A: 1},
		spirv:      cache.New[cache.Key, []uint32](o.cacheCap, nil),
	}
	if err := d.initShared(); err != nil {
		d.destroyShared()
		return nil, err
	}
	return d, nil
}

// NewFromProvider wraps the device of a gpucontext.DeviceProvider, such
// as a gogpu window. The provider must expose its HAL objects through
// HalDevice and HalQueue.
func NewFromProvider(p gpucontext.DeviceProvider, opts ...Option) (*Device, error) {
	if p == nil {
		return nil, ErrNilHALDevice
	}
	hp, ok := p.(interface {
		HalDevice() any
		HalQueue() any
	})
	if !ok {
		return nil, ErrNoHALAccess
	}
	dev, ok := hp.HalDevice().(hal.Device)
	if !ok {
		return nil, fmt.Errorf("%w: HalDevice is %T", ErrNoHALAccess, hp.HalDevice())
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok {
		return nil, fmt.Errorf("%w: HalQueue is %T", ErrNoHALAccess, hp.HalQueue())
	}
	return New(dev, queue, opts...)
}

// initShared creates the objects shared by every draw: the sampler, the
// bind group and pipeline layouts and the vertex buffer.
func (d *Device) initShared() error {
	var err error
	d.sampler, err = d.dev.CreateSampler(&hal.SamplerDescriptor{
		Label:        "gpuimage_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("native: create sampler: %w", err)
	}

	d.groupLayout, err = d.dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "gpuimage_input_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler: &gputypes.SamplerBindingLayout{
					Type: gputypes.SamplerBindingTypeFiltering,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("native: create bind group layout: %w", err)
	}

	d.pipelineLayout, err = d.dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "gpuimage_pipeline_layout",
		BindGroupLayouts: []hal.BindGroupLayout{d.groupLayout},
	})
	if err != nil {
		return fmt.Errorf("native: create pipeline layout: %w", err)
	}

	d.vertices, err = d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "gpuimage_quad",
		Size:  quadBufferSize,
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("native: create vertex buffer: %w", err)
	}
	return nil
}

func (d *Device) destroyShared() {
	if d.vertices != nil {
		d.dev.DestroyBuffer(d.vertices)
		d.vertices = nil
	}
	if d.pipelineLayout != nil {
		d.dev.DestroyPipelineLayout(d.pipelineLayout)
		d.pipelineLayout = nil
	}
	if d.groupLayout != nil {
		d.dev.DestroyBindGroupLayout(d.groupLayout)
		d.groupLayout = nil
	}
	if d.sampler != nil {
		d.dev.DestroySampler(d.sampler)
		d.sampler = nil
	}
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

// Close waits for the GPU and releases every resource the Device created.
// When the Device opened the HAL device itself (the registered factory),
// the HAL device is destroyed too. Close is idempotent.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true

	if err := d.dev.WaitIdle(); err != nil {
		d.log().Warn("native: wait idle on close", "err", err)
	}
	for id := range d.textures {
		d.deleteTexture(id)
	}
	for id, p := range d.programs {
		d.dev.DestroyRenderPipeline(p.pipeline)
		delete(d.programs, id)
	}
	if d.passthrough != nil {
		d.dev.DestroyRenderPipeline(d.passthrough.pipeline)
		d.passthrough = nil
	}
	d.destroyTarget()
	d.destroyShared()
	d.spirv.Clear()

	if d.owned != nil {
		d.owned()
	}
}

func (d *Device) newID() uint64 {
	id := d.nextID
	d.nextID++
	return id
}

func halFormat(f gpucore.TextureFormat) (gputypes.TextureFormat, bool) {
	switch f {
	case gpucore.TextureFormatRGBA8Unorm:
		return gputypes.TextureFormatRGBA8Unorm, true
	case gpucore.TextureFormatBGRA8Unorm:
		return gputypes.TextureFormatBGRA8Unorm, true
	default:
		return gputypes.TextureFormatUndefined, false
	}
}

// CreateTexture implements gpucore.TextureStore.
func (d *Device) CreateTexture(width, height int, format gpucore.TextureFormat) (gpucore.TextureID, error) {
	if width <= 0 || height <= 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: %dx%d", gpucore.ErrInvalidSize, width, height)
	}
	if _, ok := halFormat(format); !ok {
		return gpucore.InvalidID, fmt.Errorf("native: unsupported texture format %v", format)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, ErrClosed
	}
	t, err := d.createTexture(width, height, format)
	if err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.TextureID(d.newID())
	d.textures[id] = t
	return id, nil
}

func (d *Device) createTexture(width, height int, format gpucore.TextureFormat) (*texture, error) {
	hf, _ := halFormat(format)
	tex, err := d.dev.CreateTexture(&hal.TextureDescriptor{
		Label:         "gpuimage_input",
		Size:          hal.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        hf,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create texture: %w", err)
	}
	view, err := d.dev.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "gpuimage_input_view",
		Format:        hf,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		d.dev.DestroyTexture(tex)
		return nil, fmt.Errorf("native: create texture view: %w", err)
	}
	return &texture{tex: tex, view: view, width: width, height: height, format: format}, nil
}

// WriteTexture implements gpucore.TextureStore.
func (d *Device) WriteTexture(id gpucore.TextureID, width, height int, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("%w: %d", gpucore.ErrUnknownTexture, id)
	}
	return d.writeTexture(t, width, height, data)
}

func (d *Device) writeTexture(t *texture, width, height int, data []byte) error {
	if t.width != width || t.height != height {
		return fmt.Errorf("%w: %dx%d into %dx%d texture", gpucore.ErrDataSize, width, height, t.width, t.height)
	}
	bpr := width * t.format.BytesPerPixel()
	if len(data) != bpr*height {
		return fmt.Errorf("%w: got %d bytes, want %d", gpucore.ErrDataSize, len(data), bpr*height)
	}
	err := d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: t.tex, MipLevel: 0},
		data,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: uint32(bpr), RowsPerImage: uint32(height)},
		&hal.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("native: write texture: %w", err)
	}
	return nil
}

// DeleteTexture implements gpucore.TextureStore.
func (d *Device) DeleteTexture(id gpucore.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deleteTexture(id)
}

func (d *Device) deleteTexture(id gpucore.TextureID) {
	t, ok := d.textures[id]
	if !ok {
		return
	}
	delete(d.textures, id)
	d.destroyTexture(t)
}

func (d *Device) destroyTexture(t *texture) {
	if t.group != nil {
		d.dev.DestroyBindGroup(t.group)
	}
	d.dev.DestroyTextureView(t.view)
	d.dev.DestroyTexture(t.tex)
}

// bindGroup returns the bind group sampling t, creating it on first use.
func (d *Device) bindGroup(t *texture) (hal.BindGroup, error) {
	if t.group != nil {
		return t.group, nil
	}
	g, err := d.dev.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "gpuimage_input_group",
		Layout: d.groupLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: t.view.NativeHandle()}},
			{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: d.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("native: create bind group: %w", err)
	}
	t.group = g
	return g, nil
}

// SetClearColor implements gpucore.Device. The color is stored
// premultiplied, like every texel the device renders.
func (d *Device) SetClearColor(r, g, b, a float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clearColor = gputypes.Color{
		R: float64(r * a),
		G: float64(g * a),
		B: float64(b * a),
		A: float64(a),
	}
}

// SetDepthTest implements gpucore.Device. The device renders without a
// depth attachment, so only the flag is recorded.
func (d *Device) SetDepthTest(enabled bool) {
	d.mu.Lock()
	d.depthTest = enabled
	d.mu.Unlock()
}

// DepthTest reports the last SetDepthTest value.
func (d *Device) DepthTest() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.depthTest
}

// Viewport implements gpucore.Device. x and y are measured from the
// bottom-left corner. The render target grows to hold the viewport.
func (d *Device) Viewport(x, y, width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || width <= 0 || height <= 0 {
		return
	}
	d.viewport = [4]int{x, y, width, height}
	if err := d.ensureTarget(x+width, y+height); err != nil {
		d.log().Error("native: resize render target", "err", err)
	}
}

// ensureTarget makes the render target exactly width x height.
func (d *Device) ensureTarget(width, height int) error {
	if d.fb != nil && d.fb.width == width && d.fb.height == height {
		return nil
	}
	d.destroyTarget()

	tex, err := d.dev.CreateTexture(&hal.TextureDescriptor{
		Label:         "gpuimage_target",
		Size:          hal.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        targetFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create target: %w", err)
	}
	view, err := d.dev.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "gpuimage_target_view",
		Format:        targetFormat,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		d.dev.DestroyTexture(tex)
		return fmt.Errorf("create target view: %w", err)
	}
	d.fb = &target{tex: tex, view: view, width: width, height: height}
	d.log().Debug("native: render target", "width", width, "height", height)
	return nil
}

func (d *Device) destroyTarget() {
	if d.fb == nil {
		return
	}
	d.dev.DestroyTextureView(d.fb.view)
	d.dev.DestroyTexture(d.fb.tex)
	d.fb = nil
}

// FramebufferSize returns the render target size, zero before the first
// Viewport call.
func (d *Device) FramebufferSize() (width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fb == nil {
		return 0, 0
	}
	return d.fb.width, d.fb.height
}
