package gpuimage

import (
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpuimage/backend"
	"github.com/gogpu/gpuimage/capture"
	"github.com/gogpu/gpuimage/filter"
	"github.com/gogpu/gpuimage/geometry"
	"github.com/gogpu/gpuimage/gpucore"
	"github.com/gogpu/gpuimage/internal/taskqueue"
	"github.com/gogpu/gpuimage/texture"
)

// Renderer drives one filter over one image texture.
//
// The host surface calls OnSurfaceCreated, OnSurfaceChanged and
// OnDrawFrame from a single rendering goroutine. Every other method is safe
// to call from any goroutine: GPU work is queued and runs on the rendering
// goroutine at the next frame.
type Renderer struct {
	dev           gpucore.Device
	converter     capture.Converter
	ownsConverter bool

	preDraw  *taskqueue.Queue
	postDraw *taskqueue.Queue

	// Rendering goroutine only.
	filter   filter.Filter
	textures *texture.Manager
	geom     *geometry.Buffers
	state    RenderState
	rgba     []byte
	stream   gpucore.StreamTexture
	source   capture.Source

	// Requested configuration, guarded by mu. Setters write it and queue
	// a state task that copies it into state.
	mu          sync.Mutex
	cfg         config
	frameWidth  int
	frameHeight int

	lifecycle atomic.Int32

	// captureQueued is set while a capture upload is pending.
	captureQueued atomic.Bool

	sizedMu  sync.Mutex
	sizedGen uint64
	sized    chan struct{}
	released chan struct{}

	stats counters
}

var _ capture.Listener = (*Renderer)(nil)

// New creates a renderer drawing with f. A nil filter selects
// filter.NewPassthrough.
func New(f filter.Filter, opts ...Option) (*Renderer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	dev := o.device
	if dev == nil {
		var err error
		if o.backend != "" {
			dev, err = backend.Get(o.backend)
		} else {
			dev, err = backend.Default()
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoDevice, err)
		}
	}
	if ls, ok := dev.(loggerSetter); ok {
		ls.SetLogger(Logger())
	}

	if f == nil {
		f = filter.NewPassthrough()
	}

	r := &Renderer{
		dev:       dev,
		converter: o.converter,
		filter:    f,
		textures:  texture.NewManager(dev),
		geom:      geometry.NewBuffers(),
		cfg:       o.cfg,
		sized:     make(chan struct{}),
		released:  make(chan struct{}),
	}
	if r.converter == nil {
		r.converter = capture.NewNV21Converter(o.workers)
		r.ownsConverter = true
	}
	r.preDraw = taskqueue.NewQueue(r.taskFailed)
	r.postDraw = taskqueue.NewQueue(r.taskFailed)
	r.state.apply(o.cfg)
	return r, nil
}

// Device returns the device the renderer draws with.
func (r *Renderer) Device() gpucore.Device { return r.dev }

func (r *Renderer) taskFailed(te *taskqueue.TaskError) {
	r.stats.taskFailures.Add(1)
	Logger().Warn("gpuimage: task failed", "kind", te.Kind.String(), "err", te.Err)
}

// OnSurfaceCreated prepares the device for drawing: clear color from the
// background, depth test off, filter initialized.
func (r *Renderer) OnSurfaceCreated() {
	if r.State() == StateReleased {
		return
	}
	r.syncConfig()
	bg := r.state.Background
	r.dev.SetClearColor(bg.R, bg.G, bg.B, 1)
	r.dev.SetDepthTest(false)
	if err := r.filter.InitIfNeeded(r.dev); err != nil {
		Logger().Warn("gpuimage: filter init failed", "filter", filterName(r.filter), "err", err)
	}
	r.advance(StateSurfaceReady)
	Logger().Info("gpuimage: surface created", "filter", filterName(r.filter))
}

// OnSurfaceChanged records the new output size, resizes the viewport and
// recomputes the geometry. Goroutines blocked in WaitSurfaceChanged are
// released once it returns.
func (r *Renderer) OnSurfaceChanged(width, height int) {
	if r.State() == StateReleased {
		return
	}
	r.state.OutputWidth = width
	r.state.OutputHeight = height
	r.syncConfig()

	r.dev.Viewport(0, 0, width, height)
	r.dev.UseProgram(r.filter.Program())
	r.filter.OutputSizeChanged(width, height)
	r.adjustImageScaling()

	r.mu.Lock()
	r.frameWidth, r.frameHeight = width, height
	r.mu.Unlock()

	r.advance(StateSurfaceSized)
	r.broadcastSized()
	Logger().Debug("gpuimage: surface changed", "width", width, "height", height)
}

// OnDrawFrame clears the viewport, runs the pre-draw tasks, draws the
// current texture through the filter and runs the post-draw tasks.
func (r *Renderer) OnDrawFrame() {
	if r.State() == StateReleased {
		return
	}
	r.dev.Clear()
	r.preDraw.Drain()

	err := r.filter.Draw(r.textures.Current(), r.geom.Vertices(), r.geom.TexCoords())
	if err != nil {
		r.stats.drawErrors.Add(1)
		Logger().Warn("gpuimage: draw failed", "filter", filterName(r.filter), "err", err)
	}

	r.postDraw.Drain()

	if r.stream != nil {
		if err := r.stream.UpdateTexImage(); err != nil {
			Logger().Debug("gpuimage: stream update failed", "err", err)
		}
	}
	r.stats.framesDrawn.Add(1)
	r.advance(StateRendering)
}

// advance moves the lifecycle to s unless the renderer was released.
func (r *Renderer) advance(s State) {
	for {
		cur := r.lifecycle.Load()
		if State(cur) == StateReleased || r.lifecycle.CompareAndSwap(cur, int32(s)) {
			return
		}
	}
}

// Release stops capture and frees every GPU resource owned by the
// renderer. It must be called on the rendering goroutine. Pending tasks are
// dropped.
func (r *Renderer) Release() {
	if State(r.lifecycle.Swap(int32(StateReleased))) == StateReleased {
		return
	}
	dropped := r.preDraw.Clear() + r.postDraw.Clear()
	r.stopCapture()
	r.textures.Delete()
	r.filter.Destroy()
	if r.ownsConverter {
		if c, ok := r.converter.(interface{ Close() }); ok {
			c.Close()
		}
	}
	close(r.released)
	Logger().Info("gpuimage: released", "dropped_tasks", dropped)
}

// State returns the lifecycle state.
func (r *Renderer) State() State { return State(r.lifecycle.Load()) }

// Stats returns a snapshot of the renderer counters.
func (r *Renderer) Stats() Stats { return r.stats.snapshot() }

// WaitSurfaceChanged blocks until the next OnSurfaceChanged completes or
// ctx is done. It has no timeout of its own.
func (r *Renderer) WaitSurfaceChanged(ctx context.Context) error {
	r.sizedMu.Lock()
	ch := r.sized
	r.sizedMu.Unlock()

	select {
	case <-ch:
		return nil
	case <-r.released:
		return ErrReleased
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SurfaceGeneration returns how many times OnSurfaceChanged has completed.
func (r *Renderer) SurfaceGeneration() uint64 {
	r.sizedMu.Lock()
	defer r.sizedMu.Unlock()
	return r.sizedGen
}

func (r *Renderer) broadcastSized() {
	r.sizedMu.Lock()
	close(r.sized)
	r.sized = make(chan struct{})
	r.sizedGen++
	r.sizedMu.Unlock()
}

// syncConfig copies the requested configuration into the render state.
func (r *Renderer) syncConfig() {
	r.mu.Lock()
	cfg := r.cfg
	r.mu.Unlock()
	r.state.apply(cfg)
}

// adjustImageScaling recomputes the geometry from the render state. Zero
// sizes leave the previous geometry in place.
func (r *Renderer) adjustImageScaling() {
	if !r.geom.Update(r.state.params()) {
		Logger().Debug("gpuimage: geometry not updated, size unknown",
			"output", fmt.Sprintf("%dx%d", r.state.OutputWidth, r.state.OutputHeight),
			"image", fmt.Sprintf("%dx%d", r.state.ImageWidth, r.state.ImageHeight))
	}
}

// RunOnDraw queues fn to run on the rendering goroutine before the next
// draw.
func (r *Renderer) RunOnDraw(fn func()) {
	r.preDraw.EnqueueFunc(taskqueue.KindCustom, func() error {
		fn()
		return nil
	})
}

// RunOnDrawEnd queues fn to run on the rendering goroutine after the next
// draw.
func (r *Renderer) RunOnDrawEnd(fn func()) {
	r.postDraw.EnqueueFunc(taskqueue.KindCustom, func() error {
		fn()
		return nil
	})
}

// SetFilter replaces the active filter at the next frame. The new filter
// is initialized before the old one is destroyed, and both happen before
// the new filter's first draw. If the new filter fails to initialize the
// old one stays active.
func (r *Renderer) SetFilter(f filter.Filter) {
	if f == nil {
		f = filter.NewPassthrough()
	}
	r.preDraw.EnqueueFunc(taskqueue.KindFilterSwap, func() error {
		old := r.filter
		if old == f {
			return nil
		}
		if err := f.InitIfNeeded(r.dev); err != nil {
			return err
		}
		r.filter = f
		old.Destroy()
		r.dev.UseProgram(f.Program())
		f.OutputSizeChanged(r.state.OutputWidth, r.state.OutputHeight)
		Logger().Info("gpuimage: filter swapped", "from", filterName(old), "to", filterName(f))
		return nil
	})
}

// Filter returns the active filter. It must be called on the rendering
// goroutine.
func (r *Renderer) Filter() filter.Filter { return r.filter }

// SetImage uploads img at the next frame and makes it the current
// texture. With recycle set the renderer takes ownership of img; see
// texture.Manager.UploadImage.
func (r *Renderer) SetImage(img image.Image, recycle bool) {
	r.preDraw.EnqueueFunc(taskqueue.KindImageUpload, func() error {
		if _, err := r.textures.UploadImage(img, recycle); err != nil {
			return err
		}
		// Layout uses the padded width.
		r.state.ImageWidth, r.state.ImageHeight = r.textures.Size()
		r.state.AddedPadding = r.textures.Padding()
		r.adjustImageScaling()
		r.stats.imageUploads.Add(1)
		return nil
	})
}

// DeleteImage releases the current texture at the next frame.
func (r *Renderer) DeleteImage() {
	r.preDraw.EnqueueFunc(taskqueue.KindImageDelete, func() error {
		r.textures.Delete()
		return nil
	})
}

// updateConfig applies fn to the requested configuration and queues a
// task that brings the render state and geometry up to date.
func (r *Renderer) updateConfig(fn func(*config)) {
	r.mu.Lock()
	fn(&r.cfg)
	r.mu.Unlock()

	r.preDraw.EnqueueFunc(taskqueue.KindState, func() error {
		r.syncConfig()
		bg := r.state.Background
		r.dev.SetClearColor(bg.R, bg.G, bg.B, 1)
		r.adjustImageScaling()
		return nil
	})
}

// SetBackgroundColor sets the clear color.
func (r *Renderer) SetBackgroundColor(red, green, blue float32) {
	r.updateConfig(func(c *config) {
		c.background = Color{R: red, G: green, B: blue}
	})
}

// SetScaleType sets how the image is fitted into the viewport.
func (r *Renderer) SetScaleType(s geometry.ScaleType) {
	r.updateConfig(func(c *config) { c.scaleType = s })
}

// SetRotation sets the rotation. The flips are kept.
func (r *Renderer) SetRotation(rot geometry.Rotation) {
	r.updateConfig(func(c *config) { c.rotation = rot })
}

// SetRotationFlip sets the rotation and flips.
func (r *Renderer) SetRotationFlip(rot geometry.Rotation, flipHorizontal, flipVertical bool) {
	r.updateConfig(func(c *config) {
		c.rotation = rot
		c.flipHorizontal = flipHorizontal
		c.flipVertical = flipVertical
	})
}

// SetRotationCamera sets the rotation for a camera preview. Camera sensors
// report flips in the rotated frame, so the horizontal and vertical flags
// are exchanged.
func (r *Renderer) SetRotationCamera(rot geometry.Rotation, flipHorizontal, flipVertical bool) {
	r.SetRotationFlip(rot, flipVertical, flipHorizontal)
}

// Rotation returns the requested rotation.
func (r *Renderer) Rotation() geometry.Rotation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg.rotation
}

// IsFlippedHorizontally reports the requested horizontal flip.
func (r *Renderer) IsFlippedHorizontally() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg.flipHorizontal
}

// IsFlippedVertically reports the requested vertical flip.
func (r *Renderer) IsFlippedVertically() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg.flipVertical
}

// ScaleType returns the requested scale type.
func (r *Renderer) ScaleType() geometry.ScaleType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg.scaleType
}

// BackgroundColor returns the requested background color.
func (r *Renderer) BackgroundColor() Color {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg.background
}

// FrameWidth returns the output width from the last OnSurfaceChanged.
func (r *Renderer) FrameWidth() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frameWidth
}

// FrameHeight returns the output height from the last OnSurfaceChanged.
func (r *Renderer) FrameHeight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frameHeight
}

// RenderState returns the state the current geometry was computed from.
// It must be called on the rendering goroutine.
func (r *Renderer) RenderState() RenderState { return r.state }

// Geometry returns the current vertex and texture-coordinate quads. It
// must be called on the rendering goroutine.
func (r *Renderer) Geometry() (vertices, texCoords geometry.Quad) {
	return r.geom.Vertices(), r.geom.TexCoords()
}

func filterName(f filter.Filter) string {
	if n, ok := f.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", f)
}
