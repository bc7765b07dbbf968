package filter

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpuimage/geometry"
	"github.com/gogpu/gpuimage/gpucore"
	"github.com/gogpu/gpuimage/internal/taskqueue"
	"github.com/gogpu/gpuimage/texture"
)

// ErrNotInitialized is returned by Draw before InitIfNeeded succeeded.
var ErrNotInitialized = errors.New("filter: not initialized")

// Filter draws a texture into the current viewport.
//
// All methods except those documented otherwise are called from the
// rendering goroutine.
type Filter interface {
	// InitIfNeeded creates the filter's GPU program on first use.
	// Subsequent calls are no-ops.
	InitIfNeeded(dev gpucore.Device) error

	// Program returns the program created by InitIfNeeded.
	Program() gpucore.ProgramID

	// OutputSizeChanged records the new viewport size.
	OutputSizeChanged(width, height int)

	// Draw draws tex mapped by texCoords onto the vertices quad.
	// Drawing texture.None is not an error; the frame is left cleared.
	Draw(tex texture.Handle, vertices, texCoords geometry.Quad) error

	// Destroy releases the program. The filter may be initialized again.
	Destroy()

	// IsInitialized reports whether InitIfNeeded has succeeded since the
	// last Destroy.
	IsInitialized() bool
}

// Base implements Filter for a single program. Concrete filters embed it.
//
// The zero value is not usable; initialize with Init or create the filter
// through one of the constructors.
type Base struct {
	name   string
	source gpucore.ProgramSource

	dev         gpucore.Device
	program     gpucore.ProgramID
	initialized bool

	outputWidth  int
	outputHeight int

	onDraw taskqueue.Queue
}

// Init sets the program source. It must be called before InitIfNeeded.
func (b *Base) Init(src gpucore.ProgramSource) {
	b.name = src.Name
	b.source = src
}

// NewBase returns a filter drawing with src.
func NewBase(src gpucore.ProgramSource) *Base {
	b := &Base{}
	b.Init(src)
	return b
}

// Name returns the program name.
func (b *Base) Name() string { return b.name }

// InitIfNeeded implements Filter.
func (b *Base) InitIfNeeded(dev gpucore.Device) error {
	if b.initialized {
		return nil
	}
	if dev == nil {
		return fmt.Errorf("filter: init %s: nil device", b.name)
	}
	id, err := dev.CreateProgram(b.source)
	if err != nil {
		return fmt.Errorf("filter: init %s: %w", b.name, err)
	}
	b.dev = dev
	b.program = id
	b.initialized = true
	return nil
}

// Program implements Filter.
func (b *Base) Program() gpucore.ProgramID { return b.program }

// Device returns the device passed to InitIfNeeded, nil before that.
func (b *Base) Device() gpucore.Device { return b.dev }

// OutputSizeChanged implements Filter.
func (b *Base) OutputSizeChanged(width, height int) {
	b.outputWidth = width
	b.outputHeight = height
}

// OutputSize returns the last size passed to OutputSizeChanged.
func (b *Base) OutputSize() (width, height int) {
	return b.outputWidth, b.outputHeight
}

// IsInitialized implements Filter.
func (b *Base) IsInitialized() bool { return b.initialized }

// RunOnDraw queues fn to run on the rendering goroutine at the start of the
// next Draw, after the filter's program is made current. Safe to call from
// any goroutine.
func (b *Base) RunOnDraw(fn func() error) {
	b.onDraw.EnqueueFunc(taskqueue.KindCustom, fn)
}

// Draw implements Filter.
func (b *Base) Draw(tex texture.Handle, vertices, texCoords geometry.Quad) error {
	if !b.initialized {
		return ErrNotInitialized
	}
	b.dev.UseProgram(b.program)
	_, pendingErr := b.onDraw.Drain()

	if !tex.Valid() {
		return pendingErr
	}
	err := b.dev.DrawQuad(gpucore.DrawQuad{
		Program:   b.program,
		Texture:   tex.ID(),
		Vertices:  vertices,
		TexCoords: texCoords,
	})
	if err != nil {
		err = fmt.Errorf("filter: draw %s: %w", b.name, err)
	}
	return errors.Join(pendingErr, err)
}

// Destroy implements Filter.
func (b *Base) Destroy() {
	if !b.initialized {
		return
	}
	b.dev.DeleteProgram(b.program)
	b.program = gpucore.InvalidID
	b.initialized = false
}

// SetSource replaces the program source. On an initialized filter the new
// program is built first and the old one deleted only on success. Must be
// called on the rendering goroutine, typically from RunOnDraw.
func (b *Base) SetSource(src gpucore.ProgramSource) error {
	if !b.initialized {
		b.Init(src)
		return nil
	}
	id, err := b.dev.CreateProgram(src)
	if err != nil {
		return fmt.Errorf("filter: rebuild %s: %w", src.Name, err)
	}
	b.dev.DeleteProgram(b.program)
	b.Init(src)
	b.program = id
	b.dev.UseProgram(id)
	return nil
}

// Passthrough draws the texture unchanged.
type Passthrough struct {
	Base
}

// NewPassthrough returns the identity filter.
func NewPassthrough() *Passthrough {
	f := &Passthrough{}
	f.Init(PassthroughSource())
	return f
}
