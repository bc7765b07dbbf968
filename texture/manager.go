package texture

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/gogpu/gpuimage/gpucore"
)

// Errors returned by the Manager.
var (
	// ErrEmptyImage is returned for images with a zero or negative size.
	ErrEmptyImage = errors.New("texture: empty image")

	// ErrPixelSize is returned when a pixel buffer does not hold
	// width*height RGBA pixels.
	ErrPixelSize = errors.New("texture: pixel buffer size mismatch")
)

// Recycler is implemented by image sources that can be returned to a pool
// once their pixels have been uploaded.
type Recycler interface {
	Recycle()
}

// Manager owns the current image texture.
type Manager struct {
	store   gpucore.TextureStore
	current Handle

	// padding is 1 when the last image had an odd width and a transparent
	// column was appended.
	padding int

	imageWidth  int
	imageHeight int

	scratch *image.RGBA
}

// NewManager returns a Manager that allocates textures from store.
func NewManager(store gpucore.TextureStore) *Manager {
	return &Manager{store: store}
}

// Current returns the live texture, None if there is none.
func (m *Manager) Current() Handle { return m.current }

// Padding returns the number of columns added to the last uploaded image.
func (m *Manager) Padding() int { return m.padding }

// Size returns the layout size of the live texture, padding included.
func (m *Manager) Size() (width, height int) {
	return m.current.width, m.current.height
}

// ImageSize returns the size of the last uploaded image without padding.
func (m *Manager) ImageSize() (width, height int) {
	return m.imageWidth, m.imageHeight
}

// UploadImage uploads img as the current texture.
//
// Images with an odd width get one transparent column appended. With
// recycle set the Manager takes ownership of img: a tightly packed
// *image.RGBA of even width is uploaded without an intermediate copy, and
// img is recycled afterwards if it implements Recycler.
func (m *Manager) UploadImage(img image.Image, recycle bool) (Handle, error) {
	if img == nil {
		return m.current, ErrEmptyImage
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return m.current, fmt.Errorf("%w: %dx%d", ErrEmptyImage, w, h)
	}
	if recycle {
		if r, ok := img.(Recycler); ok {
			defer r.Recycle()
		}
	}

	padding := w % 2
	var pix []byte
	if rgba, ok := img.(*image.RGBA); ok && recycle && padding == 0 && packed(rgba) {
		pix = rgba.Pix[:w*h*4]
	} else {
		pix = m.convert(img, w+padding, h)
	}

	hd, err := m.upload(pix, w+padding, h)
	if err != nil {
		return m.current, err
	}
	m.padding = padding
	m.imageWidth, m.imageHeight = w, h
	return hd, nil
}

// UploadPixels uploads a tightly packed RGBA buffer of width x height
// pixels. No padding is applied.
func (m *Manager) UploadPixels(pix []byte, width, height int) (Handle, error) {
	if width <= 0 || height <= 0 {
		return m.current, fmt.Errorf("%w: %dx%d", ErrEmptyImage, width, height)
	}
	if len(pix) < width*height*4 {
		return m.current, fmt.Errorf("%w: have %d bytes, want %d", ErrPixelSize, len(pix), width*height*4)
	}
	hd, err := m.upload(pix[:width*height*4], width, height)
	if err != nil {
		return m.current, err
	}
	m.padding = 0
	m.imageWidth, m.imageHeight = width, height
	return hd, nil
}

// Delete releases the live texture and resets the Manager to None.
func (m *Manager) Delete() {
	if m.current.Valid() {
		m.store.DeleteTexture(m.current.id)
	}
	m.current = None
	m.padding = 0
	m.imageWidth, m.imageHeight = 0, 0
}

func (m *Manager) upload(pix []byte, width, height int) (Handle, error) {
	if m.current.Valid() && m.current.width == width && m.current.height == height {
		if err := m.store.WriteTexture(m.current.id, width, height, pix); err != nil {
			return m.current, fmt.Errorf("texture: rewrite %v: %w", m.current, err)
		}
		return m.current, nil
	}

	if m.current.Valid() {
		m.store.DeleteTexture(m.current.id)
		m.current = None
	}
	id, err := m.store.CreateTexture(width, height, gpucore.TextureFormatRGBA8Unorm)
	if err != nil {
		return None, fmt.Errorf("texture: create %dx%d: %w", width, height, err)
	}
	if err := m.store.WriteTexture(id, width, height, pix); err != nil {
		m.store.DeleteTexture(id)
		return None, fmt.Errorf("texture: write %dx%d: %w", width, height, err)
	}
	m.current = Handle{id: id, width: width, height: height}
	return m.current, nil
}

// convert draws img into the scratch buffer at the origin of a width x
// height layout. Columns beyond the image stay transparent.
func (m *Manager) convert(img image.Image, width, height int) []byte {
	r := image.Rect(0, 0, width, height)
	if m.scratch == nil || cap(m.scratch.Pix) < width*height*4 {
		m.scratch = image.NewRGBA(r)
	} else {
		m.scratch.Pix = m.scratch.Pix[:width*height*4]
		m.scratch.Stride = width * 4
		m.scratch.Rect = r
		clear(m.scratch.Pix)
	}
	b := img.Bounds()
	draw.Draw(m.scratch, image.Rect(0, 0, b.Dx(), b.Dy()), img, b.Min, draw.Src)
	return m.scratch.Pix
}

func packed(img *image.RGBA) bool {
	b := img.Rect
	return b.Min == image.Point{} && img.Stride == b.Dx()*4 && len(img.Pix) >= b.Dx()*b.Dy()*4
}
