package software

import (
	"fmt"
	"sync"

	"github.com/gogpu/gpuimage/gpucore"
)

// Stream is a stream texture fed from the host with WriteFrame.
type Stream struct {
	dev *Device
	id  gpucore.TextureID

	mu       sync.Mutex
	pending  []byte
	width    int
	height   int
	ready    bool
	released bool
}

var (
	_ gpucore.StreamTexture = (*Stream)(nil)
	_ gpucore.StreamWriter  = (*Stream)(nil)
)

// NewStreamTexture implements gpucore.Device. The texture starts as a
// 1x1 transparent pixel and takes the size of the first latched frame.
func (d *Device) NewStreamTexture() (gpucore.StreamTexture, error) {
	id, err := d.CreateTexture(1, 1, gpucore.TextureFormatRGBA8Unorm)
	if err != nil {
		return nil, err
	}
	return &Stream{dev: d, id: id}, nil
}

// ID implements gpucore.StreamTexture.
func (s *Stream) ID() gpucore.TextureID { return s.id }

// WriteFrame implements gpucore.StreamWriter. Only the latest frame is
// kept until the next UpdateTexImage.
func (s *Stream) WriteFrame(rgba []byte, width, height int) error {
	if width <= 0 || height <= 0 || len(rgba) != width*height*4 {
		return fmt.Errorf("%w: %d bytes for %dx%d", gpucore.ErrDataSize, len(rgba), width, height)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return fmt.Errorf("%w: stream released", gpucore.ErrUnknownTexture)
	}
	s.pending = append(s.pending[:0], rgba...)
	s.width, s.height = width, height
	s.ready = true
	return nil
}

// UpdateTexImage implements gpucore.StreamTexture.
func (s *Stream) UpdateTexImage() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released || !s.ready {
		return nil
	}
	s.ready = false

	d := s.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[s.id]
	if !ok {
		return fmt.Errorf("%w: %d", gpucore.ErrUnknownTexture, s.id)
	}
	if b := t.img.Bounds(); b.Dx() != s.width || b.Dy() != s.height {
		t.img = newRGBA(s.width, s.height)
	}
	return d.writeTexture(s.id, s.width, s.height, s.pending)
}

// Release implements gpucore.StreamTexture.
func (s *Stream) Release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	s.pending = nil
	s.mu.Unlock()
	s.dev.DeleteTexture(s.id)
}
