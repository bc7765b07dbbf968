package capture

import (
	"sync"
	"time"

	"github.com/gogpu/gpuimage/gpucore"
)

// SyntheticSource is a Source producing a moving color-bar test pattern.
// It stands in for a camera in tools and tests.
type SyntheticSource struct {
	width    int
	height   int
	interval time.Duration

	mu       sync.Mutex
	listener Listener
	stream   gpucore.StreamTexture
	stop     chan struct{}
	done     chan struct{}
	frame    int
}

// NewSyntheticSource returns a source of width x height frames emitted
// every interval once started. A non-positive interval means 30 frames
// per second.
func NewSyntheticSource(width, height int, interval time.Duration) *SyntheticSource {
	if interval <= 0 {
		interval = time.Second / 30
	}
	return &SyntheticSource{
		width:    width,
		height:   height,
		interval: interval,
	}
}

// Size returns the frame size.
func (s *SyntheticSource) Size() (width, height int) { return s.width, s.height }

// Frames returns the number of frames emitted so far.
func (s *SyntheticSource) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// SetPreviewTexture implements Source. When st also implements
// gpucore.StreamWriter every frame is pushed to it as RGBA.
func (s *SyntheticSource) SetPreviewTexture(st gpucore.StreamTexture) error {
	s.mu.Lock()
	s.stream = st
	s.mu.Unlock()
	return nil
}

// SetPreviewCallback implements Source.
func (s *SyntheticSource) SetPreviewCallback(l Listener) {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
}

// StartPreview implements Source.
func (s *SyntheticSource) StartPreview() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return ErrAlreadyStarted
	}
	if s.width <= 0 || s.height <= 0 {
		return ErrFrameSize
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.stop, s.done)
	return nil
}

// StopPreview implements Source.
func (s *SyntheticSource) StopPreview() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (s *SyntheticSource) run(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Emit()
		}
	}
}

// Emit produces one frame synchronously and delivers it to the listener
// and the stream texture.
func (s *SyntheticSource) Emit() {
	s.mu.Lock()
	n := s.frame
	s.frame++
	l, st := s.listener, s.stream
	s.mu.Unlock()

	if w, ok := st.(gpucore.StreamWriter); ok {
		_ = w.WriteFrame(PatternRGBA(s.width, s.height, n), s.width, s.height)
	}
	if l != nil {
		l.OnPreviewFrame(PatternNV21(s.width, s.height, n), s.width, s.height)
	}
}

// bars are the colors of the test pattern, left to right.
var bars = [...][3]uint8{
	{192, 192, 192},
	{192, 192, 0},
	{0, 192, 192},
	{0, 192, 0},
	{192, 0, 192},
	{192, 0, 0},
	{0, 0, 192},
	{16, 16, 16},
}

// patternColor returns the test-pattern color at x for frame n. The bars
// scroll one pixel per frame.
func patternColor(x, width, n int) [3]uint8 {
	pos := (x + n) % width
	return bars[pos*len(bars)/width]
}

// PatternRGBA renders frame n of the test pattern as RGBA.
func PatternRGBA(width, height, n int) []byte {
	out := make([]byte, width*height*4)
	for x := range width {
		c := patternColor(x, width, n)
		for y := range height {
			i := (y*width + x) * 4
			out[i], out[i+1], out[i+2], out[i+3] = c[0], c[1], c[2], 0xff
		}
	}
	return out
}

// PatternNV21 renders frame n of the test pattern as NV21.
func PatternNV21(width, height, n int) []byte {
	out := make([]byte, NV21Size(width, height))
	chroma := out[width*height:]
	chromaStride := 2 * ((width + 1) / 2)

	for x := range width {
		c := patternColor(x, width, n)
		y, u, v := rgbToYUV(c[0], c[1], c[2])
		for row := range height {
			out[row*width+x] = y
		}
		if x%2 == 0 {
			for row := range (height + 1) / 2 {
				chroma[row*chromaStride+x] = v
				chroma[row*chromaStride+x+1] = u
			}
		}
	}
	return out
}
