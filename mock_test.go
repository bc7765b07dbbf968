package gpuimage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gpuimage/geometry"
	"github.com/gogpu/gpuimage/gpucore"
	"github.com/gogpu/gpuimage/texture"
)

// eventLog is a goroutine-safe ordered list of events shared by mocks.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(format string, args ...any) {
	l.mu.Lock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
	l.mu.Unlock()
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func (l *eventLog) index(event string) int {
	for i, e := range l.list() {
		if e == event {
			return i
		}
	}
	return -1
}

// mockDevice implements gpucore.Device and records calls.
type mockDevice struct {
	log *eventLog

	mu         sync.Mutex
	nextID     uint64
	textures   map[gpucore.TextureID][2]int
	programs   map[gpucore.ProgramID]string
	clearColor [4]float32
	depthTest  bool
	viewport   [4]int
	draws      []gpucore.DrawQuad
	streams    int
	streamErr  error
	noStreams  bool
	clears     int
}

func newMockDevice(log *eventLog) *mockDevice {
	if log == nil {
		log = &eventLog{}
	}
	return &mockDevice{
		log:      log,
		nextID:   1,
		textures: make(map[gpucore.TextureID][2]int),
		programs: make(map[gpucore.ProgramID]string),
	}
}

func (d *mockDevice) id() uint64 {
	id := d.nextID
	d.nextID++
	return id
}

func (d *mockDevice) CreateTexture(w, h int, _ gpucore.TextureFormat) (gpucore.TextureID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := gpucore.TextureID(d.id())
	d.textures[id] = [2]int{w, h}
	d.log.add("texture.create %dx%d", w, h)
	return id, nil
}

func (d *mockDevice) WriteTexture(id gpucore.TextureID, w, h int, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.textures[id]; !ok {
		return gpucore.ErrUnknownTexture
	}
	if len(data) != w*h*4 {
		return gpucore.ErrDataSize
	}
	return nil
}

func (d *mockDevice) DeleteTexture(id gpucore.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.textures, id)
	d.log.add("texture.delete")
}

func (d *mockDevice) SetClearColor(r, g, b, a float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clearColor = [4]float32{r, g, b, a}
}

func (d *mockDevice) SetDepthTest(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.depthTest = enabled
}

func (d *mockDevice) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clears++
}

func (d *mockDevice) Viewport(x, y, w, h int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.viewport = [4]int{x, y, w, h}
}

func (d *mockDevice) CreateProgram(src gpucore.ProgramSource) (gpucore.ProgramID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := gpucore.ProgramID(d.id())
	d.programs[id] = src.Name
	return id, nil
}

func (d *mockDevice) DeleteProgram(id gpucore.ProgramID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.programs, id)
}

func (d *mockDevice) UseProgram(gpucore.ProgramID) {}

func (d *mockDevice) DrawQuad(q gpucore.DrawQuad) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.draws = append(d.draws, q)
	return nil
}

func (d *mockDevice) NewStreamTexture() (gpucore.StreamTexture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.noStreams {
		return nil, gpucore.ErrStreamUnsupported
	}
	if d.streamErr != nil {
		return nil, d.streamErr
	}
	d.streams++
	return &mockStream{log: d.log, id: gpucore.TextureID(d.id())}, nil
}

func (d *mockDevice) liveTextures() map[gpucore.TextureID][2]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[gpucore.TextureID][2]int, len(d.textures))
	for k, v := range d.textures {
		out[k] = v
	}
	return out
}

func (d *mockDevice) drawCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.draws)
}

type mockStream struct {
	log      *eventLog
	id       gpucore.TextureID
	mu       sync.Mutex
	updates  int
	released bool
}

func (s *mockStream) ID() gpucore.TextureID { return s.id }

func (s *mockStream) UpdateTexImage() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	return nil
}

func (s *mockStream) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
	s.log.add("stream.release")
}

// mockFilter records its lifecycle into the shared log.
type mockFilter struct {
	name        string
	log         *eventLog
	initErr     error
	initialized bool
	program     gpucore.ProgramID
	draws       []texture.Handle
	lastTex     geometry.Quad
	width       int
	height      int
}

func newMockFilter(name string, log *eventLog) *mockFilter {
	return &mockFilter{name: name, log: log}
}

func (f *mockFilter) Name() string { return f.name }

func (f *mockFilter) InitIfNeeded(gpucore.Device) error {
	if f.initialized {
		return nil
	}
	if f.initErr != nil {
		f.log.add("%s.init-failed", f.name)
		return f.initErr
	}
	f.initialized = true
	f.program = 42
	f.log.add("%s.init", f.name)
	return nil
}

func (f *mockFilter) Program() gpucore.ProgramID { return f.program }

func (f *mockFilter) OutputSizeChanged(w, h int) {
	f.width, f.height = w, h
	f.log.add("%s.size %dx%d", f.name, w, h)
}

func (f *mockFilter) Draw(tex texture.Handle, _, texCoords geometry.Quad) error {
	if !f.initialized {
		return errors.New("mock: not initialized")
	}
	f.draws = append(f.draws, tex)
	f.lastTex = texCoords
	f.log.add("%s.draw", f.name)
	return nil
}

func (f *mockFilter) Destroy() {
	f.initialized = false
	f.log.add("%s.destroy", f.name)
}

func (f *mockFilter) IsInitialized() bool { return f.initialized }

// identityConverter treats input frames as RGBA already.
type identityConverter struct{}

func (identityConverter) Convert(yuv []byte, w, h int, dst []byte) error {
	if len(yuv) < w*h*4 {
		return errors.New("mock: short frame")
	}
	copy(dst, yuv[:w*h*4])
	return nil
}
