package gpuimage

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/gpuimage/capture"
	"github.com/gogpu/gpuimage/gpucore"
)

// mockSource is a capture.Source driven by the test.
type mockSource struct {
	startErr   error
	textureErr error

	mu       sync.Mutex
	texture  gpucore.StreamTexture
	listener capture.Listener
	started  bool
	stopped  int
}

func (s *mockSource) SetPreviewTexture(st gpucore.StreamTexture) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.textureErr != nil {
		return s.textureErr
	}
	s.texture = st
	return nil
}

func (s *mockSource) SetPreviewCallback(l capture.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

func (s *mockSource) StartPreview() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.started = true
	return nil
}

func (s *mockSource) StopPreview() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	s.stopped++
}

func (s *mockSource) snapshot() (gpucore.StreamTexture, capture.Listener, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.texture, s.listener, s.started
}

// renderLoop calls OnDrawFrame until the returned stop function is called.
func renderLoop(r *Renderer) (stop func()) {
	quit := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-quit:
				return
			default:
			}
			r.OnDrawFrame()
			time.Sleep(time.Millisecond)
		}
	}()
	return func() {
		close(quit)
		wg.Wait()
	}
}

func rgbaFrame(w, h int) []byte {
	return make([]byte, w*h*4)
}

func TestOnPreviewFrameKeepsOneUploadPending(t *testing.T) {
	r := newTestRenderer(t, nil)
	dev := mockDev(r)
	r.OnSurfaceCreated()
	r.OnSurfaceChanged(100, 100)

	for range 5 {
		r.OnPreviewFrame(rgbaFrame(4, 2), 4, 2)
	}
	if n := r.preDraw.Len(); n != 1 {
		t.Fatalf("queued tasks = %d, want 1", n)
	}

	r.OnDrawFrame()

	s := r.Stats()
	if s.CaptureFramesUploaded != 1 || s.CaptureFramesDropped != 4 {
		t.Errorf("uploaded/dropped = %d/%d, want 1/4", s.CaptureFramesUploaded, s.CaptureFramesDropped)
	}
	st := r.RenderState()
	if st.ImageWidth != 4 || st.ImageHeight != 2 || st.AddedPadding != 0 {
		t.Errorf("image = %dx%d padding %d, want 4x2 padding 0", st.ImageWidth, st.ImageHeight, st.AddedPadding)
	}
	for _, size := range dev.liveTextures() {
		if size != [2]int{4, 2} {
			t.Errorf("texture size = %v, want [4 2]", size)
		}
	}

	// The slot is free again after the upload.
	r.OnPreviewFrame(rgbaFrame(4, 2), 4, 2)
	r.OnDrawFrame()
	if got := r.Stats().CaptureFramesUploaded; got != 2 {
		t.Errorf("uploaded = %d, want 2", got)
	}
}

func TestOnPreviewFrameDroppedWhileOtherWorkPending(t *testing.T) {
	r := newTestRenderer(t, nil)
	r.OnSurfaceCreated()

	r.RunOnDraw(func() {})
	r.OnPreviewFrame(rgbaFrame(2, 2), 2, 2)

	if got := r.Stats().CaptureFramesDropped; got != 1 {
		t.Errorf("dropped = %d, want 1", got)
	}
}

func TestOnPreviewFrameSizeChange(t *testing.T) {
	r := newTestRenderer(t, nil)
	dev := mockDev(r)
	r.OnSurfaceCreated()
	r.OnSurfaceChanged(64, 64)

	r.OnPreviewFrame(rgbaFrame(4, 2), 4, 2)
	r.OnDrawFrame()
	r.OnPreviewFrame(rgbaFrame(8, 8), 8, 8)
	r.OnDrawFrame()

	st := r.RenderState()
	if st.ImageWidth != 8 || st.ImageHeight != 8 {
		t.Errorf("image = %dx%d, want 8x8", st.ImageWidth, st.ImageHeight)
	}
	live := dev.liveTextures()
	if len(live) != 1 {
		t.Fatalf("live textures = %d, want 1", len(live))
	}
	for _, size := range live {
		if size != [2]int{8, 8} {
			t.Errorf("texture size = %v, want [8 8]", size)
		}
	}
}

func TestOnPreviewFrameConvertError(t *testing.T) {
	r := newTestRenderer(t, nil)
	r.OnSurfaceCreated()

	r.OnPreviewFrame(make([]byte, 3), 4, 4)
	r.OnDrawFrame()

	s := r.Stats()
	if s.TaskFailures != 1 || s.CaptureFramesUploaded != 0 {
		t.Errorf("stats = %+v, want 1 failure and no upload", s)
	}
	// A failed upload still frees the slot.
	r.OnPreviewFrame(rgbaFrame(4, 4), 4, 4)
	r.OnDrawFrame()
	if got := r.Stats().CaptureFramesUploaded; got != 1 {
		t.Errorf("uploaded = %d, want 1", got)
	}
}

func TestOnPreviewFrameAfterRelease(t *testing.T) {
	r := newTestRenderer(t, nil)
	r.Release()
	r.OnPreviewFrame(rgbaFrame(2, 2), 2, 2)
	if r.preDraw.Len() != 0 {
		t.Error("frame queued after Release")
	}
}

func TestSetUpCapture(t *testing.T) {
	r := newTestRenderer(t, nil)
	dev := mockDev(r)
	r.OnSurfaceCreated()

	src := &mockSource{}
	stop := renderLoop(r)
	err := r.SetUpCapture(src)
	stop()
	if err != nil {
		t.Fatalf("SetUpCapture() = %v", err)
	}

	st, l, started := src.snapshot()
	if st == nil || !started || l != capture.Listener(r) {
		t.Errorf("source = (texture %v, listener %v, started %v), want attached and started", st, l, started)
	}
	if dev.streams != 1 {
		t.Errorf("stream textures = %d, want 1", dev.streams)
	}

	// Frames latch the stream texture.
	r.OnDrawFrame()
	if ms := st.(*mockStream); ms.updates == 0 {
		t.Error("UpdateTexImage not called after setup")
	}

	r.Release()
	if _, l, started := src.snapshot(); started || l != nil {
		t.Error("Release did not stop the source")
	}
	if !st.(*mockStream).released {
		t.Error("Release did not release the stream texture")
	}
}

func TestSetUpCaptureStartFailure(t *testing.T) {
	r := newTestRenderer(t, nil)
	dev := mockDev(r)
	r.OnSurfaceCreated()

	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})))

	startErr := errors.New("camera busy")
	src := &mockSource{startErr: startErr}
	stop := renderLoop(r)
	err := r.SetUpCapture(src)
	stop()
	SetLogger(orig)

	if out := buf.String(); !strings.Contains(out, `msg="gpuimage: capture setup failed"`) || !strings.Contains(out, "camera busy") {
		t.Errorf("log output = %q, want the capture setup failure", out)
	}

	if !errors.Is(err, ErrCaptureSetup) || !errors.Is(err, startErr) {
		t.Fatalf("SetUpCapture() = %v, want ErrCaptureSetup wrapping the start error", err)
	}
	if _, l, _ := src.snapshot(); l != nil {
		t.Error("callback left registered after failure")
	}
	if dev.log.index("stream.release") < 0 {
		t.Error("stream texture not released after failure")
	}
	if got := r.Stats().TaskFailures; got != 1 {
		t.Errorf("TaskFailures = %d, want 1", got)
	}
}

func TestSetUpCaptureWithoutStreams(t *testing.T) {
	r := newTestRenderer(t, nil)
	mockDev(r).noStreams = true
	r.OnSurfaceCreated()

	src := &mockSource{}
	stop := renderLoop(r)
	err := r.SetUpCapture(src)
	stop()
	if err != nil {
		t.Fatalf("SetUpCapture() = %v, want nil", err)
	}
	if st, _, started := src.snapshot(); st != nil || !started {
		t.Errorf("texture %v started %v, want nil texture and started", st, started)
	}
}

func TestSetUpCaptureStreamError(t *testing.T) {
	r := newTestRenderer(t, nil)
	mockDev(r).streamErr = errors.New("out of memory")
	r.OnSurfaceCreated()

	stop := renderLoop(r)
	err := r.SetUpCapture(&mockSource{})
	stop()
	if !errors.Is(err, ErrCaptureSetup) {
		t.Errorf("SetUpCapture() = %v, want ErrCaptureSetup", err)
	}
}

func TestSetUpCaptureArguments(t *testing.T) {
	r := newTestRenderer(t, nil)
	if err := r.SetUpCapture(nil); !errors.Is(err, ErrNilSource) {
		t.Errorf("SetUpCapture(nil) = %v, want ErrNilSource", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.SetUpCaptureContext(ctx, &mockSource{}); !errors.Is(err, context.Canceled) {
		t.Errorf("SetUpCaptureContext(canceled) = %v, want context.Canceled", err)
	}

	r.Release()
	if err := r.SetUpCapture(&mockSource{}); !errors.Is(err, ErrReleased) {
		t.Errorf("SetUpCapture after Release = %v, want ErrReleased", err)
	}
}

func TestStopCapture(t *testing.T) {
	r := newTestRenderer(t, nil)
	r.OnSurfaceCreated()

	src := &mockSource{}
	stop := renderLoop(r)
	if err := r.SetUpCapture(src); err != nil {
		stop()
		t.Fatalf("SetUpCapture() = %v", err)
	}
	stop()

	r.StopCapture()
	r.OnDrawFrame()
	if _, l, started := src.snapshot(); started || l != nil {
		t.Error("StopCapture did not stop the source")
	}
}

func TestSyntheticCaptureEndToEnd(t *testing.T) {
	dev := newMockDevice(nil)
	r, err := New(newMockFilter("f", dev.log), WithDevice(dev), WithConversionWorkers(2))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	r.OnSurfaceCreated()
	r.OnSurfaceChanged(64, 48)

	src := capture.NewSyntheticSource(32, 24, time.Hour)
	stop := renderLoop(r)
	if err := r.SetUpCapture(src); err != nil {
		stop()
		t.Fatalf("SetUpCapture() = %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for r.Stats().CaptureFramesUploaded == 0 {
		if time.Now().After(deadline) {
			stop()
			t.Fatal("no capture frame uploaded")
		}
		src.Emit()
		time.Sleep(2 * time.Millisecond)
	}
	stop()

	st := r.RenderState()
	if st.ImageWidth != 32 || st.ImageHeight != 24 {
		t.Errorf("image = %dx%d, want 32x24", st.ImageWidth, st.ImageHeight)
	}
	r.Release()
}
