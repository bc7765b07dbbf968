package gpuimage

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogpu/gpuimage/capture"
	"github.com/gogpu/gpuimage/gpucore"
	"github.com/gogpu/gpuimage/internal/taskqueue"
)

// OnPreviewFrame implements capture.Listener.
//
// The frame is dropped when the pre-draw queue still holds work, so at most
// one capture upload is pending at any time. Otherwise a task converts the
// frame to RGBA into a reused buffer, uploads it and recomputes the
// geometry when the frame size changed.
func (r *Renderer) OnPreviewFrame(data []byte, width, height int) {
	if r.State() == StateReleased {
		return
	}
	if !r.preDraw.IsEmpty() || !r.captureQueued.CompareAndSwap(false, true) {
		r.stats.captureDropped.Add(1)
		return
	}
	r.preDraw.EnqueueFunc(taskqueue.KindCaptureUpload, func() error {
		defer r.captureQueued.Store(false)
		return r.uploadFrame(data, width, height)
	})
}

func (r *Renderer) uploadFrame(data []byte, width, height int) error {
	if n := width * height * 4; len(r.rgba) != n {
		r.rgba = make([]byte, n)
	}
	if err := r.converter.Convert(data, width, height, r.rgba); err != nil {
		return fmt.Errorf("gpuimage: convert %dx%d frame: %w", width, height, err)
	}
	if _, err := r.textures.UploadPixels(r.rgba, width, height); err != nil {
		return err
	}
	if r.state.ImageWidth != width || r.state.ImageHeight != height {
		r.state.ImageWidth, r.state.ImageHeight = width, height
		r.state.AddedPadding = 0
		r.adjustImageScaling()
	}
	r.stats.captureUploads.Add(1)
	return nil
}

// SetUpCapture connects src to the renderer: on the rendering goroutine a
// stream texture is created and attached, the renderer is registered as
// the frame callback and the preview is started. SetUpCapture waits for
// that to happen and returns its error. It must not be called from the
// rendering goroutine.
func (r *Renderer) SetUpCapture(src capture.Source) error {
	return r.SetUpCaptureContext(context.Background(), src)
}

// SetUpCaptureContext is SetUpCapture with a context bounding the wait.
// When ctx ends first the setup still runs at the next frame.
func (r *Renderer) SetUpCaptureContext(ctx context.Context, src capture.Source) error {
	if src == nil {
		return ErrNilSource
	}
	if r.State() == StateReleased {
		return ErrReleased
	}

	result := make(chan error, 1)
	r.preDraw.EnqueueFunc(taskqueue.KindCaptureSetup, func() error {
		err := r.setUpCapture(src)
		result <- err
		return err
	})

	select {
	case err := <-result:
		return err
	case <-r.released:
		return ErrReleased
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Renderer) setUpCapture(src capture.Source) error {
	r.stopCapture()

	st, err := r.dev.NewStreamTexture()
	switch {
	case errors.Is(err, gpucore.ErrStreamUnsupported):
		Logger().Debug("gpuimage: device has no stream textures, capture uses callbacks only")
		st = nil
	case err != nil:
		return r.captureFailed(fmt.Errorf("stream texture: %w", err))
	}

	if err := src.SetPreviewTexture(st); err != nil {
		releaseStream(st)
		return r.captureFailed(fmt.Errorf("preview texture: %w", err))
	}
	src.SetPreviewCallback(r)
	if err := src.StartPreview(); err != nil {
		src.SetPreviewCallback(nil)
		releaseStream(st)
		return r.captureFailed(fmt.Errorf("start preview: %w", err))
	}

	r.stream = st
	r.source = src
	Logger().Info("gpuimage: capture started", "stream", st != nil)
	return nil
}

func (r *Renderer) captureFailed(err error) error {
	Logger().Warn("gpuimage: capture setup failed", "err", err)
	return fmt.Errorf("%w: %w", ErrCaptureSetup, err)
}

// StopCapture stops the capture source at the next frame.
func (r *Renderer) StopCapture() {
	r.preDraw.EnqueueFunc(taskqueue.KindCaptureSetup, func() error {
		r.stopCapture()
		return nil
	})
}

func (r *Renderer) stopCapture() {
	if r.source != nil {
		r.source.StopPreview()
		r.source.SetPreviewCallback(nil)
		r.source = nil
	}
	releaseStream(r.stream)
	r.stream = nil
}

func releaseStream(st gpucore.StreamTexture) {
	if st != nil {
		st.Release()
	}
}
