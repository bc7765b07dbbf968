package gpuimage

import "sync/atomic"

// Stats are cumulative renderer counters.
type Stats struct {
	// FramesDrawn counts completed OnDrawFrame calls.
	FramesDrawn uint64

	// ImageUploads counts successful SetImage uploads.
	ImageUploads uint64

	// CaptureFramesUploaded counts capture frames converted and uploaded.
	CaptureFramesUploaded uint64

	// CaptureFramesDropped counts capture frames dropped because the
	// pre-draw queue was busy.
	CaptureFramesDropped uint64

	// TaskFailures counts deferred tasks that returned an error or panicked.
	TaskFailures uint64

	// DrawErrors counts filter draws that failed.
	DrawErrors uint64
}

type counters struct {
	framesDrawn    atomic.Uint64
	imageUploads   atomic.Uint64
	captureUploads atomic.Uint64
	captureDropped atomic.Uint64
	taskFailures   atomic.Uint64
	drawErrors     atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		FramesDrawn:           c.framesDrawn.Load(),
		ImageUploads:          c.imageUploads.Load(),
		CaptureFramesUploaded: c.captureUploads.Load(),
		CaptureFramesDropped:  c.captureDropped.Load(),
		TaskFailures:          c.taskFailures.Load(),
		DrawErrors:            c.drawErrors.Load(),
	}
}
