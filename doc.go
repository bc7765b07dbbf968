// Package gpuimage renders camera frames and still images through a GPU
// filter in real time.
//
// # Overview
//
// A [Renderer] owns one image texture and one [filter.Filter]. The host
// drawing surface calls it once when the surface is created, once per
// resize and once per frame; a capture source calls it once per camera
// frame. Everything else (new images, filter swaps, rotation, scale type,
// background color) is requested from any goroutine and applied on the
// rendering goroutine at the start of the next frame.
//
// # Quick Start
//
//	import (
//		"github.com/gogpu/gpuimage"
//		"github.com/gogpu/gpuimage/backend/software"
//		"github.com/gogpu/gpuimage/filter"
//	)
//
//	dev := software.New()
//	r, err := gpuimage.New(filter.NewSepia(), gpuimage.WithDevice(dev))
//	if err != nil {
//		log.Fatal(err)
//	}
//	r.SetImage(img, false)
//
//	r.OnSurfaceCreated()
//	r.OnSurfaceChanged(1080, 1920)
//	r.OnDrawFrame()
//
//	out := dev.Framebuffer()
//
// # Frame Loop
//
// Each OnDrawFrame clears the viewport, drains the pre-draw queue (uploads,
// filter swaps, configuration changes), draws the current texture with the
// active filter, drains the post-draw queue and latches the capture stream
// texture, if any.
//
// # Geometry
//
// The image is mapped onto the viewport by the [geometry] package: rotation
// in 90 degree steps, horizontal and vertical flips, and either
// [geometry.CenterCrop] (fill and crop, the default) or [geometry.Fit]
// (letterbox).
//
// # Capture
//
// The Renderer implements [capture.Listener]. Attach a source with
// SetUpCapture; frames are converted from NV21 to RGBA and uploaded on the
// rendering goroutine. A frame arriving while earlier work is still queued
// is dropped, so a slow GPU never builds a backlog of camera frames.
//
// # Backends
//
// Devices come from the [backend] registry: a wgpu HAL device
// (backend/native), OpenGL ES through golang.org/x/mobile/gl
// (backend/gles, build tag gles) and a CPU reference device
// (backend/software).
package gpuimage
