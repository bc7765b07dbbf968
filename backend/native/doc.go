// Package native implements gpucore.Device on a gogpu/wgpu HAL device
// (Vulkan, Metal, DX12 or OpenGL, whichever the platform provides).
//
// Filters run their WGSL programs, compiled to SPIR-V with naga. Frames are
// rendered into an offscreen RGBA8 target that can be read back with
// Framebuffer.
//
// Importing the package registers the "native" backend. Its factory opens
// the first hardware adapter found among the HAL backends linked into the
// binary, so applications also import the HAL backends they want:
//
//	import (
//		_ "github.com/gogpu/gpuimage/backend/native"
//		_ "github.com/gogpu/wgpu/hal/allbackends"
//	)
//
// A device shared with a windowing library is wrapped with NewFromProvider.
package native
