// Package filter provides the filters a gpuimage renderer draws with.
//
// A filter owns one GPU program and draws the current image texture as a
// single textured quad. [Base] implements the lifecycle shared by all
// filters (lazy program creation, output size tracking, per-draw task
// queue, teardown); concrete filters embed it and supply a
// [gpucore.ProgramSource].
//
// Bundled filters:
//   - Passthrough: draws the image unchanged
//   - Color matrix: 4x5 color transforms (grayscale, sepia, invert,
//     brightness, contrast, saturation, hue rotation, opacity)
//
// Every program is provided as GLSL ES for the OpenGL ES backend, as WGSL
// for the wgpu backend and as a CPU kernel for the software backend.
package filter
