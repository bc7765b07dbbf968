// Package software provides a CPU implementation of gpucore.Device.
//
// Textures are *image.RGBA values in premultiplied alpha. A draw maps the
// texture-coordinate quad onto the vertex quad with an affine transform,
// samples bilinearly and then runs the program's gpucore.Kernel over the
// covered pixels in parallel row bands.
//
// The backend registers itself as "software" on import:
//
//	import _ "github.com/gogpu/gpuimage/backend/software"
//
// It is always available and is the last choice of backend.Default.
package software
