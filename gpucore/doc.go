// Package gpucore defines the GPU binding contract used by the gpuimage
// renderer, its filters and its backends.
//
// The renderer never talks to a graphics API directly. Everything it needs
// from the GPU is expressed by the [Device] interface: a clear color, a
// viewport, programs, textures and a single textured-quad draw. Backends
// (software, OpenGL ES, wgpu HAL) implement [Device]; filters receive it at
// initialization time.
//
//	            +-------------------+
//	            | gpuimage.Renderer |
//	            +---------+---------+
//	                      |
//	          +-----------+-----------+
//	          |                       |
//	  +-------v-------+       +-------v-------+
//	  | texture.Manager|      | filter.Filter |
//	  +-------+-------+       +-------+-------+
//	          |                       |
//	          +-----------+-----------+
//	                      |
//	             +--------v--------+
//	             |  gpucore.Device |
//	             +--------+--------+
//	                      |
//	     +----------------+----------------+
//	     |                |                |
//	 software           gles             native
//	 (image/draw)   (x/mobile/gl)     (gogpu/wgpu hal)
//
// # Resource Management
//
// GPU resources are referred to by opaque IDs ([TextureID], [ProgramID]).
// Backends keep the mapping between IDs and real resources. [InvalidID] is
// never handed out, so a zero ID always means "no resource".
//
// # Threading
//
// A Device is owned by the rendering goroutine. None of its methods may be
// called from another goroutine; producers go through the renderer's
// deferred task queues instead.
package gpucore
