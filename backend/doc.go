// Package backend selects the GPU device a gpuimage renderer draws with.
//
// # Backend Registration
//
// Backends register a factory from an init function and are selected at
// runtime. Importing a backend package is enough to make it available:
//
//	import _ "github.com/gogpu/gpuimage/backend/software"
//
// # Backend Selection
//
// Use Default to get the best available device, or Get to request one by
// name:
//
//	dev, err := backend.Default()
//
//	// Or a specific backend
//	dev, err := backend.Get(backend.NameSoftware)
//
// Default tries native, then gles, then software.
//
// # Logging
//
// Backends log through [Logger]. gpuimage.SetLogger forwards its logger
// here, so backends share the renderer's configuration without importing
// the root package.
package backend
