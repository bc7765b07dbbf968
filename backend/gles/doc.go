// Package gles implements gpucore.Device on an OpenGL ES 2 context from
// golang.org/x/mobile/gl.
//
// The package needs cgo and the GLES headers, so it is compiled only with
// the gles build tag:
//
//	go build -tags gles
//
// A GL context belongs to the application (a gomobile app, a GLFW window),
// so the backend is not registered on import. Wrap a context with New, or
// call Register to make it the "gles" backend:
//
//	glctx, worker := gl.NewContext()
//	gles.Register(glctx)
//
// Every Device method issues GL calls and must run on the goroutine that
// drives the context, the renderer's rendering goroutine.
package gles
