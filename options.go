package gpuimage

import (
	"github.com/gogpu/gpuimage/capture"
	"github.com/gogpu/gpuimage/geometry"
	"github.com/gogpu/gpuimage/gpucore"
)

// Option configures a Renderer during creation.
//
// Example:
//
//	// Default backend, passthrough filter
//	r, err := gpuimage.New(nil)
//
//	// Explicit device and a fitted, rotated image
//	r, err := gpuimage.New(filter.NewSepia(),
//		gpuimage.WithDevice(dev),
//		gpuimage.WithScaleType(geometry.Fit),
//		gpuimage.WithRotation(geometry.Rotation90, false, false))
type Option func(*options)

// options holds optional configuration for Renderer creation.
type options struct {
	device    gpucore.Device
	backend   string
	converter capture.Converter
	cfg       config
	workers   int
}

func defaultOptions() options {
	return options{
		cfg: config{
			scaleType: geometry.CenterCrop,
		},
	}
}

// WithDevice sets the device the renderer draws with. Without it the
// renderer asks the backend registry for the best available device.
func WithDevice(dev gpucore.Device) Option {
	return func(o *options) {
		o.device = dev
	}
}

// WithBackend selects a registered backend by name instead of the default
// priority order. Ignored when WithDevice is given.
func WithBackend(name string) Option {
	return func(o *options) {
		o.backend = name
	}
}

// WithConverter sets the converter used for capture frames. The default
// is an NV21 converter owned and closed by the renderer.
func WithConverter(c capture.Converter) Option {
	return func(o *options) {
		o.converter = c
	}
}

// WithConversionWorkers sets the number of goroutines of the default NV21
// converter. 0 means GOMAXPROCS.
func WithConversionWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithScaleType sets the initial scale type. The default is
// geometry.CenterCrop.
func WithScaleType(s geometry.ScaleType) Option {
	return func(o *options) {
		o.cfg.scaleType = s
	}
}

// WithBackgroundColor sets the initial clear color.
func WithBackgroundColor(r, g, b float32) Option {
	return func(o *options) {
		o.cfg.background = Color{R: r, G: g, B: b}
	}
}

// WithRotation sets the initial rotation and flips.
func WithRotation(rot geometry.Rotation, flipHorizontal, flipVertical bool) Option {
	return func(o *options) {
		o.cfg.rotation = rot
		o.cfg.flipHorizontal = flipHorizontal
		o.cfg.flipVertical = flipVertical
	}
}
