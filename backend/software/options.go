package software

// Option configures a Device.
type Option func(*options)

type options struct {
	workers  int
	validate bool
	cacheCap int
}

func defaultOptions() options {
	return options{cacheCap: 64}
}

// WithWorkers sets the number of goroutines used to run kernels.
// 0 means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithShaderValidation makes CreateProgram compile the WGSL source of
// every program with naga and reject programs that do not compile. The
// result is cached per source.
func WithShaderValidation(enabled bool) Option {
	return func(o *options) {
		o.validate = enabled
	}
}

// WithValidationCacheSize bounds the number of cached validation results.
func WithValidationCacheSize(n int) Option {
	return func(o *options) {
		o.cacheCap = n
	}
}
