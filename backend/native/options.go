package native

// Option configures a Device.
type Option func(*options)

type options struct {
	cacheCap int
}

func defaultOptions() options {
	return options{cacheCap: 64}
}

// WithShaderCacheSize bounds the number of compiled SPIR-V modules kept
// for reuse across programs with the same WGSL source.
func WithShaderCacheSize(n int) Option {
	return func(o *options) {
		o.cacheCap = n
	}
}
