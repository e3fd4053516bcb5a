package config

// Option defines a configuration option that can be passed to Load
type Option func(*options) error

// options holds internal configuration options
type options struct {
	configPath string
}

// WithConfigFile specifies an explicit configuration file path. It takes
// precedence over PGSAMPLER_CONFIG and the search paths.
func WithConfigFile(path string) Option {
	return func(o *options) error {
		o.configPath = path
		return nil
	}
}
