package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Option customizes how environment variables are mapped onto a struct.
type Option func(*env.Options)

// WithPrefix prepends prefix to every `env` tag, e.g. "PROMOTION_".
func WithPrefix(prefix string) Option {
	return func(o *env.Options) {
		o.Prefix = prefix
	}
}

// WithEnvironment parses from the given map instead of the process
// environment. Mainly useful in tests.
func WithEnvironment(vars map[string]string) Option {
	return func(o *env.Options) {
		o.Environment = vars
	}
}

// Load parses environment variables into cfg, which must be a pointer to a
// struct using `env` and `envDefault` tags:
//
//	type Config struct {
//	    Port     int    `env:"HTTP_PORT" envDefault:"8080"`
//	    LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
//	}
func Load(cfg any, opts ...Option) error {
	var o env.Options
	for _, opt := range opts {
		opt(&o)
	}
	if err := env.ParseWithOptions(cfg, o); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
