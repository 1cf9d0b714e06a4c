// Package config loads typed configuration from environment variables.
//
// A .env file in the working directory is read once (missing files are
// ignored), then env.Parse fills the struct from its `env` tags and the
// `validate` tags are checked. Each type is parsed once per process:
//
//	type Config struct {
//		Addr string `env:"HTTP_ADDR" envDefault:":8080" validate:"required"`
//	}
//
//	cfg, err := config.Load[Config]()
//
// Tests that need a fresh parse use Parse, which bypasses the cache.
package config
