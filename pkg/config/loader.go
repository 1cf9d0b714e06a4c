package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type entry struct {
	once  sync.Once
	value any
	err   error
}

var (
	cacheMu sync.Mutex
	cache   = make(map[reflect.Type]*entry)

	dotenvOnce sync.Once
	validate   = validator.New(validator.WithRequiredStructEnabled())
)

// Load parses T from the environment once and returns the cached value on
// later calls. A failed parse is cached too.
func Load[T any]() (T, error) {
	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})

	key := reflect.TypeFor[T]()
	cacheMu.Lock()
	e, ok := cache[key]
	if !ok {
		e = &entry{}
		cache[key] = e
	}
	cacheMu.Unlock()

	e.once.Do(func() {
		e.value, e.err = Parse[T]()
	})

	if e.err != nil {
		var zero T
		return zero, e.err
	}
	return e.value.(T), nil
}

// MustLoad is Load for configuration the process cannot start without.
func MustLoad[T any]() T {
	cfg, err := Load[T]()
	if err != nil {
		panic(fmt.Sprintf("failed to load required configuration %s: %v", reflect.TypeFor[T](), err))
	}
	return cfg
}

// Parse reads T from the current environment without caching.
func Parse[T any]() (T, error) {
	var cfg T
	if err := env.Parse(&cfg); err != nil {
		return cfg, errors.Join(ErrParsingConfig, err)
	}
	if reflect.TypeFor[T]().Kind() == reflect.Struct {
		if err := validate.Struct(&cfg); err != nil {
			return cfg, errors.Join(ErrInvalidConfig, err)
		}
	}
	return cfg, nil
}
