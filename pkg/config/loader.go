// Package config loads typed configuration structs from environment
// variables, with optional .env file support for local development.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	cacheMu sync.RWMutex
	cache   = make(map[string]any)

	dotenvOnce sync.Once
)

// Load parses environment variables into v based on `env` struct tags. Each
// configuration type is parsed once per process; later calls return the
// cached value. The default .env file is loaded lazily and its absence is
// not an error.
//
//	type FlowConfig struct {
//		Providers []string `env:"SOCIALAUTH_PROVIDERS" envSeparator:","`
//	}
//
//	var cfg FlowConfig
//	if err := config.Load(&cfg); err != nil { ... }
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})

	key := typeName[T]()

	cacheMu.RLock()
	cached, ok := cache[key]
	cacheMu.RUnlock()
	if ok {
		*v = cached.(T)
		return nil
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	cacheMu.Lock()
	cache[key] = *v
	cacheMu.Unlock()
	return nil
}

func typeName[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.PkgPath() == "" {
		return t.String()
	}
	return fmt.Sprintf("%s.%s", t.PkgPath(), t.Name())
}
