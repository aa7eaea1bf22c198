// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Enforce UTC timezone to prevent drift bugs.
//  2. Load a .env file via godotenv (non-fatal if absent).
//  3. Use envconfig to process struct tags and populate the Config struct.
//  4. Validate the struct using go-playground/validator.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError is a diagnostic error type returned by LoadConfig.
type ConfigError struct {
	Stage   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Stage, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// LoadConfig loads and validates the process configuration. It is called
// once at startup; any error is fatal to the process.
func LoadConfig() (*Config, error) {
	// All timestamps in the pipeline are UTC. Forcing the process-local zone
	// here keeps time.Now() and formatting consistent regardless of host.
	time.Local = time.UTC

	// A missing .env file is the normal case outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{Stage: "envconfig", Message: "failed to process environment", Err: err}
	}

	if len(cfg.Collector.Spots) == 0 {
		cfg.Collector.Spots = DefaultSpots
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, &ConfigError{Stage: "validate", Message: "invalid configuration", Err: err}
	}
	if cfg.Stormglass.StartCursor >= len(cfg.Stormglass.APIKeys) && cfg.Stormglass.StartCursor != 0 {
		// The pool wraps the cursor itself; a large value is legal but almost
		// always a typo, so reject it here where the operator sees it.
		return nil, &ConfigError{Stage: "validate",
			Message: fmt.Sprintf("STORMGLASS_START_CURSOR %d exceeds pool size %d",
				cfg.Stormglass.StartCursor, len(cfg.Stormglass.APIKeys))}
	}
	return &cfg, nil
}
