// Package config defines the process configuration. Configuration is loaded
// once at startup and immutable thereafter, following 12-Factor principles:
// OS environment (highest priority) over a .env file. Any missing required
// value or invalid format fails the process immediately.
package config

import (
	"encoding/json"
	"fmt"
	"time"

	"swellcast/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging.
type SecretString = types.SecretString

// Config is the top-level configuration struct. Sub-components receive only
// the specific subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"swellcast"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Server     ServerConfig
	Stormglass StormglassConfig
	Forecast   ForecastConfig
	Collector  CollectorConfig
	Metrics    MetricsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
}

// StormglassConfig holds the weather provider endpoint and credential pool.
type StormglassConfig struct {
	BaseURL string `envconfig:"STORMGLASS_BASE_URL" default:"https://api.stormglass.io/v2" validate:"required,url"`
	// APIKeys is the rotation pool, comma-separated in the environment.
	APIKeys []SecretString `envconfig:"STORMGLASS_API_KEYS" validate:"required,min=1"`
	// StartCursor selects which credential the rotation begins at.
	StartCursor int           `envconfig:"STORMGLASS_START_CURSOR" default:"0" validate:"gte=0"`
	Timeout     time.Duration `envconfig:"STORMGLASS_TIMEOUT" default:"10s"`
	MaxRetries  int           `envconfig:"STORMGLASS_MAX_RETRIES" default:"3" validate:"gte=1"`
	RetryBase   time.Duration `envconfig:"STORMGLASS_RETRY_BASE" default:"2s"`
}

// ForecastConfig holds serving-path parameters.
type ForecastConfig struct {
	HistoryHours int `envconfig:"FORECAST_HISTORY_HOURS" default:"168" validate:"gte=48"`
	// ModelPath points at a trained artifact manifest. Empty disables the
	// model stage; the cascade then starts at trend extrapolation.
	ModelPath string `envconfig:"MODEL_PATH"`
}

// CollectorConfig holds historical backfill parameters.
type CollectorConfig struct {
	WindowDays          int      `envconfig:"COLLECTOR_WINDOW_DAYS" default:"10" validate:"gte=1,lte=10"`
	PerCredentialBudget int      `envconfig:"COLLECTOR_PER_CREDENTIAL_BUDGET" default:"10" validate:"gte=1"`
	OutputDir           string   `envconfig:"COLLECTOR_OUTPUT_DIR" default:"./data"`
	Compress            bool     `envconfig:"COLLECTOR_COMPRESS" default:"false"`
	Resume              bool     `envconfig:"COLLECTOR_RESUME" default:"false"`
	Spots               SpotList `envconfig:"COLLECTOR_SPOTS"`
}

// MetricsConfig holds CloudWatch publishing configuration.
type MetricsConfig struct {
	Enabled   bool   `envconfig:"METRICS_ENABLED" default:"false"`
	Namespace string `envconfig:"METRICS_NAMESPACE" default:"SwellCast"`
	AWSRegion string `envconfig:"AWS_REGION" default:"us-east-1"`
}

// Spot is one named collection target.
type Spot struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// SpotList decodes a JSON array of spots from a single environment variable.
type SpotList []Spot

// Decode implements envconfig.Decoder.
func (s *SpotList) Decode(value string) error {
	var spots []Spot
	if err := json.Unmarshal([]byte(value), &spots); err != nil {
		return fmt.Errorf("COLLECTOR_SPOTS must be a JSON array of {name,lat,lng}: %w", err)
	}
	*s = spots
	return nil
}

// DefaultSpots are the collection targets used when COLLECTOR_SPOTS is unset.
var DefaultSpots = SpotList{
	{Name: "Weligama", Latitude: 5.972, Longitude: 80.426},
	{Name: "Arugam Bay", Latitude: 6.843, Longitude: 81.829},
}
