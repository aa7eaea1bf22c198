// Package app wires the pipeline components from configuration. The three
// binaries (api, forecast, collector) share this bootstrap so their wiring
// cannot drift apart.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"swellcast/internal/acquisition"
	"swellcast/internal/config"
	"swellcast/internal/forecast"
	"swellcast/internal/metrics"
	"swellcast/internal/predict"
	"swellcast/internal/stormglass"
	"swellcast/internal/types"
)

// NewLogger builds the process-wide structured JSON logger.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// NewMetrics builds the metrics recorder: a CloudWatch publisher when
// enabled, otherwise a no-op.
func NewMetrics(ctx context.Context, cfg config.MetricsConfig, logger *slog.Logger) (metrics.Recorder, error) {
	if !cfg.Enabled {
		return metrics.Noop{}, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("loading AWS configuration: %w", err)
	}
	return metrics.NewCloudWatchRecorder(cloudwatch.NewFromConfig(awsCfg), cfg.Namespace, logger), nil
}

// NewStormglassClient builds the rotating-credential provider client.
func NewStormglassClient(cfg config.StormglassConfig, logger *slog.Logger, rec metrics.Recorder) (*stormglass.Client, error) {
	pool, err := stormglass.NewCredentialPool(cfg.APIKeys, cfg.StartCursor)
	if err != nil {
		return nil, err
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}
	return stormglass.NewClient(cfg.BaseURL, pool, httpClient, logger,
		stormglass.WithMetrics(rec),
		stormglass.WithRetryPolicy(cfg.MaxRetries, cfg.RetryBase),
	), nil
}

// NewForecastService assembles the full serving pipeline: provider client,
// acquisition, prediction cascade, and aggregation.
func NewForecastService(cfg *config.Config, logger *slog.Logger, rec metrics.Recorder) (*forecast.Service, error) {
	client, err := NewStormglassClient(cfg.Stormglass, logger, rec)
	if err != nil {
		return nil, err
	}
	acq := acquisition.NewService(client, types.RealClock{}, logger, rec)

	engineOpts := []predict.EngineOption{
		predict.WithEngineMetrics(rec),
		predict.WithHistoryHours(cfg.Forecast.HistoryHours),
	}
	if cfg.Forecast.ModelPath != "" {
		model, err := predict.LoadArtifact(cfg.Forecast.ModelPath)
		if err != nil {
			// An unusable artifact degrades to the trend fallback rather
			// than blocking startup.
			logger.Warn("model artifact unusable, serving without it",
				"path", cfg.Forecast.ModelPath,
				"error_code", string(types.CodeOf(err)),
				"error", err,
			)
		} else {
			engineOpts = append(engineOpts, predict.WithModel(model))
			logger.Info("model artifact loaded", "path", cfg.Forecast.ModelPath)
		}
	}
	engine := predict.NewEngine(acq, logger, engineOpts...)
	return forecast.NewService(engine, types.RealClock{}, logger), nil
}
