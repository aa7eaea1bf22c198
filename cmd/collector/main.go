// Package main implements the historical data collector.
//
// For every configured spot it walks backward through the provider's
// history in bounded windows, spending a fixed request sub-budget per
// credential, and writes the accumulated rows as one archive artifact per
// spot. Spots are collected concurrently; each worker gets its own client
// so credential cursors never interleave across spots.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"swellcast/internal/acquisition"
	"swellcast/internal/app"
	"swellcast/internal/config"
	"swellcast/internal/metrics"
	"swellcast/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	logger := app.NewLogger(cfg.LogLevel)
	logger.Info("collector starting",
		"spots", len(cfg.Collector.Spots),
		"window_days", cfg.Collector.WindowDays,
		"per_credential_budget", cfg.Collector.PerCredentialBudget,
		"output_dir", cfg.Collector.OutputDir,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rec, err := app.NewMetrics(ctx, cfg.Metrics, logger)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, spot := range cfg.Collector.Spots {
		g.Go(func() error {
			return collectSpot(ctx, cfg, spot, logger, rec)
		})
	}
	return g.Wait()
}

func collectSpot(ctx context.Context, cfg *config.Config, spot config.Spot, logger *slog.Logger, rec metrics.Recorder) error {
	log := logger.With("spot", spot.Name)

	point, err := types.NewGeoPoint(spot.Latitude, spot.Longitude)
	if err != nil {
		return fmt.Errorf("spot %s: %w", spot.Name, err)
	}

	client, err := app.NewStormglassClient(cfg.Stormglass, log, rec)
	if err != nil {
		return err
	}
	svc := acquisition.NewService(client, types.RealClock{}, log, rec)

	opts := acquisition.BackfillOptions{
		Spot:          spot.Name,
		WindowDays:    cfg.Collector.WindowDays,
		PerCredential: cfg.Collector.PerCredentialBudget,
	}
	if cfg.Collector.Resume {
		resumeEnd, err := acquisition.ResumePoint(cfg.Collector.OutputDir, spot.Name)
		if err != nil {
			return fmt.Errorf("spot %s: %w", spot.Name, err)
		}
		if !resumeEnd.IsZero() {
			log.Info("resuming from previous archive", "resume_end", resumeEnd)
			opts.ResumeEnd = resumeEnd
		}
	}

	result, err := svc.BackfillArchive(ctx, point, opts)
	if err != nil {
		return fmt.Errorf("spot %s: %w", spot.Name, err)
	}

	doc := acquisition.BuildArchive(spot.Name, point, result, types.RealClock{}.Now())
	path, err := acquisition.WriteArchive(doc, cfg.Collector.OutputDir, cfg.Collector.Compress)
	if err != nil {
		return fmt.Errorf("spot %s: %w", spot.Name, err)
	}

	log.Info("archive written",
		"path", path,
		"requests_used", result.RequestsUsed,
		"total_hours", len(result.Hours),
		"days_collected", result.RequestsUsed*result.WindowDays,
	)
	return nil
}
