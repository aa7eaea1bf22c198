// Package main implements the forecast CLI.
//
// Usage:
//
//	forecast <lat> <lng>
//
// On success it prints one JSON forecast document to stdout. The pipeline
// degrades rather than fails: missing data, quota exhaustion, and model
// problems all still produce a document, with the degradation recorded in
// its metadata. Only coordinate validation errors and fatal provider
// rejections exit non-zero, printing {error, location} to stderr.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"swellcast/internal/app"
	"swellcast/internal/config"
	"swellcast/internal/forecast"
	"swellcast/internal/types"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: forecast <lat> <lng>")
		return fmt.Errorf("bad arguments")
	}

	lat, latErr := strconv.ParseFloat(os.Args[1], 64)
	lng, lngErr := strconv.ParseFloat(os.Args[2], 64)
	if latErr != nil || lngErr != nil {
		return fail(lat, lng, fmt.Errorf("coordinates must be numbers"))
	}
	point, err := types.NewGeoPoint(lat, lng)
	if err != nil {
		return fail(lat, lng, err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fail(lat, lng, err)
	}
	logger := app.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rec, err := app.NewMetrics(ctx, cfg.Metrics, logger)
	if err != nil {
		return fail(lat, lng, err)
	}
	svc, err := app.NewForecastService(cfg, logger, rec)
	if err != nil {
		return fail(lat, lng, err)
	}

	bundle, err := svc.Bundle(ctx, point)
	if err != nil {
		return fail(lat, lng, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(forecast.RenderDocument(bundle)); err != nil {
		return fail(lat, lng, err)
	}
	return nil
}

// fail prints the error document to stderr and propagates the error so main
// exits non-zero.
func fail(lat, lng float64, err error) error {
	doc := map[string]any{
		"error":    err.Error(),
		"location": map[string]float64{"lat": lat, "lng": lng},
	}
	_ = json.NewEncoder(os.Stderr).Encode(doc)
	return err
}
