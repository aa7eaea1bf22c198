// Package metrics publishes pipeline telemetry to CloudWatch: acquisition
// attempt outcomes, credential rotations, backfill volume, and forecast
// provenance. All recording is best-effort; a metrics failure never affects
// the pipeline result.
package metrics

import (
	"context"

	"swellcast/internal/types"
)

// Attempt outcome dimension values.
const (
	OutcomeSuccess       = "success"
	OutcomeAuthExhausted = "auth_exhausted"
	OutcomeTransient     = "transient"
	OutcomeFatal         = "fatal"
	OutcomeEmpty         = "empty"
)

// Metric names.
const (
	MetricAcquisitionAttempt = "AcquisitionAttempt"
	MetricCredentialRotation = "CredentialRotation"
	MetricBackfillRequests   = "BackfillRequests"
	MetricBackfillHours      = "BackfillHours"
	MetricForecastGenerated  = "ForecastGenerated"
)

// Dimension names.
const (
	DimOutcome    = "Outcome"
	DimDataSource = "DataSource"
	DimMethod     = "Method"
)

// Recorder is the telemetry interface the pipeline components depend on.
type Recorder interface {
	// RecordAttempt records one provider request outcome.
	RecordAttempt(ctx context.Context, outcome string)
	// RecordRotation records one credential cursor advance.
	RecordRotation(ctx context.Context)
	// RecordBackfill records the hourly-row volume of a completed backfill.
	RecordBackfill(ctx context.Context, requestsUsed, totalHours int)
	// RecordForecast records a produced forecast with its provenance.
	RecordForecast(ctx context.Context, source types.DataSource, method types.ForecastMethod)
}

// Noop is a Recorder that discards everything. Used when metrics are
// disabled and as the nil-safe default in constructors.
type Noop struct{}

func (Noop) RecordAttempt(context.Context, string)                              {}
func (Noop) RecordRotation(context.Context)                                     {}
func (Noop) RecordBackfill(context.Context, int, int)                           {}
func (Noop) RecordForecast(context.Context, types.DataSource, types.ForecastMethod) {}
