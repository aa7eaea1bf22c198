// Package acquisition builds the two data-acquisition operations on top of
// the rotating-credential client: FetchWindow for live serving and
// BackfillArchive for paginated historical collection.
package acquisition

import (
	"context"
	"log/slog"
	"time"

	"swellcast/internal/features"
	"swellcast/internal/metrics"
	"swellcast/internal/stormglass"
	"swellcast/internal/types"
)

// Attempter is the subset of the stormglass client the service depends on.
type Attempter interface {
	Attempt(ctx context.Context, point types.GeoPoint, window types.TimeWindow, params []string) (*stormglass.WindowData, error)
	AttemptPinned(ctx context.Context, credIndex int, point types.GeoPoint, window types.TimeWindow, params []string) (*stormglass.WindowData, error)
	PoolSize() int
}

// DefaultPerCredentialBudget is the number of backfill requests allotted to
// each credential before moving to the next (free-tier daily quota).
const DefaultPerCredentialBudget = 10

// Service exposes the acquisition operations.
type Service struct {
	client  Attempter
	clock   types.Clock
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewService constructs an acquisition Service.
func NewService(client Attempter, clock types.Clock, logger *slog.Logger, rec metrics.Recorder) *Service {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Service{client: client, clock: clock, logger: logger, metrics: rec}
}

// FetchWindow acquires the most recent `hours` of observations for the point,
// delegating a single rotation sweep to the client. It returns a
// time-ascending series or a typed failure (exhausted, fatal, empty).
func (s *Service) FetchWindow(ctx context.Context, point types.GeoPoint, hours int) (types.ObservationSeries, error) {
	end := s.clock.Now()
	window, err := types.NewTimeWindow(end.Add(-time.Duration(hours)*time.Hour), end)
	if err != nil {
		return nil, err
	}
	data, err := s.client.Attempt(ctx, point, window, features.SequenceChannels)
	if err != nil {
		return nil, err
	}
	return data.Series, nil
}

// BackfillOptions configures one historical collection run.
type BackfillOptions struct {
	// Spot is a human-readable name recorded in the archive metadata.
	Spot string
	// WindowDays is the span of each request window. Defaults to the
	// provider maximum (10 days).
	WindowDays int
	// PerCredential is the request sub-budget allotted to each credential.
	// Defaults to DefaultPerCredentialBudget.
	PerCredential int
	// Budget caps total requests across all credentials. Zero means
	// poolSize × PerCredential.
	Budget int
	// ResumeEnd, when non-zero, restarts the backward walk from this end
	// timestamp instead of the current date. Used to resume interrupted runs.
	ResumeEnd time.Time
	// Params overrides the requested parameter list. Defaults to the full
	// archive parameter set.
	Params []string
}

func (o *BackfillOptions) applyDefaults(poolSize int) {
	if o.WindowDays <= 0 {
		o.WindowDays = types.MaxWindowDays
	}
	if o.PerCredential <= 0 {
		o.PerCredential = DefaultPerCredentialBudget
	}
	if o.Budget <= 0 {
		o.Budget = poolSize * o.PerCredential
	}
	if len(o.Params) == 0 {
		o.Params = stormglass.ArchiveParameters
	}
}

// BackfillResult is the accumulated output of a backfill run.
type BackfillResult struct {
	// Hours holds the raw provider rows, time-ascending.
	Hours []stormglass.Hour
	// Series is the reconciled view of Hours on the sequence channels.
	Series types.ObservationSeries
	// RequestsUsed counts successful requests; each contributes WindowDays
	// days of hourly rows to the "days collected" accounting.
	RequestsUsed int
	// WindowDays echoes the window span the run used.
	WindowDays int
	// Earliest is the timestamp of the oldest collected row.
	Earliest time.Time
}

// BackfillArchive paginates backward in time: starting from the resume date
// (or the current midnight), it repeatedly requests the preceding WindowDays
// span and prepends the rows to the accumulator. Each credential spends a
// fixed sub-budget of requests; quota or persistent transient failure on a
// credential skips to the next one with the window unchanged. The walk stops
// on budget exhaustion, credential exhaustion, an empty response (no older
// history), or a fatal parameter rejection, which aborts the whole run.
func (s *Service) BackfillArchive(ctx context.Context, point types.GeoPoint, opts BackfillOptions) (*BackfillResult, error) {
	opts.applyDefaults(s.client.PoolSize())

	end := opts.ResumeEnd
	if end.IsZero() {
		end = midnight(s.clock.Now())
	}

	result := &BackfillResult{WindowDays: opts.WindowDays}
	span := time.Duration(opts.WindowDays) * 24 * time.Hour

	for reqIdx := 0; reqIdx < opts.Budget; reqIdx++ {
		credIdx := reqIdx / opts.PerCredential
		if credIdx >= s.client.PoolSize() {
			s.logger.Info("backfill stopped: allocated credentials exhausted",
				"requests_used", result.RequestsUsed)
			break
		}
		if ctx.Err() != nil {
			return nil, types.NewAppError(types.ErrCodeAcqTransient, "backfill cancelled", ctx.Err())
		}

		start := end.Add(-span)
		window, err := types.NewTimeWindow(start, end)
		if err != nil {
			return nil, err
		}

		s.logger.Info("backfill request",
			"spot", opts.Spot,
			"request", reqIdx+1,
			"budget", opts.Budget,
			"credential_index", credIdx,
			"window_start", start.Format(time.DateOnly),
			"window_end", end.Format(time.DateOnly),
		)

		data, err := s.client.AttemptPinned(ctx, credIdx, point, window, opts.Params)
		if err != nil {
			switch types.CodeOf(err) {
			case types.ErrCodeAcqFatalParams:
				// Configuration bug; nothing further can succeed.
				return nil, err
			case types.ErrCodeAcqEmpty:
				s.logger.Info("backfill stopped: provider has no older history",
					"earliest", result.Earliest)
				s.finish(ctx, result)
				return result, nil
			default:
				// Quota or persistent transient failure on this credential:
				// jump to the first request of the next credential block,
				// keeping the window so no span is skipped.
				s.logger.Warn("backfill credential failed, moving to next",
					"credential_index", credIdx,
					"error", err,
				)
				reqIdx = (credIdx+1)*opts.PerCredential - 1
				continue
			}
		}

		result.Hours = append(data.Hours, result.Hours...)
		result.Series = append(append(types.ObservationSeries{}, data.Series...), result.Series...)
		result.RequestsUsed++
		result.Earliest = start
		end = start
	}

	s.finish(ctx, result)
	return result, nil
}

func (s *Service) finish(ctx context.Context, result *BackfillResult) {
	if len(result.Hours) > 0 {
		result.Earliest = result.Hours[0].Time
	}
	s.metrics.RecordBackfill(ctx, result.RequestsUsed, len(result.Hours))
	s.logger.Info("backfill complete",
		"requests_used", result.RequestsUsed,
		"total_hours", len(result.Hours),
		"days_collected", result.RequestsUsed*result.WindowDays,
	)
}

func midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
