package forecast

import (
	"context"
	"log/slog"
	"time"

	"swellcast/internal/features"
	"swellcast/internal/types"
)

// Engine is the prediction cascade the service sits on top of.
type Engine interface {
	Forecast(ctx context.Context, point types.GeoPoint) (types.ObservationSeries, types.Provenance, error)
}

// Service assembles the full forecast bundle: engine output rolled into
// daily summaries with calendar labels.
type Service struct {
	engine Engine
	clock  types.Clock
	logger *slog.Logger
}

// NewService constructs a forecast Service.
func NewService(engine Engine, clock types.Clock, logger *slog.Logger) *Service {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{engine: engine, clock: clock, logger: logger}
}

// Bundle produces the immutable forecast result for a point. The only error
// it can return is a fatal acquisition failure.
func (s *Service) Bundle(ctx context.Context, point types.GeoPoint) (*types.ForecastBundle, error) {
	hourly, prov, err := s.engine.Forecast(ctx, point)
	if err != nil {
		return nil, err
	}
	bundle := &types.ForecastBundle{
		Location:    point,
		Hourly:      hourly,
		Daily:       ToDaily(hourly),
		Provenance:  prov,
		GeneratedAt: s.clock.Now().UTC(),
	}
	s.logger.InfoContext(ctx, "forecast generated",
		"lat", point.Lat,
		"lng", point.Lng,
		"data_source", string(prov.DataSource),
		"method", string(prov.Method),
		"hours", len(hourly),
	)
	return bundle, nil
}

// Metadata carries the provenance block of the serving document.
type Metadata struct {
	DataSource     types.DataSource     `json:"dataSource"`
	ForecastMethod types.ForecastMethod `json:"forecastMethod"`
	GeneratedAt    time.Time            `json:"generatedAt"`
	TotalHours     int                  `json:"totalHours"`
}

// Document is the JSON shape both the CLI and the API emit: per-channel
// daily arrays alongside the raw hourly rows.
type Document struct {
	Location types.GeoPoint       `json:"location"`
	Labels   []string             `json:"labels"`
	Daily    map[string][]float64 `json:"daily"`
	Hourly   []types.HourlyPoint  `json:"hourly"`
	Metadata Metadata             `json:"metadata"`
}

// RenderDocument projects a bundle into the serving document, transposing
// the daily summaries into one array per channel.
func RenderDocument(bundle *types.ForecastBundle) *Document {
	daily := make(map[string][]float64, len(features.SequenceChannels))
	for _, name := range features.SequenceChannels {
		daily[name] = make([]float64, 0, len(bundle.Daily))
	}
	for _, d := range bundle.Daily {
		daily["waveHeight"] = append(daily["waveHeight"], d.WaveHeight)
		daily["wavePeriod"] = append(daily["wavePeriod"], d.WavePeriod)
		daily["swellHeight"] = append(daily["swellHeight"], d.SwellHeight)
		daily["swellPeriod"] = append(daily["swellPeriod"], d.SwellPeriod)
		daily["windSpeed"] = append(daily["windSpeed"], d.WindSpeed)
		daily["windDirection"] = append(daily["windDirection"], d.WindDirection)
	}
	return &Document{
		Location: bundle.Location,
		Labels:   DateLabels(bundle.GeneratedAt, len(bundle.Daily)),
		Daily:    daily,
		Hourly:   bundle.Hourly,
		Metadata: Metadata{
			DataSource:     bundle.Provenance.DataSource,
			ForecastMethod: bundle.Provenance.Method,
			GeneratedAt:    bundle.GeneratedAt,
			TotalHours:     len(bundle.Hourly),
		},
	}
}
