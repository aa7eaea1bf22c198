package predict

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"swellcast/internal/features"
	"swellcast/internal/metrics"
	"swellcast/internal/types"
)

// Acquirer fetches the trailing observation window the engine feeds into the
// model. Implemented by the acquisition service.
type Acquirer interface {
	FetchWindow(ctx context.Context, point types.GeoPoint, hours int) (types.ObservationSeries, error)
}

// Engine produces the hourly forecast through a degradation cascade: real
// observations feed the trained model; if acquisition fails the history is
// synthesized; if the model is absent or misbehaves the forecast falls back
// to trend extrapolation, and finally to the synthetic generator. The only
// error that escapes is a fatal parameter rejection, which no fallback can
// paper over.
type Engine struct {
	acquirer Acquirer
	model    Predictor
	mock     MockSeriesGenerator
	trend    *TrendExtrapolator
	clock    types.Clock
	logger   *slog.Logger
	metrics  metrics.Recorder

	historyHours int
	horizonHours int
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithModel attaches a loaded model artifact. Without one the engine goes
// straight to trend extrapolation.
func WithModel(m Predictor) EngineOption {
	return func(e *Engine) { e.model = m }
}

// WithHistoryHours overrides how much trailing history the engine requests
// before predicting. Below 48 hours the trend fallback cannot compute its
// daily means and the cascade ends at the synthetic generator.
func WithHistoryHours(hours int) EngineOption {
	return func(e *Engine) {
		if hours > 0 {
			e.historyHours = hours
		}
	}
}

// WithClock injects the time source.
func WithClock(c types.Clock) EngineOption {
	return func(e *Engine) { e.clock = c }
}

// WithTrendRand injects the noise source for the trend fallback.
func WithTrendRand(rng *rand.Rand) EngineOption {
	return func(e *Engine) { e.trend = NewTrendExtrapolator(e.horizonHours, rng) }
}

// WithEngineMetrics attaches a metrics recorder.
func WithEngineMetrics(rec metrics.Recorder) EngineOption {
	return func(e *Engine) { e.metrics = rec }
}

// NewEngine constructs an Engine with a 168-hour history and horizon.
func NewEngine(acquirer Acquirer, logger *slog.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		acquirer:     acquirer,
		clock:        types.RealClock{},
		logger:       logger,
		metrics:      metrics.Noop{},
		historyHours: types.ForecastHours,
		horizonHours: types.ForecastHours,
	}
	e.trend = NewTrendExtrapolator(e.horizonHours, nil)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Forecast yields a full-horizon hourly series for the point together with
// its provenance. Acquisition and model failures are absorbed into the
// cascade; only a fatal parameter rejection is returned as an error.
func (e *Engine) Forecast(ctx context.Context, point types.GeoPoint) (types.ObservationSeries, types.Provenance, error) {
	log := types.LoggerFromContext(ctx)
	prov := types.Provenance{DataSource: types.DataSourceAPI}

	history, err := e.acquirer.FetchWindow(ctx, point, e.historyHours)
	if err != nil {
		if types.IsFatal(err) {
			return nil, types.Provenance{}, err
		}
		log.Warn("acquisition failed, synthesizing history",
			"error_code", string(types.CodeOf(err)), "error", err)
		history = e.mock.Generate(point, e.clock.Now().UTC(), e.historyHours)
		prov.DataSource = types.DataSourceMock
	}
	if len(history) == 0 {
		history = e.mock.Generate(point, e.clock.Now().UTC(), e.historyHours)
		prov.DataSource = types.DataSourceMock
	}
	history = padSeries(history, e.historyHours)

	if e.model != nil {
		forecast, err := e.runModel(history)
		if err == nil {
			prov.Method = types.MethodModel
			e.metrics.RecordForecast(ctx, prov.DataSource, prov.Method)
			return forecast, prov, nil
		}
		log.Warn("model prediction failed, extrapolating",
			"error_code", string(types.CodeOf(err)), "error", err)
	}

	forecast, err := e.trend.Extrapolate(history)
	if err == nil {
		prov.Method = types.MethodTrend
		e.metrics.RecordForecast(ctx, prov.DataSource, prov.Method)
		return forecast, prov, nil
	}
	log.Warn("trend extrapolation failed, synthesizing forecast", "error", err)

	last := history[len(history)-1].Time
	forecast = e.mock.Generate(point, last.Add(time.Duration(e.horizonHours)*time.Hour), e.horizonHours)
	prov.Method = types.MethodMock
	e.metrics.RecordForecast(ctx, prov.DataSource, prov.Method)
	return forecast, prov, nil
}

// runModel feeds the history through the artifact and rebuilds a
// full-horizon hourly series from the output matrix, padding with the last
// predicted row when the artifact's horizon is shorter.
func (e *Engine) runModel(history types.ObservationSeries) (types.ObservationSeries, error) {
	in, err := e.modelInput(history)
	if err != nil {
		return nil, err
	}
	out, err := e.model.Predict(in)
	if err != nil {
		return nil, err
	}

	start := history[len(history)-1].Time
	rows, _ := out.Dims()
	forecast := make(types.ObservationSeries, 0, e.horizonHours)
	for h := 0; h < e.horizonHours; h++ {
		r := h
		if r >= rows {
			r = rows - 1
		}
		point, err := features.PointFromVector(start.Add(time.Duration(h+1)*time.Hour), out.RawRowView(r))
		if err != nil {
			return nil, err
		}
		forecast = append(forecast, point)
	}
	return forecast, nil
}

func (e *Engine) modelInput(history types.ObservationSeries) (*mat.Dense, error) {
	if _, ok := e.model.(*PointwiseModel); ok {
		vec, err := features.Derive(baseFromPoint(history[len(history)-1]))
		if err != nil {
			return nil, err
		}
		return mat.NewDense(1, len(vec), vec), nil
	}

	steps := e.model.InputSteps()
	if len(history) < steps {
		return nil, types.NewAppError(types.ErrCodeInsufficientHistory,
			"history shorter than model input window", nil)
	}
	window := history[len(history)-steps:]
	in := mat.NewDense(steps, len(features.SequenceChannels), nil)
	for r, p := range window {
		in.SetRow(r, features.ChannelVector(p))
	}
	return in, nil
}

// baseFromPoint approximates the full base-feature map from a channel row.
// Parameters outside the channel schema are not observed on this path and
// take neutral values.
func baseFromPoint(p types.HourlyPoint) map[string]float64 {
	return map[string]float64{
		"swellHeight":             p.SwellHeight,
		"swellPeriod":             p.SwellPeriod,
		"swellDirection":          180,
		"windSpeed":               p.WindSpeed,
		"windDirection":           p.WindDirection,
		"seaLevel":                0,
		"gust":                    p.WindSpeed,
		"secondarySwellHeight":    0,
		"secondarySwellPeriod":    0,
		"secondarySwellDirection": 0,
	}
}

// padSeries extends a short series to length n by repeating the final row at
// hourly increments. An empty series cannot be padded and is returned as is.
func padSeries(s types.ObservationSeries, n int) types.ObservationSeries {
	if len(s) == 0 || len(s) >= n {
		return s
	}
	out := make(types.ObservationSeries, len(s), n)
	copy(out, s)
	last := s[len(s)-1]
	for len(out) < n {
		last.Time = last.Time.Add(time.Hour)
		out = append(out, last)
	}
	return out
}
