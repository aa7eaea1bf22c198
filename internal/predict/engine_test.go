package predict

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"swellcast/internal/features"
	"swellcast/internal/types"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakeAcquirer struct {
	series types.ObservationSeries
	err    error
	calls  int
	hours  int
}

func (a *fakeAcquirer) FetchWindow(_ context.Context, _ types.GeoPoint, hours int) (types.ObservationSeries, error) {
	a.calls++
	a.hours = hours
	return a.series, a.err
}

type failingPredictor struct{}

func (failingPredictor) Predict(*mat.Dense) (*mat.Dense, error) {
	return nil, types.NewAppError(types.ErrCodeModelPrediction, "boom", nil)
}
func (failingPredictor) InputSteps() int  { return types.ForecastHours }
func (failingPredictor) OutputSteps() int { return types.ForecastHours }

func fixtureHistory(hours int) types.ObservationSeries {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	out := make(types.ObservationSeries, hours)
	for i := range out {
		out[i] = types.HourlyPoint{
			Time:          start.Add(time.Duration(i) * time.Hour),
			WaveHeight:    1.2,
			WavePeriod:    10.0,
			SwellHeight:   1.0,
			SwellPeriod:   12.0,
			WindSpeed:     14.0,
			WindDirection: 200.0,
		}
	}
	return out
}

func surfPoint(t *testing.T) types.GeoPoint {
	t.Helper()
	p, err := types.NewGeoPoint(5.972, 80.426)
	require.NoError(t, err)
	return p
}

// A predictor that always fails must not break liveness: the engine falls
// back to trend extrapolation and still delivers a full horizon.
func TestForecastFailingModelFallsBackToTrend(t *testing.T) {
	acq := &fakeAcquirer{series: fixtureHistory(types.ForecastHours)}
	e := NewEngine(acq, nil, WithModel(failingPredictor{}))

	series, prov, err := e.Forecast(context.Background(), surfPoint(t))
	require.NoError(t, err)
	assert.Len(t, series, types.ForecastHours)
	assert.Equal(t, types.DataSourceAPI, prov.DataSource)
	assert.Equal(t, types.MethodTrend, prov.Method)
}

// Acquisition failure switches the data source to mock but the pipeline
// still yields a forecast.
func TestForecastAcquisitionFailureUsesMockHistory(t *testing.T) {
	acq := &fakeAcquirer{err: types.NewAppError(types.ErrCodeAcqExhausted, "all credentials exhausted", nil)}
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	e := NewEngine(acq, nil, WithClock(fixedClock{now}))

	series, prov, err := e.Forecast(context.Background(), surfPoint(t))
	require.NoError(t, err)
	assert.Len(t, series, types.ForecastHours)
	assert.Equal(t, types.DataSourceMock, prov.DataSource)
	assert.Equal(t, types.MethodTrend, prov.Method)
}

func TestForecastFatalErrorPropagates(t *testing.T) {
	acq := &fakeAcquirer{err: types.NewAppError(types.ErrCodeAcqFatalParams, "bad params", nil)}
	e := NewEngine(acq, nil)

	_, _, err := e.Forecast(context.Background(), surfPoint(t))
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeAcqFatalParams, types.CodeOf(err))
}

func TestForecastSequenceModelSuccess(t *testing.T) {
	acq := &fakeAcquirer{series: fixtureHistory(types.ForecastHours)}
	model := &SequenceModel{
		inputSteps:  types.ForecastHours,
		outputSteps: types.ForecastHours,
		params: []channelParams{
			{Name: "waveHeight", Level: 1.0, Persistence: 0.9, Decay: 0.01},
			{Name: "wavePeriod", Level: 10.0, Persistence: 0.9, Decay: 0.01},
			{Name: "swellHeight", Level: 0.9, Persistence: 0.9, Decay: 0.01},
			{Name: "swellPeriod", Level: 12.0, Persistence: 0.9, Decay: 0.01},
			{Name: "windSpeed", Level: 13.0, Persistence: 0.9, Decay: 0.01},
			{Name: "windDirection", Level: 190.0, Persistence: 0.9, Decay: 0.01},
		},
	}
	e := NewEngine(acq, nil, WithModel(model))

	series, prov, err := e.Forecast(context.Background(), surfPoint(t))
	require.NoError(t, err)
	assert.Equal(t, types.MethodModel, prov.Method)
	require.Len(t, series, types.ForecastHours)

	// Timestamps continue hourly from the last observation.
	last := fixtureHistory(types.ForecastHours)[types.ForecastHours-1].Time
	assert.Equal(t, last.Add(time.Hour), series[0].Time)
	assert.Equal(t, last.Add(types.ForecastHours*time.Hour), series[len(series)-1].Time)
}

// Short history is padded by repeating the last row before it reaches the
// model, so the model always sees its full input window.
func TestForecastShortHistoryIsPadded(t *testing.T) {
	acq := &fakeAcquirer{series: fixtureHistory(50)}
	e := NewEngine(acq, nil)

	series, prov, err := e.Forecast(context.Background(), surfPoint(t))
	require.NoError(t, err)
	assert.Len(t, series, types.ForecastHours)
	assert.Equal(t, types.MethodTrend, prov.Method)
}

// The configured history window is what the engine actually requests from
// acquisition, not a hardcoded default.
func TestForecastRequestsConfiguredHistoryWindow(t *testing.T) {
	acq := &fakeAcquirer{series: fixtureHistory(72)}
	e := NewEngine(acq, nil, WithHistoryHours(72))

	series, prov, err := e.Forecast(context.Background(), surfPoint(t))
	require.NoError(t, err)
	assert.Equal(t, 72, acq.hours)
	assert.Len(t, series, types.ForecastHours)
	assert.Equal(t, types.MethodTrend, prov.Method)
}

// A history window too short for trend extrapolation drops through to the
// synthetic generator, still delivering a full horizon.
func TestForecastTinyHistoryWindowFallsBackToMock(t *testing.T) {
	acq := &fakeAcquirer{series: fixtureHistory(24)}
	e := NewEngine(acq, nil, WithHistoryHours(24))

	series, prov, err := e.Forecast(context.Background(), surfPoint(t))
	require.NoError(t, err)
	require.Len(t, series, types.ForecastHours)
	assert.Equal(t, types.DataSourceAPI, prov.DataSource)
	assert.Equal(t, types.MethodMock, prov.Method)

	last := fixtureHistory(24)[23].Time
	assert.Equal(t, last.Add(time.Hour), series[0].Time)
}

func TestPadSeries(t *testing.T) {
	s := fixtureHistory(3)
	padded := padSeries(s, 6)
	require.Len(t, padded, 6)
	for i := 1; i < len(padded); i++ {
		assert.Equal(t, time.Hour, padded[i].Time.Sub(padded[i-1].Time))
	}
	assert.Equal(t, s[2].WaveHeight, padded[5].WaveHeight)

	assert.Len(t, padSeries(nil, 5), 0)
	assert.Len(t, padSeries(fixtureHistory(8), 5), 8)
}

func TestModelInputShapes(t *testing.T) {
	e := NewEngine(&fakeAcquirer{}, nil, WithModel(&PointwiseModel{targets: make([]pointwiseModel, 6)}))
	history := fixtureHistory(types.ForecastHours)

	in, err := e.modelInput(history)
	require.NoError(t, err)
	r, c := in.Dims()
	assert.Equal(t, 1, r)
	assert.Equal(t, features.VectorLen, c)
}
