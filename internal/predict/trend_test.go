package predict

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swellcast/internal/types"
)

func TestExtrapolateLengthAndTimestamps(t *testing.T) {
	history := fixtureHistory(types.ForecastHours)
	ex := NewTrendExtrapolator(types.ForecastHours, rand.New(rand.NewSource(42)))

	out, err := ex.Extrapolate(history)
	require.NoError(t, err)
	require.Len(t, out, types.ForecastHours)

	last := history[len(history)-1].Time
	assert.Equal(t, last.Add(time.Hour), out[0].Time)
	for i := 1; i < len(out); i++ {
		assert.Equal(t, time.Hour, out[i].Time.Sub(out[i-1].Time))
	}
}

func TestExtrapolateRespectsBounds(t *testing.T) {
	// An extreme history: everything at the top of its plausible range plus a
	// strong upward trend that would overshoot without clamping.
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	history := make(types.ObservationSeries, 48)
	for i := range history {
		boost := float64(i) * 0.2
		history[i] = types.HourlyPoint{
			Time:          start.Add(time.Duration(i) * time.Hour),
			WaveHeight:    4.0 + boost,
			WavePeriod:    19.0,
			SwellHeight:   3.5 + boost,
			SwellPeriod:   24.0,
			WindSpeed:     34.0 + boost,
			WindDirection: 350.0 + boost*10,
		}
	}
	ex := NewTrendExtrapolator(types.ForecastHours, rand.New(rand.NewSource(1)))

	out, err := ex.Extrapolate(history)
	require.NoError(t, err)
	for i, p := range out {
		assert.LessOrEqual(t, p.WaveHeight, 5.0, "hour %d", i)
		assert.GreaterOrEqual(t, p.WaveHeight, 0.3, "hour %d", i)
		assert.LessOrEqual(t, p.WavePeriod, 20.0, "hour %d", i)
		assert.LessOrEqual(t, p.SwellHeight, 4.0, "hour %d", i)
		assert.LessOrEqual(t, p.SwellPeriod, 25.0, "hour %d", i)
		assert.LessOrEqual(t, p.WindSpeed, 35.0, "hour %d", i)
		assert.GreaterOrEqual(t, p.WindDirection, 0.0, "hour %d", i)
		assert.Less(t, p.WindDirection, 360.0, "hour %d", i)
	}
}

func TestExtrapolateRequiresTwoDays(t *testing.T) {
	ex := NewTrendExtrapolator(types.ForecastHours, nil)
	_, err := ex.Extrapolate(fixtureHistory(24))
	assert.Equal(t, types.ErrCodeInsufficientHistory, types.CodeOf(err))
}

func TestExtrapolateDeterministicWithFixedSeed(t *testing.T) {
	history := fixtureHistory(types.ForecastHours)

	a, err := NewTrendExtrapolator(24, rand.New(rand.NewSource(7))).Extrapolate(history)
	require.NoError(t, err)
	b, err := NewTrendExtrapolator(24, rand.New(rand.NewSource(7))).Extrapolate(history)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
