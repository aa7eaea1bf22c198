package predict

import (
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/stat"

	"swellcast/internal/features"
	"swellcast/internal/types"
)

// trendDecayHours controls how fast the recent trend is damped out of the
// extrapolation. Beyond ~3 days the forecast has relaxed to the recent mean
// plus the daily cycle.
const trendDecayHours = 72.0

// dailyCycleAmplitude scales the sinusoidal intra-day component relative to
// the channel's recent mean.
const dailyCycleAmplitude = 0.1

// channelBounds clamp extrapolated values to physically plausible ranges for
// these coastal waters. Wind direction is wrapped, not clamped.
var channelBounds = map[string][2]float64{
	"waveHeight":  {0.3, 5.0},
	"wavePeriod":  {6.0, 20.0},
	"swellHeight": {0.2, 4.0},
	"swellPeriod": {8.0, 25.0},
	"windSpeed":   {5.0, 35.0},
}

// TrendExtrapolator produces a forecast from the recent observation history
// alone: the difference between the last day's mean and the prior day's mean
// is projected forward with exponential damping, modulated by a daily cycle
// and a small amount of noise.
type TrendExtrapolator struct {
	horizon int
	rng     *rand.Rand
}

// NewTrendExtrapolator builds an extrapolator with the given forecast
// horizon. A nil rng gets a fixed-seed source so output is reproducible.
func NewTrendExtrapolator(horizon int, rng *rand.Rand) *TrendExtrapolator {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &TrendExtrapolator{horizon: horizon, rng: rng}
}

// Extrapolate projects the history forward for the configured horizon,
// starting one hour after the last observation. History must cover at least
// 48 hours so both daily means are defined.
func (t *TrendExtrapolator) Extrapolate(history types.ObservationSeries) (types.ObservationSeries, error) {
	if len(history) < 2*types.HoursPerDay {
		return nil, types.NewAppError(types.ErrCodeInsufficientHistory,
			"trend extrapolation needs at least 48 hours of history", nil)
	}

	channels := make([][]float64, len(features.SequenceChannels))
	for i := range channels {
		channels[i] = make([]float64, 0, len(history))
	}
	for _, p := range history {
		for i, v := range features.ChannelVector(p) {
			channels[i] = append(channels[i], v)
		}
	}

	recent := make([]float64, len(channels))
	trend := make([]float64, len(channels))
	for c, series := range channels {
		n := len(series)
		recent[c] = stat.Mean(series[n-types.HoursPerDay:], nil)
		prior := stat.Mean(series[n-2*types.HoursPerDay:n-types.HoursPerDay], nil)
		trend[c] = recent[c] - prior
	}

	start := history[len(history)-1].Time
	out := make(types.ObservationSeries, 0, t.horizon)
	for h := 0; h < t.horizon; h++ {
		vec := make([]float64, len(channels))
		for c, name := range features.SequenceChannels {
			vec[c] = t.project(name, recent[c], trend[c], h)
		}
		point, err := features.PointFromVector(start.Add(time.Duration(h+1)*time.Hour), vec)
		if err != nil {
			return nil, err
		}
		out = append(out, point)
	}
	return out, nil
}

func (t *TrendExtrapolator) project(name string, recent, trend float64, h int) float64 {
	v := recent + trend*math.Exp(-float64(h)/trendDecayHours)
	v += dailyCycleAmplitude * recent * math.Sin(2*math.Pi*float64(h)/float64(types.HoursPerDay))
	v += (t.rng.Float64() - 0.5) * 0.05 * recent

	if name == "windDirection" {
		return math.Mod(math.Mod(v, 360)+360, 360)
	}
	if b, ok := channelBounds[name]; ok {
		v = math.Max(b[0], math.Min(b[1], v))
	}
	return v
}
