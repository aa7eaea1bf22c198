package stormglass

import (
	"math"
	"sort"

	"swellcast/internal/types"
)

// DefaultPriority is the provider-source preference order used when
// reconciling a multi-source reading: the provider's own ensemble value
// first, then named individual sources.
var DefaultPriority = []string{"sg", "noaa", "icon", "meteo"}

// channelDefaults are the per-channel fallback values used when an hour
// carries no usable reading for a sequence channel. They match the values
// the sequence model was trained with for gap filling.
var channelDefaults = map[string]float64{
	"waveHeight":    1.0,
	"wavePeriod":    10.0,
	"swellHeight":   1.0,
	"swellPeriod":   12.0,
	"windSpeed":     15.0,
	"windDirection": 180.0,
}

// Reconcile collapses a multi-source reading for one parameter into a single
// scalar. It walks the priority list and returns the first present, non-null,
// non-NaN value; failing that, it averages all present numeric values; failing
// that, it returns def. Pure and total: it never fails.
func Reconcile(reading SourceReading, priority []string, def float64) float64 {
	for _, src := range priority {
		if v, ok := reading[src]; ok && usable(v) {
			return *v
		}
	}

	var sum float64
	var n int
	for _, v := range reading {
		if usable(v) {
			sum += *v
			n++
		}
	}
	if n > 0 {
		return sum / float64(n)
	}
	return def
}

func usable(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

// reconcileHour converts one raw provider row into a reconciled hourly point
// on the sequence-channel schema.
func reconcileHour(h Hour) types.HourlyPoint {
	get := func(param string) float64 {
		return Reconcile(h.Params[param], DefaultPriority, channelDefaults[param])
	}
	return types.HourlyPoint{
		Time:          h.Time,
		WaveHeight:    get("waveHeight"),
		WavePeriod:    get("wavePeriod"),
		SwellHeight:   get("swellHeight"),
		SwellPeriod:   get("swellPeriod"),
		WindSpeed:     get("windSpeed"),
		WindDirection: get("windDirection"),
	}
}

// reconcileSeries converts raw rows into a time-ascending ObservationSeries.
func reconcileSeries(hours []Hour) types.ObservationSeries {
	series := make(types.ObservationSeries, 0, len(hours))
	for _, h := range hours {
		series = append(series, reconcileHour(h))
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Time.Before(series[j].Time)
	})
	return series
}

// ReconcileBaseFeatures extracts the named base features from a single raw
// row, reconciling each parameter with the given default. Used by the
// pointwise model path, which consumes one hour of the full parameter set.
func ReconcileBaseFeatures(h Hour, names []string, def float64) map[string]float64 {
	out := make(map[string]float64, len(names))
	for _, name := range names {
		out[name] = Reconcile(h.Params[name], DefaultPriority, def)
	}
	return out
}
