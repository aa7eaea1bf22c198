// Package forecast turns the prediction engine's hourly output into the
// serving document: daily aggregates, date labels, and the response shape
// the API and CLI emit.
package forecast

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"swellcast/internal/types"
)

// channel display precision, in decimal places.
const (
	precisionHeight    = 2
	precisionPeriod    = 1
	precisionWind      = 1
	precisionDirection = 0
)

// ToDaily collapses an hourly series into consecutive 24-hour blocks,
// averaging each channel and rounding to display precision. A trailing
// partial day is dropped; averages over identical inputs are idempotent, so
// a constant series yields that constant back (rounded).
func ToDaily(hourly types.ObservationSeries) []types.DailySummary {
	days := len(hourly) / types.HoursPerDay
	out := make([]types.DailySummary, 0, days)
	for d := 0; d < days; d++ {
		block := hourly[d*types.HoursPerDay : (d+1)*types.HoursPerDay]
		cols := make([][]float64, 6)
		for _, p := range block {
			cols[0] = append(cols[0], p.WaveHeight)
			cols[1] = append(cols[1], p.WavePeriod)
			cols[2] = append(cols[2], p.SwellHeight)
			cols[3] = append(cols[3], p.SwellPeriod)
			cols[4] = append(cols[4], p.WindSpeed)
			cols[5] = append(cols[5], p.WindDirection)
		}
		out = append(out, types.DailySummary{
			Date:          block[0].Time,
			WaveHeight:    round(stat.Mean(cols[0], nil), precisionHeight),
			WavePeriod:    round(stat.Mean(cols[1], nil), precisionPeriod),
			SwellHeight:   round(stat.Mean(cols[2], nil), precisionHeight),
			SwellPeriod:   round(stat.Mean(cols[3], nil), precisionPeriod),
			WindSpeed:     round(stat.Mean(cols[4], nil), precisionWind),
			WindDirection: round(stat.Mean(cols[5], nil), precisionDirection),
		})
	}
	return out
}

// DateLabels produces display labels for n consecutive days starting at now:
// "Today", "Tmrw", then three-letter weekday abbreviations.
func DateLabels(now time.Time, n int) []string {
	labels := make([]string, 0, n)
	for d := 0; d < n; d++ {
		switch d {
		case 0:
			labels = append(labels, "Today")
		case 1:
			labels = append(labels, "Tmrw")
		default:
			labels = append(labels, now.AddDate(0, 0, d).Format("Mon"))
		}
	}
	return labels
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
