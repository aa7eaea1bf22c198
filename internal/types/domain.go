// Package types defines the shared domain model for the SwellCast forecast
// engine: geographic points, acquisition time windows, hourly observation
// series, daily summaries, and the provenance-tagged forecast bundle that the
// pipeline ultimately produces.
package types

import (
	"fmt"
	"math"
	"time"
)

// MaxWindowDays is the provider-imposed maximum span of a single historical
// data request, in days.
const MaxWindowDays = 10

// HoursPerDay is the number of hourly rows the provider returns per day.
const HoursPerDay = 24

// ForecastHours is the length of the hourly forecast horizon (7 days).
const ForecastHours = 168

// ForecastDays is the length of the daily forecast horizon.
const ForecastDays = 7

// DataSource records where the input history for a forecast came from.
type DataSource string

const (
	// DataSourceAPI means real observations were acquired from the provider.
	DataSourceAPI DataSource = "api"
	// DataSourceMock means the input history was synthesized locally.
	DataSourceMock DataSource = "mock"
)

// ForecastMethod records which prediction stage produced the hourly horizon.
type ForecastMethod string

const (
	// MethodModel means the trained sequence model produced the forecast.
	MethodModel ForecastMethod = "model"
	// MethodTrend means damped trend extrapolation produced the forecast.
	MethodTrend ForecastMethod = "trend"
	// MethodMock means the synthetic generator's output was used directly.
	MethodMock ForecastMethod = "mock"
)

// GeoPoint is an immutable latitude/longitude pair, validated finite and
// in range at construction time.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NewGeoPoint validates and constructs a GeoPoint.
func NewGeoPoint(lat, lng float64) (GeoPoint, error) {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return GeoPoint{}, NewAppError(ErrCodeValidationInvalidLat,
			fmt.Sprintf("latitude %v is out of range [-90, 90]", lat), nil)
	}
	if math.IsNaN(lng) || math.IsInf(lng, 0) || lng < -180 || lng > 180 {
		return GeoPoint{}, NewAppError(ErrCodeValidationInvalidLon,
			fmt.Sprintf("longitude %v is out of range [-180, 180]", lng), nil)
	}
	return GeoPoint{Lat: lat, Lng: lng}, nil
}

// TimeWindow is a bounded [Start, End) range requested from the weather
// provider. Timestamps are UTC at second precision; End must be after Start
// and the span may not exceed MaxWindowDays.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// NewTimeWindow validates and constructs a TimeWindow.
func NewTimeWindow(start, end time.Time) (TimeWindow, error) {
	start = start.UTC().Truncate(time.Second)
	end = end.UTC().Truncate(time.Second)
	if !end.After(start) {
		return TimeWindow{}, NewAppError(ErrCodeValidationTimeWindow,
			"window end must be after start", nil)
	}
	if end.Sub(start) > MaxWindowDays*24*time.Hour {
		return TimeWindow{}, NewAppError(ErrCodeValidationTimeWindow,
			fmt.Sprintf("window span exceeds the %d-day provider limit", MaxWindowDays), nil)
	}
	return TimeWindow{Start: start, End: end}, nil
}

// Hours returns the window span in whole hours.
func (w TimeWindow) Hours() int {
	return int(w.End.Sub(w.Start) / time.Hour)
}

// HourlyPoint is one reconciled hour of ocean/weather conditions at a single
// location. Field order matches the sequence-model channel schema; the
// features package owns the canonical ordering contract.
type HourlyPoint struct {
	Time          time.Time `json:"time"`
	WaveHeight    float64   `json:"waveHeight"`
	WavePeriod    float64   `json:"wavePeriod"`
	SwellHeight   float64   `json:"swellHeight"`
	SwellPeriod   float64   `json:"swellPeriod"`
	WindSpeed     float64   `json:"windSpeed"`
	WindDirection float64   `json:"windDirection"`
}

// ObservationSeries is a sequence of HourlyPoint ordered by time ascending.
type ObservationSeries []HourlyPoint

// DailySummary is the aggregate of one 24-hour block of an hourly series,
// rounded to per-channel display precision.
type DailySummary struct {
	Date          time.Time `json:"date"`
	WaveHeight    float64   `json:"waveHeight"`
	WavePeriod    float64   `json:"wavePeriod"`
	SwellHeight   float64   `json:"swellHeight"`
	SwellPeriod   float64   `json:"swellPeriod"`
	WindSpeed     float64   `json:"windSpeed"`
	WindDirection float64   `json:"windDirection"`
}

// Provenance records which data source and prediction method actually
// produced a forecast. It is the only user-visible trace of the fallback
// cascade: degraded results carry degraded provenance, never errors.
type Provenance struct {
	DataSource DataSource     `json:"dataSource"`
	Method     ForecastMethod `json:"forecastMethod"`
}

// ForecastBundle is the complete result of one forecast request. It is
// created fresh per request and never mutated after construction.
type ForecastBundle struct {
	Location    GeoPoint          `json:"location"`
	Hourly      ObservationSeries `json:"hourly"`
	Daily       []DailySummary    `json:"daily"`
	Provenance  Provenance        `json:"provenance"`
	GeneratedAt time.Time         `json:"generatedAt"`
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }
