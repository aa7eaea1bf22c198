// Package features owns the feature-engineering contract shared between model
// training and serving. The ordering of base features, engineered features,
// and sequence channels is a cross-process contract with trained model
// artifacts: permuting any of these lists silently corrupts predictions, so
// the lists are declared once here and fingerprinted with a schema hash that
// model artifacts must match at load time.
package features

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"

	"swellcast/internal/types"
)

// Base feature names, in contract order. These are the raw provider
// parameters the pointwise model was trained against.
var BaseFeatures = []string{
	"swellHeight",
	"swellPeriod",
	"swellDirection",
	"windSpeed",
	"windDirection",
	"seaLevel",
	"gust",
	"secondarySwellHeight",
	"secondarySwellPeriod",
	"secondarySwellDirection",
}

// Engineered feature names, in contract order, appended after BaseFeatures.
var EngineeredFeatures = []string{
	"swellEnergy",
	"offshoreWind",
	"totalSwellHeight",
	"windSwellInteraction",
	"periodRatio",
}

// SequenceChannels is the ordered channel schema of the sequence model:
// each hourly row is encoded as a vector in exactly this order.
var SequenceChannels = []string{
	"waveHeight",
	"wavePeriod",
	"swellHeight",
	"swellPeriod",
	"windSpeed",
	"windDirection",
}

// VectorLen is the total length of a derived feature vector.
const VectorLen = 15

// offshoreDirection is the wind direction treated as fully offshore when
// computing the offshore wind component (west wind, south coast).
const offshoreDirection = 270.0

// Derive computes the full 15-element feature vector from the 10 named base
// readings: the base values in contract order followed by the 5 engineered
// values. It returns an error if any base feature is missing or non-finite;
// for any valid input the result always has length VectorLen.
func Derive(base map[string]float64) ([]float64, error) {
	vec := make([]float64, 0, VectorLen)
	for _, name := range BaseFeatures {
		v, ok := base[name]
		if !ok {
			return nil, types.NewAppError(types.ErrCodeModelSchemaMismatch,
				fmt.Sprintf("base feature %q is missing", name), nil)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, types.NewAppError(types.ErrCodeModelSchemaMismatch,
				fmt.Sprintf("base feature %q is not finite", name), nil)
		}
		vec = append(vec, v)
	}

	swellHeight := base["swellHeight"]
	swellPeriod := base["swellPeriod"]
	windSpeed := base["windSpeed"]
	windDirection := base["windDirection"]
	secondaryHeight := base["secondarySwellHeight"]
	secondaryPeriod := base["secondarySwellPeriod"]

	// Engineered values, in contract order.
	vec = append(vec,
		swellHeight*swellHeight*swellPeriod,
		windSpeed*math.Cos((windDirection-offshoreDirection)*math.Pi/180),
		swellHeight+secondaryHeight,
		windSpeed*swellHeight,
		swellPeriod/(secondaryPeriod+1),
	)
	return vec, nil
}

// SchemaHash returns the hex sha256 fingerprint of the serving-side feature
// order (base + engineered + sequence channels). Trained model artifacts
// carry the hash of the order they were trained against; a mismatch at load
// time fails fast instead of silently mispredicting.
func SchemaHash() string {
	var b strings.Builder
	b.WriteString(strings.Join(BaseFeatures, ","))
	b.WriteString("|")
	b.WriteString(strings.Join(EngineeredFeatures, ","))
	b.WriteString("|")
	b.WriteString(strings.Join(SequenceChannels, ","))
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// ChannelVector encodes an hourly point as a vector in SequenceChannels order.
func ChannelVector(p types.HourlyPoint) []float64 {
	return []float64{
		p.WaveHeight,
		p.WavePeriod,
		p.SwellHeight,
		p.SwellPeriod,
		p.WindSpeed,
		p.WindDirection,
	}
}

// PointFromVector decodes a SequenceChannels-ordered vector into an hourly
// point at the given timestamp. Vectors shorter than the schema are invalid.
func PointFromVector(t time.Time, vec []float64) (types.HourlyPoint, error) {
	if len(vec) != len(SequenceChannels) {
		return types.HourlyPoint{}, types.NewAppError(types.ErrCodeModelSchemaMismatch,
			fmt.Sprintf("channel vector has length %d, want %d", len(vec), len(SequenceChannels)), nil)
	}
	return types.HourlyPoint{
		Time:          t,
		WaveHeight:    vec[0],
		WavePeriod:    vec[1],
		SwellHeight:   vec[2],
		SwellPeriod:   vec[3],
		WindSpeed:     vec[4],
		WindDirection: vec[5],
	}, nil
}
