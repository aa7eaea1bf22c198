package features

import (
	"math"
	"testing"
	"time"

	"swellcast/internal/types"
)

func validBase() map[string]float64 {
	return map[string]float64{
		"swellHeight":             2.0,
		"swellPeriod":             10.0,
		"swellDirection":          210.0,
		"windSpeed":               12.0,
		"windDirection":           270.0,
		"seaLevel":                0.4,
		"gust":                    18.0,
		"secondarySwellHeight":    0.5,
		"secondarySwellPeriod":    9.0,
		"secondarySwellDirection": 180.0,
	}
}

func TestDeriveLengthAndOrder(t *testing.T) {
	vec, err := Derive(validBase())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != VectorLen {
		t.Fatalf("len = %d, want %d", len(vec), VectorLen)
	}
	// Base features appear first, in contract order.
	base := validBase()
	for i, name := range BaseFeatures {
		if vec[i] != base[name] {
			t.Errorf("vec[%d] = %v, want %s = %v", i, vec[i], name, base[name])
		}
	}
}

func TestDeriveSwellEnergy(t *testing.T) {
	base := validBase()
	base["swellHeight"] = 2.0
	base["swellPeriod"] = 10.0
	vec, err := Derive(base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// swellEnergy = h²·p is the first engineered feature.
	if got := vec[len(BaseFeatures)]; got != 40.0 {
		t.Errorf("swellEnergy = %v, want 40.0", got)
	}
}

func TestDeriveOffshoreWind(t *testing.T) {
	base := validBase()
	base["windSpeed"] = 10.0
	base["windDirection"] = 270.0
	vec, err := Derive(base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Dead-offshore wind contributes its full speed.
	if got := vec[len(BaseFeatures)+1]; math.Abs(got-10.0) > 1e-9 {
		t.Errorf("offshoreWind = %v, want 10.0", got)
	}
}

func TestDeriveRejectsMissingAndNonFinite(t *testing.T) {
	missing := validBase()
	delete(missing, "gust")
	if _, err := Derive(missing); types.CodeOf(err) != types.ErrCodeModelSchemaMismatch {
		t.Errorf("missing feature: code = %v, want model_schema_mismatch", types.CodeOf(err))
	}

	nan := validBase()
	nan["seaLevel"] = math.NaN()
	if _, err := Derive(nan); types.CodeOf(err) != types.ErrCodeModelSchemaMismatch {
		t.Errorf("NaN feature: code = %v, want model_schema_mismatch", types.CodeOf(err))
	}
}

func TestSchemaHashIsStableHex(t *testing.T) {
	h1 := SchemaHash()
	h2 := SchemaHash()
	if h1 != h2 {
		t.Fatal("schema hash must be deterministic")
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(h1))
	}
}

func TestChannelVectorRoundTrip(t *testing.T) {
	p := types.HourlyPoint{
		Time:          time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		WaveHeight:    1.1,
		WavePeriod:    10.2,
		SwellHeight:   0.9,
		SwellPeriod:   12.3,
		WindSpeed:     14.0,
		WindDirection: 200.0,
	}
	back, err := PointFromVector(p.Time, ChannelVector(p))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back != p {
		t.Errorf("round trip mismatch: %+v != %+v", back, p)
	}

	if _, err := PointFromVector(p.Time, []float64{1, 2}); err == nil {
		t.Error("expected error for short vector")
	}
}
