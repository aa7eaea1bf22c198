package predict

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"swellcast/internal/features"
	"swellcast/internal/types"
)

func writeArtifact(t *testing.T, a Artifact) string {
	t.Helper()
	raw, err := json.Marshal(a)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

func sequenceArtifact() Artifact {
	params := make([]channelParams, len(features.SequenceChannels))
	for i, name := range features.SequenceChannels {
		params[i] = channelParams{Name: name, Level: 1.0, Persistence: 0.8, Decay: 0.02}
	}
	return Artifact{
		SchemaVersion: 1,
		SchemaHash:    features.SchemaHash(),
		Family:        FamilySequence,
		InputSteps:    types.ForecastHours,
		OutputSteps:   types.ForecastHours,
		Channels:      features.SequenceChannels,
		Sequence:      params,
	}
}

func TestLoadArtifactSequence(t *testing.T) {
	p, err := LoadArtifact(writeArtifact(t, sequenceArtifact()))
	require.NoError(t, err)
	assert.Equal(t, types.ForecastHours, p.InputSteps())
	assert.Equal(t, types.ForecastHours, p.OutputSteps())
}

func TestLoadArtifactRejectsWrongSchemaHash(t *testing.T) {
	a := sequenceArtifact()
	a.SchemaHash = "deadbeef"
	_, err := LoadArtifact(writeArtifact(t, a))
	assert.Equal(t, types.ErrCodeModelSchemaMismatch, types.CodeOf(err))
}

func TestLoadArtifactRejectsChannelPermutation(t *testing.T) {
	a := sequenceArtifact()
	perm := append([]string(nil), features.SequenceChannels...)
	perm[0], perm[1] = perm[1], perm[0]
	a.Channels = perm
	_, err := LoadArtifact(writeArtifact(t, a))
	assert.Equal(t, types.ErrCodeModelSchemaMismatch, types.CodeOf(err))
}

func TestLoadArtifactMissingFile(t *testing.T) {
	_, err := LoadArtifact(filepath.Join(t.TempDir(), "absent.json"))
	assert.Equal(t, types.ErrCodeModelUnavailable, types.CodeOf(err))
}

func TestSequencePredictShapeAndDamping(t *testing.T) {
	p, err := LoadArtifact(writeArtifact(t, sequenceArtifact()))
	require.NoError(t, err)

	in := mat.NewDense(types.ForecastHours, len(features.SequenceChannels), nil)
	for r := 0; r < types.ForecastHours; r++ {
		for c := range features.SequenceChannels {
			in.Set(r, c, 2.0)
		}
	}
	out, err := p.Predict(in)
	require.NoError(t, err)

	rows, cols := out.Dims()
	assert.Equal(t, types.ForecastHours, rows)
	assert.Equal(t, len(features.SequenceChannels), cols)

	// Forecast decays from near the last observation toward the level.
	first := out.At(0, 0)
	last := out.At(rows-1, 0)
	assert.InDelta(t, 1.8, first, 1e-9)
	assert.Less(t, last, first)
	assert.Greater(t, last, 1.0)
}

func TestSequencePredictRejectsWrongShape(t *testing.T) {
	p, err := LoadArtifact(writeArtifact(t, sequenceArtifact()))
	require.NoError(t, err)

	_, err = p.Predict(mat.NewDense(3, len(features.SequenceChannels), nil))
	assert.Equal(t, types.ErrCodeModelPrediction, types.CodeOf(err))
}

func TestPointwisePredictLinearCombination(t *testing.T) {
	targets := make([]pointwiseModel, len(features.SequenceChannels))
	for i, name := range features.SequenceChannels {
		w := make([]float64, features.VectorLen)
		w[0] = 0.5 // swellHeight
		targets[i] = pointwiseModel{Name: name, Weights: w, Intercept: 1.0}
	}
	a := Artifact{
		SchemaVersion: 1,
		SchemaHash:    features.SchemaHash(),
		Family:        FamilyPointwise,
		InputSteps:    1,
		OutputSteps:   1,
		Channels:      features.SequenceChannels,
		Pointwise:     targets,
	}
	p, err := LoadArtifact(writeArtifact(t, a))
	require.NoError(t, err)

	vec := make([]float64, features.VectorLen)
	vec[0] = 2.0
	out, err := p.Predict(mat.NewDense(1, features.VectorLen, vec))
	require.NoError(t, err)
	assert.InDelta(t, 2.0, out.At(0, 0), 1e-9)
}

func TestFiniteOrErrorRejectsNaN(t *testing.T) {
	m := mat.NewDense(1, 2, []float64{1.0, math.NaN()})
	_, err := finiteOrError(m)
	assert.Equal(t, types.ErrCodeModelPrediction, types.CodeOf(err))
}
