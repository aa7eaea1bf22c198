// Package predict produces the 168-hour surf forecast. It wraps trained
// model artifacts behind a matrix-in, matrix-out Predictor interface and
// layers a fallback cascade on top so a forecast is always produced.
package predict

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"

	"swellcast/internal/features"
	"swellcast/internal/types"
)

// Model families. A sequence artifact maps an observed channel window to a
// forecast window; a pointwise artifact maps one derived feature vector to
// one channel row.
const (
	FamilySequence  = "sequence"
	FamilyPointwise = "pointwise"
)

// artifactSchemaVersion is the manifest format this build understands.
const artifactSchemaVersion = 1

// Predictor maps an input matrix to an output matrix. Inputs are
// InputSteps()×features rows, outputs OutputSteps()×channels rows, channels
// in features.SequenceChannels order.
type Predictor interface {
	Predict(in *mat.Dense) (*mat.Dense, error)
	InputSteps() int
	OutputSteps() int
}

// Artifact is the on-disk model manifest. The schema hash pins the artifact
// to the exact feature ordering it was trained against.
type Artifact struct {
	SchemaVersion int              `json:"schemaVersion"`
	SchemaHash    string           `json:"schemaHash"`
	Family        string           `json:"family"`
	InputSteps    int              `json:"inputSteps"`
	OutputSteps   int              `json:"outputSteps"`
	Channels      []string         `json:"channels"`
	Sequence      []channelParams  `json:"sequence,omitempty"`
	Pointwise     []pointwiseModel `json:"pointwise,omitempty"`
}

// channelParams are the damped-persistence coefficients of one sequence
// channel: forecasts relax from the last observation toward the channel's
// climatological level at the fitted decay rate.
type channelParams struct {
	Name        string  `json:"name"`
	Level       float64 `json:"level"`
	Persistence float64 `json:"persistence"`
	Decay       float64 `json:"decay"`
}

// pointwiseModel is one linear target over the 15-element feature vector.
type pointwiseModel struct {
	Name      string    `json:"name"`
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
}

// LoadArtifact reads and validates a model manifest, returning a ready
// Predictor. Validation failures are typed so the engine can distinguish a
// missing model (fall through silently) from a corrupt one (log loudly).
func LoadArtifact(path string) (Predictor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeModelUnavailable,
			fmt.Sprintf("model artifact %s not readable", path), err)
	}
	var a Artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, types.NewAppError(types.ErrCodeModelUnavailable, "model artifact is not valid JSON", err)
	}
	if a.SchemaVersion != artifactSchemaVersion {
		return nil, types.NewAppError(types.ErrCodeModelSchemaMismatch,
			fmt.Sprintf("artifact schema version %d, want %d", a.SchemaVersion, artifactSchemaVersion), nil)
	}
	if a.SchemaHash != features.SchemaHash() {
		return nil, types.NewAppError(types.ErrCodeModelSchemaMismatch,
			"artifact feature schema does not match this build", nil)
	}
	if err := validateChannels(a.Channels); err != nil {
		return nil, err
	}

	switch a.Family {
	case FamilySequence:
		return newSequenceModel(a)
	case FamilyPointwise:
		return newPointwiseModel(a)
	default:
		return nil, types.NewAppError(types.ErrCodeModelSchemaMismatch,
			fmt.Sprintf("unknown model family %q", a.Family), nil)
	}
}

func validateChannels(got []string) error {
	want := features.SequenceChannels
	if len(got) != len(want) {
		return types.NewAppError(types.ErrCodeModelSchemaMismatch,
			fmt.Sprintf("artifact has %d channels, want %d", len(got), len(want)), nil)
	}
	for i, name := range want {
		if got[i] != name {
			return types.NewAppError(types.ErrCodeModelSchemaMismatch,
				fmt.Sprintf("channel %d is %q, want %q", i, got[i], name), nil)
		}
	}
	return nil
}

// SequenceModel forecasts every channel with damped persistence fitted at
// training time: out(h) = level + persistence·(last − level)·exp(−h·decay).
type SequenceModel struct {
	inputSteps  int
	outputSteps int
	params      []channelParams
}

func newSequenceModel(a Artifact) (*SequenceModel, error) {
	if a.InputSteps <= 0 || a.OutputSteps <= 0 {
		return nil, types.NewAppError(types.ErrCodeModelSchemaMismatch,
			fmt.Sprintf("sequence artifact steps %d/%d invalid", a.InputSteps, a.OutputSteps), nil)
	}
	if len(a.Sequence) != len(a.Channels) {
		return nil, types.NewAppError(types.ErrCodeModelSchemaMismatch,
			fmt.Sprintf("sequence artifact has %d channel params, want %d", len(a.Sequence), len(a.Channels)), nil)
	}
	for i, p := range a.Sequence {
		if p.Name != a.Channels[i] {
			return nil, types.NewAppError(types.ErrCodeModelSchemaMismatch,
				fmt.Sprintf("sequence params %d are for %q, want %q", i, p.Name, a.Channels[i]), nil)
		}
	}
	return &SequenceModel{inputSteps: a.InputSteps, outputSteps: a.OutputSteps, params: a.Sequence}, nil
}

func (m *SequenceModel) InputSteps() int  { return m.inputSteps }
func (m *SequenceModel) OutputSteps() int { return m.outputSteps }

// Predict consumes an inputSteps×channels observation matrix and emits an
// outputSteps×channels forecast matrix.
func (m *SequenceModel) Predict(in *mat.Dense) (*mat.Dense, error) {
	rows, cols := in.Dims()
	if rows != m.inputSteps || cols != len(m.params) {
		return nil, types.NewAppError(types.ErrCodeModelPrediction,
			fmt.Sprintf("input is %dx%d, want %dx%d", rows, cols, m.inputSteps, len(m.params)), nil)
	}
	out := mat.NewDense(m.outputSteps, cols, nil)
	for c, p := range m.params {
		last := in.At(rows-1, c)
		for h := 0; h < m.outputSteps; h++ {
			v := p.Level + p.Persistence*(last-p.Level)*math.Exp(-float64(h)*p.Decay)
			out.Set(h, c, v)
		}
	}
	return finiteOrError(out)
}

// PointwiseModel predicts one channel row from one derived feature vector
// via independent linear targets, one per channel.
type PointwiseModel struct {
	targets []pointwiseModel
}

func newPointwiseModel(a Artifact) (*PointwiseModel, error) {
	if len(a.Pointwise) != len(a.Channels) {
		return nil, types.NewAppError(types.ErrCodeModelSchemaMismatch,
			fmt.Sprintf("pointwise artifact has %d targets, want %d", len(a.Pointwise), len(a.Channels)), nil)
	}
	for i, t := range a.Pointwise {
		if t.Name != a.Channels[i] {
			return nil, types.NewAppError(types.ErrCodeModelSchemaMismatch,
				fmt.Sprintf("pointwise target %d is %q, want %q", i, t.Name, a.Channels[i]), nil)
		}
		if len(t.Weights) != features.VectorLen {
			return nil, types.NewAppError(types.ErrCodeModelSchemaMismatch,
				fmt.Sprintf("target %q has %d weights, want %d", t.Name, len(t.Weights), features.VectorLen), nil)
		}
	}
	return &PointwiseModel{targets: a.Pointwise}, nil
}

func (m *PointwiseModel) InputSteps() int  { return 1 }
func (m *PointwiseModel) OutputSteps() int { return 1 }

// Predict consumes a 1×15 feature vector and emits a 1×channels row.
func (m *PointwiseModel) Predict(in *mat.Dense) (*mat.Dense, error) {
	rows, cols := in.Dims()
	if rows != 1 || cols != features.VectorLen {
		return nil, types.NewAppError(types.ErrCodeModelPrediction,
			fmt.Sprintf("input is %dx%d, want 1x%d", rows, cols, features.VectorLen), nil)
	}
	out := mat.NewDense(1, len(m.targets), nil)
	x := in.RawRowView(0)
	for c, t := range m.targets {
		v := t.Intercept
		for i, w := range t.Weights {
			v += w * x[i]
		}
		out.Set(0, c, v)
	}
	return finiteOrError(out)
}

// finiteOrError rejects matrices containing NaN or Inf so a degenerate
// artifact falls through to extrapolation instead of serving garbage.
func finiteOrError(m *mat.Dense) (*mat.Dense, error) {
	rows, cols := m.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := m.At(r, c)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, types.NewAppError(types.ErrCodeModelPrediction,
					fmt.Sprintf("non-finite output at row %d col %d", r, c), nil)
			}
		}
	}
	return m, nil
}
