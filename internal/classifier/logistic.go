package classifier

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/dvloznov/fraud-screening/internal/domain"
)

// DefaultThreshold is the decision threshold used when the artifact omits one.
const DefaultThreshold = 0.5

// Artifact is the serialized form of a logistic-regression fraud model.
type Artifact struct {
	Name      string    `json:"name" yaml:"name"`
	Version   string    `json:"version" yaml:"version"`
	Features  []string  `json:"features" yaml:"features"`
	Weights   []float64 `json:"weights" yaml:"weights"`
	Intercept float64   `json:"intercept" yaml:"intercept"`
	Threshold float64   `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Scaler    *Scaler   `json:"scaler,omitempty" yaml:"scaler,omitempty"`
}

// Scaler standardizes features as (x - mean) / scale before the linear term.
type Scaler struct {
	Mean  []float64 `json:"mean" yaml:"mean"`
	Scale []float64 `json:"scale" yaml:"scale"`
}

// LogisticModel is an immutable logistic-regression classifier. It is safe
// for concurrent use.
type LogisticModel struct {
	info      Info
	weights   []float64
	intercept float64
	threshold float64
	mean      []float64
	scale     []float64
}

// NewLogisticModel validates an artifact and builds a model from it.
func NewLogisticModel(a Artifact) (*LogisticModel, error) {
	if !slices.Equal(a.Features, domain.RequiredColumns) {
		return nil, fmt.Errorf("artifact features %v do not match required columns %v", a.Features, domain.RequiredColumns)
	}

	n := len(domain.RequiredColumns)
	if len(a.Weights) != n {
		return nil, fmt.Errorf("artifact has %d weights, want %d", len(a.Weights), n)
	}

	threshold := a.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if threshold <= 0 || threshold >= 1 {
		return nil, fmt.Errorf("threshold %v outside (0, 1)", threshold)
	}

	m := &LogisticModel{
		info:      Info{Name: a.Name, Version: a.Version},
		weights:   slices.Clone(a.Weights),
		intercept: a.Intercept,
		threshold: threshold,
	}

	if a.Scaler != nil {
		if len(a.Scaler.Mean) != n || len(a.Scaler.Scale) != n {
			return nil, fmt.Errorf("scaler has %d means and %d scales, want %d", len(a.Scaler.Mean), len(a.Scaler.Scale), n)
		}
		for i, s := range a.Scaler.Scale {
			if s == 0 {
				return nil, fmt.Errorf("scaler scale for %s is zero", domain.RequiredColumns[i])
			}
		}
		m.mean = slices.Clone(a.Scaler.Mean)
		m.scale = slices.Clone(a.Scaler.Scale)
	}

	return m, nil
}

// Info implements Describer.
func (m *LogisticModel) Info() Info {
	return m.info
}

// Threshold returns the decision threshold on P(fraud).
func (m *LogisticModel) Threshold() float64 {
	return m.threshold
}

// PredictProba implements Classifier.
func (m *LogisticModel) PredictProba(ctx context.Context, features [][]float64) ([]float64, error) {
	out := make([]float64, len(features))
	for i, row := range features {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := m.probability(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

// Predict implements Classifier.
func (m *LogisticModel) Predict(ctx context.Context, features [][]float64) ([]int, error) {
	probs, err := m.PredictProba(ctx, features)
	if err != nil {
		return nil, err
	}

	labels := make([]int, len(probs))
	for i, p := range probs {
		if p >= m.threshold {
			labels[i] = 1
		}
	}
	return labels, nil
}

func (m *LogisticModel) probability(row []float64) (float64, error) {
	if len(row) != len(m.weights) {
		return 0, fmt.Errorf("got %d features, want %d", len(row), len(m.weights))
	}

	z := m.intercept
	for j, x := range row {
		if m.scale != nil {
			x = (x - m.mean[j]) / m.scale[j]
		}
		z += m.weights[j] * x
	}
	if math.IsNaN(z) {
		return 0, fmt.Errorf("non-finite decision value")
	}
	return sigmoid(z), nil
}

func sigmoid(z float64) float64 {
	// Split on sign so exp never overflows.
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// Ensure LogisticModel implements Classifier and Describer.
var (
	_ Classifier = (*LogisticModel)(nil)
	_ Describer  = (*LogisticModel)(nil)
)
