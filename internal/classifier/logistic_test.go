package classifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/fraud-screening/internal/domain"
)

// testArtifact scores on V14 and Amount only: z = -3 - V14 + 0.01*Amount.
func testArtifact() Artifact {
	w := make([]float64, len(domain.RequiredColumns))
	w[14] = -1.0 // V14
	w[29] = 0.01 // Amount
	return Artifact{
		Name:      "test",
		Version:   "v1",
		Features:  append([]string(nil), domain.RequiredColumns...),
		Weights:   w,
		Intercept: -3,
	}
}

func row(v14, amount float64) []float64 {
	r := make([]float64, len(domain.RequiredColumns))
	r[14] = v14
	r[29] = amount
	return r
}

func TestNewLogisticModel_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *Artifact)
	}{
		{"wrong feature order", func(a *Artifact) { a.Features[0], a.Features[1] = a.Features[1], a.Features[0] }},
		{"missing feature", func(a *Artifact) { a.Features = a.Features[:29] }},
		{"short weights", func(a *Artifact) { a.Weights = a.Weights[:10] }},
		{"threshold too high", func(a *Artifact) { a.Threshold = 1.5 }},
		{"negative threshold", func(a *Artifact) { a.Threshold = -0.1 }},
		{"scaler length", func(a *Artifact) { a.Scaler = &Scaler{Mean: []float64{0}, Scale: []float64{1}} }},
		{"zero scale", func(a *Artifact) {
			a.Scaler = &Scaler{Mean: make([]float64, 30), Scale: make([]float64, 30)}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testArtifact()
			tt.mutate(&a)
			_, err := NewLogisticModel(a)
			assert.Error(t, err)
		})
	}
}

func TestLogisticModel_DefaultThreshold(t *testing.T) {
	m, err := NewLogisticModel(testArtifact())
	require.NoError(t, err)
	assert.Equal(t, DefaultThreshold, m.Threshold())
	assert.Equal(t, Info{Name: "test", Version: "v1"}, Describe(m))
}

func TestLogisticModel_Predict(t *testing.T) {
	m, err := NewLogisticModel(testArtifact())
	require.NoError(t, err)

	features := [][]float64{
		row(0, 0),    // z = -3
		row(-10, 0),  // z = 7
		row(0, 300),  // z = 0, exactly at threshold
		row(0, 149.62),
	}

	probs, err := m.PredictProba(context.Background(), features)
	require.NoError(t, err)
	require.Len(t, probs, 4)
	assert.InDelta(t, 0.0474, probs[0], 1e-4)
	assert.InDelta(t, 0.9991, probs[1], 1e-4)
	assert.InDelta(t, 0.5, probs[2], 1e-12)
	for _, p := range probs {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}

	labels, err := m.Predict(context.Background(), features)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 1, 0}, labels)
}

func TestLogisticModel_Deterministic(t *testing.T) {
	m, err := NewLogisticModel(testArtifact())
	require.NoError(t, err)

	features := [][]float64{row(-2.5, 10), row(1.2, 999)}
	first, err := m.PredictProba(context.Background(), features)
	require.NoError(t, err)
	second, err := m.PredictProba(context.Background(), features)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLogisticModel_Scaler(t *testing.T) {
	a := testArtifact()
	mean := make([]float64, 30)
	scale := make([]float64, 30)
	for i := range scale {
		scale[i] = 1
	}
	mean[29] = 100
	scale[29] = 2
	a.Scaler = &Scaler{Mean: mean, Scale: scale}

	m, err := NewLogisticModel(a)
	require.NoError(t, err)

	// Amount 700 standardizes to 300, so z = -3 + 3 = 0.
	probs, err := m.PredictProba(context.Background(), [][]float64{row(0, 700)})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, probs[0], 1e-12)
}

func TestLogisticModel_RowWidth(t *testing.T) {
	m, err := NewLogisticModel(testArtifact())
	require.NoError(t, err)

	_, err = m.Predict(context.Background(), [][]float64{{1, 2, 3}})
	assert.ErrorContains(t, err, "row 0")
}

func TestLogisticModel_ExtremeValues(t *testing.T) {
	m, err := NewLogisticModel(testArtifact())
	require.NoError(t, err)

	probs, err := m.PredictProba(context.Background(), [][]float64{row(-1e6, 0), row(1e6, 0)})
	require.NoError(t, err)
	assert.Equal(t, 1.0, probs[0])
	assert.Equal(t, 0.0, probs[1])
}

func TestLogisticModel_ContextCancelled(t *testing.T) {
	m, err := NewLogisticModel(testArtifact())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = m.PredictProba(ctx, [][]float64{row(0, 0)})
	assert.ErrorIs(t, err, context.Canceled)
}
