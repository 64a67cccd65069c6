// Package classifier defines the contract the scoring pipeline needs from a
// pre-trained binary fraud model, and a logistic-regression implementation
// loaded from a serialized artifact.
package classifier

import (
	"context"
)

// Classifier is an opaque pre-trained binary model over the fixed feature
// schema. Rows must be in domain.RequiredColumns order.
type Classifier interface {
	// Predict returns a class label (0 = legit, 1 = fraud) per row.
	Predict(ctx context.Context, features [][]float64) ([]int, error)

	// PredictProba returns the probability of label 1 per row.
	PredictProba(ctx context.Context, features [][]float64) ([]float64, error)
}

// Info describes a loaded model for logs and the run ledger.
type Info struct {
	Name    string
	Version string
}

// Describer is implemented by classifiers that can report their identity.
type Describer interface {
	Info() Info
}

// Describe returns c's identity, or an empty Info when c does not implement Describer.
func Describe(c Classifier) Info {
	if d, ok := c.(Describer); ok {
		return d.Info()
	}
	return Info{}
}
