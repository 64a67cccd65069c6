package pipeline

import (
	"context"
	"fmt"
	"math"

	"github.com/dvloznov/fraud-screening/internal/classifier"
	"github.com/dvloznov/fraud-screening/internal/domain"
)

// ScoreBatch runs the classifier once over the whole batch and attaches a
// verdict and fraud probability to every row.
func ScoreBatch(ctx context.Context, c classifier.Classifier, batch *domain.Batch) (*domain.ScoredBatch, error) {
	labels, err := c.Predict(ctx, batch.Features)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	probs, err := c.PredictProba(ctx, batch.Features)
	if err != nil {
		return nil, fmt.Errorf("predict probabilities: %w", err)
	}

	n := batch.Len()
	if len(labels) != n {
		return nil, fmt.Errorf("classifier returned %d labels for %d rows", len(labels), n)
	}
	if len(probs) != n {
		return nil, fmt.Errorf("classifier returned %d probabilities for %d rows", len(probs), n)
	}

	scored := &domain.ScoredBatch{
		Columns: batch.Columns,
		Rows:    make([]domain.ScoredTransaction, n),
	}
	for i := range n {
		verdict, ok := domain.VerdictFromLabel(labels[i])
		if !ok {
			return nil, fmt.Errorf("row %d: unexpected label %d", i+1, labels[i])
		}
		p := probs[i]
		if math.IsNaN(p) || p < 0 || p > 1 {
			return nil, fmt.Errorf("row %d: probability %v outside [0, 1]", i+1, p)
		}
		scored.Rows[i] = domain.ScoredTransaction{
			Features:         batch.Features[i],
			Prediction:       verdict,
			FraudProbability: p,
		}
	}
	return scored, nil
}
