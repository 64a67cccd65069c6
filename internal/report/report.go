// Package report turns a scored batch into what the user sees: a verdict
// banner for a single transaction, or summary counts plus a downloadable
// CSV for many.
package report

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/fraud-screening/internal/domain"
)

// ErrEmptyBatch is returned when there is nothing to present.
var ErrEmptyBatch = errors.New("no scored transactions to present")

// Report is the presentation of one scoring run. Exactly one of Single and
// Summary is set.
type Report struct {
	Batch   *domain.ScoredBatch
	Single  *SingleResult
	Summary *Summary
}

// IsSingle reports whether the upload contained exactly one transaction.
func (r *Report) IsSingle() bool {
	return r.Single != nil
}

// SingleResult is the detail view of a one-transaction upload.
type SingleResult struct {
	Prediction       domain.Verdict
	FraudProbability float64
	// Confidence is the probability of the predicted class.
	Confidence float64
}

// Banner returns the pass/fail headline shown for a single transaction.
func (s *SingleResult) Banner() string {
	if s.Prediction == domain.VerdictFraud {
		return fmt.Sprintf("FRAUD DETECTED! (Confidence: %s)", FormatPercent(s.Confidence))
	}
	return fmt.Sprintf("LEGITIMATE TRANSACTION (Confidence: %s)", FormatPercent(s.Confidence))
}

// Summary is the aggregate view of a multi-transaction upload.
type Summary struct {
	Total int
	Legit int
	Fraud int
	// FraudAmount is the summed Amount of transactions flagged as fraud.
	FraudAmount decimal.Decimal
}

// Build branches on row count and assembles the matching view.
func Build(batch *domain.ScoredBatch) (*Report, error) {
	if batch == nil || batch.Len() == 0 {
		return nil, ErrEmptyBatch
	}

	r := &Report{Batch: batch}
	if batch.Len() == 1 {
		row := batch.Rows[0]
		r.Single = &SingleResult{
			Prediction:       row.Prediction,
			FraudProbability: row.FraudProbability,
			Confidence:       Confidence(row.Prediction, row.FraudProbability),
		}
		return r, nil
	}

	r.Summary = Summarize(batch)
	return r, nil
}

// Summarize counts verdicts across the batch.
func Summarize(batch *domain.ScoredBatch) *Summary {
	s := &Summary{Total: batch.Len(), FraudAmount: decimal.Zero}
	for i, row := range batch.Rows {
		switch row.Prediction {
		case domain.VerdictFraud:
			s.Fraud++
			if amount, ok := batch.Value(i, domain.AmountColumn); ok {
				s.FraudAmount = s.FraudAmount.Add(decimal.NewFromFloat(amount))
			}
		case domain.VerdictLegit:
			s.Legit++
		}
	}
	s.FraudAmount = s.FraudAmount.Round(2)
	return s
}

// Confidence is P(fraud) for a fraud verdict and 1 - P(fraud) otherwise.
func Confidence(prediction domain.Verdict, fraudProbability float64) float64 {
	if prediction == domain.VerdictFraud {
		return fraudProbability
	}
	return 1 - fraudProbability
}

// FormatPercent renders a probability as a percentage with two decimals.
func FormatPercent(p float64) string {
	return decimal.NewFromFloat(p).Shift(2).StringFixed(2) + "%"
}
