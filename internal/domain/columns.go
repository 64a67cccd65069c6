package domain

import "fmt"

const (
	// LabelColumn is the ground-truth column present in training exports.
	// It is dropped on load and never reaches the classifier.
	LabelColumn = "Class"

	// PredictionColumn holds the human-readable verdict in exports.
	PredictionColumn = "Prediction"

	// ProbabilityColumn holds the fraud probability in exports.
	ProbabilityColumn = "Fraud_Probability"

	// AmountColumn is the monetary amount feature.
	AmountColumn = "Amount"
)

// RequiredColumns is the exact feature order the classifier expects:
// Time, V1..V28, Amount.
var RequiredColumns = buildRequiredColumns()

func buildRequiredColumns() []string {
	cols := make([]string, 0, 30)
	cols = append(cols, "Time")
	for i := 1; i <= 28; i++ {
		cols = append(cols, fmt.Sprintf("V%d", i))
	}
	return append(cols, AmountColumn)
}
