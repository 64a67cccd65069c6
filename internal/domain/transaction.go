package domain

// Table is a parsed upload before validation: ordered column names and raw
// string cells, one slice per row.
type Table struct {
	Columns []string
	Rows    [][]string
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Batch is a validated table projected into RequiredColumns order.
type Batch struct {
	Columns  []string
	Features [][]float64
}

// Len returns the number of transactions in the batch.
func (b *Batch) Len() int {
	return len(b.Features)
}

// Verdict is the human label attached to a scored transaction.
type Verdict string

const (
	VerdictLegit Verdict = "Legit"
	VerdictFraud Verdict = "Fraud"
)

// VerdictFromLabel maps a classifier label to its verdict.
func VerdictFromLabel(label int) (Verdict, bool) {
	switch label {
	case 0:
		return VerdictLegit, true
	case 1:
		return VerdictFraud, true
	default:
		return "", false
	}
}

// ScoredTransaction is one row of a batch with its verdict attached.
type ScoredTransaction struct {
	Features         []float64
	Prediction       Verdict
	FraudProbability float64
}

// ScoredBatch is a batch after the classifier has run.
type ScoredBatch struct {
	Columns []string
	Rows    []ScoredTransaction
}

// Len returns the number of scored transactions.
func (s *ScoredBatch) Len() int {
	return len(s.Rows)
}

// Value returns the feature value of row i for the named column.
func (s *ScoredBatch) Value(i int, column string) (float64, bool) {
	for j, c := range s.Columns {
		if c == column {
			return s.Rows[i].Features[j], true
		}
	}
	return 0, false
}
