package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"testing"

	"github.com/dvloznov/fraud-screening/internal/domain"
	"github.com/stretchr/testify/require"
)

// spyClassifier flags rows whose Time is at least 100 and records what it
// was asked to score.
type spyClassifier struct {
	calls int
	seen  [][]float64
}

func (s *spyClassifier) Predict(ctx context.Context, features [][]float64) ([]int, error) {
	s.calls++
	s.seen = features
	labels := make([]int, len(features))
	for i, row := range features {
		if row[0] >= 100 {
			labels[i] = 1
		}
	}
	return labels, nil
}

func (s *spyClassifier) PredictProba(ctx context.Context, features [][]float64) ([]float64, error) {
	probs := make([]float64, len(features))
	for i, row := range features {
		p := row[0] / 1000
		if p > 1 {
			p = 1
		}
		probs[i] = p
	}
	return probs, nil
}

// featureValues returns 30 cells in required order with the given Time, V14
// and Amount.
func featureValues(timeVal, v14, amount float64) map[string]string {
	values := make(map[string]string, len(domain.RequiredColumns))
	for i, c := range domain.RequiredColumns {
		values[c] = strconv.FormatFloat(float64(i)/10, 'f', -1, 64)
	}
	values["Time"] = strconv.FormatFloat(timeVal, 'f', -1, 64)
	values["V14"] = strconv.FormatFloat(v14, 'f', -1, 64)
	values["Amount"] = strconv.FormatFloat(amount, 'f', -1, 64)
	return values
}

// buildCSV renders rows under header; cells absent from a row are left empty.
func buildCSV(t *testing.T, header []string, rows ...map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.Write(header))
	for _, row := range rows {
		record := make([]string, len(header))
		for i, c := range header {
			record[i] = row[c]
		}
		require.NoError(t, w.Write(record))
	}
	w.Flush()
	require.NoError(t, w.Error())
	return buf.Bytes()
}

func withColumns(extra ...string) []string {
	return append(append([]string(nil), domain.RequiredColumns...), extra...)
}

func withoutColumn(name string) []string {
	var out []string
	for _, c := range domain.RequiredColumns {
		if c != name {
			out = append(out, c)
		}
	}
	return out
}
