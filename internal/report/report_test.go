package report

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/fraud-screening/internal/domain"
)

func scored(rows ...domain.ScoredTransaction) *domain.ScoredBatch {
	return &domain.ScoredBatch{
		Columns: append([]string(nil), domain.RequiredColumns...),
		Rows:    rows,
	}
}

func tx(amount float64, verdict domain.Verdict, p float64) domain.ScoredTransaction {
	f := make([]float64, len(domain.RequiredColumns))
	f[len(f)-1] = amount
	return domain.ScoredTransaction{Features: f, Prediction: verdict, FraudProbability: p}
}

func TestBuild_Empty(t *testing.T) {
	_, err := Build(scored())
	assert.ErrorIs(t, err, ErrEmptyBatch)

	_, err = Build(nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestBuild_SingleFraud(t *testing.T) {
	r, err := Build(scored(tx(149.62, domain.VerdictFraud, 0.9731)))
	require.NoError(t, err)

	require.True(t, r.IsSingle())
	assert.Nil(t, r.Summary)
	assert.Equal(t, 0.9731, r.Single.Confidence)
	assert.Equal(t, "FRAUD DETECTED! (Confidence: 97.31%)", r.Single.Banner())
}

func TestBuild_SingleLegit(t *testing.T) {
	r, err := Build(scored(tx(2.69, domain.VerdictLegit, 0.0125)))
	require.NoError(t, err)

	require.True(t, r.IsSingle())
	assert.InDelta(t, 0.9875, r.Single.Confidence, 1e-12)
	assert.Equal(t, "LEGITIMATE TRANSACTION (Confidence: 98.75%)", r.Single.Banner())
}

func TestConfidence_InUnitInterval(t *testing.T) {
	for _, p := range []float64{0, 0.001, 0.25, 0.5, 0.75, 0.999, 1} {
		for _, v := range []domain.Verdict{domain.VerdictLegit, domain.VerdictFraud} {
			c := Confidence(v, p)
			assert.GreaterOrEqual(t, c, 0.0)
			assert.LessOrEqual(t, c, 1.0)
			if v == domain.VerdictFraud {
				assert.Equal(t, p, c)
			} else {
				assert.Equal(t, 1-p, c)
			}
		}
	}
}

func TestBuild_Batch(t *testing.T) {
	r, err := Build(scored(
		tx(10.10, domain.VerdictLegit, 0.01),
		tx(99.99, domain.VerdictFraud, 0.91),
		tx(0.01, domain.VerdictFraud, 0.66),
		tx(5, domain.VerdictLegit, 0.2),
	))
	require.NoError(t, err)

	require.False(t, r.IsSingle())
	require.NotNil(t, r.Summary)
	assert.Equal(t, 4, r.Summary.Total)
	assert.Equal(t, 2, r.Summary.Legit)
	assert.Equal(t, 2, r.Summary.Fraud)
	assert.Equal(t, r.Summary.Total, r.Summary.Legit+r.Summary.Fraud)
	assert.Equal(t, "100.00", r.Summary.FraudAmount.StringFixed(2))
}

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		p    float64
		want string
	}{
		{0, "0.00%"},
		{1, "100.00%"},
		{0.5, "50.00%"},
		{0.12345, "12.35%"},
		{0.999999, "100.00%"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatPercent(tt.p))
	}
}

func TestWriteCSV(t *testing.T) {
	batch := scored(tx(149.62, domain.VerdictLegit, 0.0042), tx(1e-7, domain.VerdictFraud, 0.87))

	data, err := CSVBytes(batch)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	header := records[0]
	require.Len(t, header, 32)
	assert.Equal(t, "Time", header[0])
	assert.Equal(t, "Amount", header[29])
	assert.Equal(t, "Prediction", header[30])
	assert.Equal(t, "Fraud_Probability", header[31])

	assert.Equal(t, "149.62", records[1][29])
	assert.Equal(t, "Legit", records[1][30])
	assert.Equal(t, "0.0042", records[1][31])
	assert.Equal(t, "Fraud", records[2][30])

	v, err := strconv.ParseFloat(records[2][29], 64)
	require.NoError(t, err)
	assert.Equal(t, 1e-7, v)
}
