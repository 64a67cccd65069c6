package handlers

import (
	"github.com/dvloznov/fraud-screening/internal/pipeline"
	"github.com/dvloznov/fraud-screening/internal/report"
)

type predictResponse struct {
	RunID        string            `json:"run_id"`
	Format       string            `json:"format"`
	Single       *singleResponse   `json:"single,omitempty"`
	Summary      *summaryResponse  `json:"summary,omitempty"`
	Columns      []string          `json:"columns"`
	Transactions []transactionJSON `json:"transactions"`
	ArchiveURI   string            `json:"archive_uri,omitempty"`
}

type singleResponse struct {
	Prediction       string  `json:"prediction"`
	FraudProbability float64 `json:"fraud_probability"`
	Confidence       float64 `json:"confidence"`
	Banner           string  `json:"banner"`
}

type summaryResponse struct {
	Total       int    `json:"total"`
	Legit       int    `json:"legit"`
	Fraud       int    `json:"fraud"`
	FraudAmount string `json:"fraud_amount"`
}

type transactionJSON struct {
	Row              int       `json:"row"`
	Features         []float64 `json:"features"`
	Prediction       string    `json:"prediction"`
	FraudProbability float64   `json:"fraud_probability"`
}

func newPredictResponse(result *pipeline.Result) predictResponse {
	r := result.Report
	resp := predictResponse{
		RunID:        result.RunID,
		Format:       string(result.Format),
		Columns:      r.Batch.Columns,
		Transactions: make([]transactionJSON, len(r.Batch.Rows)),
		ArchiveURI:   result.ArchiveURI,
	}

	for i, row := range r.Batch.Rows {
		resp.Transactions[i] = transactionJSON{
			Row:              i + 1,
			Features:         row.Features,
			Prediction:       string(row.Prediction),
			FraudProbability: row.FraudProbability,
		}
	}

	if r.IsSingle() {
		resp.Single = &singleResponse{
			Prediction:       string(r.Single.Prediction),
			FraudProbability: r.Single.FraudProbability,
			Confidence:       r.Single.Confidence,
			Banner:           r.Single.Banner(),
		}
	} else {
		resp.Summary = newSummaryResponse(r.Summary)
	}
	return resp
}

func newSummaryResponse(s *report.Summary) *summaryResponse {
	return &summaryResponse{
		Total:       s.Total,
		Legit:       s.Legit,
		Fraud:       s.Fraud,
		FraudAmount: s.FraudAmount.StringFixed(2),
	}
}
