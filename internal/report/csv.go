package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/dvloznov/fraud-screening/internal/domain"
)

// DownloadFilename is the name offered for the annotated CSV export.
const DownloadFilename = "fraud_predictions.csv"

// ContentTypeCSV is the MIME type of the export.
const ContentTypeCSV = "text/csv"

// WriteCSV writes the annotated batch: the feature columns followed by
// Prediction and Fraud_Probability. Floats use the shortest representation
// that parses back to the same value, so a re-upload scores identically.
func WriteCSV(w io.Writer, batch *domain.ScoredBatch) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := make([]string, 0, len(batch.Columns)+2)
	header = append(header, batch.Columns...)
	header = append(header, domain.PredictionColumn, domain.ProbabilityColumn)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, row := range batch.Rows {
		record := make([]string, 0, len(header))
		for _, v := range row.Features {
			record = append(record, FormatFloat(v))
		}
		record = append(record, string(row.Prediction), FormatFloat(row.FraudProbability))
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// CSVBytes renders the export into memory.
func CSVBytes(batch *domain.ScoredBatch) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, batch); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FormatFloat formats v without exponent using the fewest digits that round-trip.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
