package pipeline

import (
	"context"
	"time"

	infra "github.com/dvloznov/fraud-screening/internal/infra/bigquery"
)

// RunRecorder writes the audit trail of scoring runs.
type RunRecorder interface {
	InsertScoringRun(ctx context.Context, row *infra.ScoringRunRow) error
	MarkScoringRunFailed(ctx context.Context, runID string, runErr error)
	MarkScoringRunSucceeded(ctx context.Context, runID string, outcome infra.RunOutcome) error
}

// Archiver stores exported result files.
type Archiver interface {
	UploadBytes(ctx context.Context, bucketName, objectName, contentType string, data []byte) error
}

// Observer receives per-upload measurements.
type Observer interface {
	ObserveUpload(format, outcome string, elapsed time.Duration)
	ObserveVerdicts(legit, fraud int)
}
