package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

const scoringRunsTable = "scoring_runs"

// Run statuses.
const (
	StatusRunning = "RUNNING"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// ScoringRunRow is one upload in <dataset>.scoring_runs. It holds counts
// only, never transaction values.
type ScoringRunRow struct {
	RunID   string     `bigquery:"run_id"`   // REQUIRED
	RunDate civil.Date `bigquery:"run_date"` // REQUIRED, partition column

	Filename     string `bigquery:"filename"`
	FileFormat   string `bigquery:"file_format"`
	ModelName    string `bigquery:"model_name"`
	ModelVersion string `bigquery:"model_version"`

	Status     string                 `bigquery:"status"`     // REQUIRED
	StartedTS  time.Time              `bigquery:"started_ts"` // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"`

	RowCount   bigquery.NullInt64 `bigquery:"row_count"`
	LegitCount bigquery.NullInt64 `bigquery:"legit_count"`
	FraudCount bigquery.NullInt64 `bigquery:"fraud_count"`

	ErrorMessage bigquery.NullString `bigquery:"error_message"`
	ArchiveURI   bigquery.NullString `bigquery:"archive_uri"`
}

// RunOutcome carries the counts written when a run succeeds.
type RunOutcome struct {
	Rows       int
	Legit      int
	Fraud      int
	ArchiveURI string
}
