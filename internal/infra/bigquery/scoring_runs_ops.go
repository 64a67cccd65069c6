package bigquery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/fraud-screening/internal/logger"
	"google.golang.org/api/iterator"
)

const maxErrorMessageLen = 2000

func tableRef(dataset string) string {
	return fmt.Sprintf("`%s.%s`", dataset, scoringRunsTable)
}

// InsertScoringRunWithClient inserts row with status=RUNNING.
func InsertScoringRunWithClient(ctx context.Context, client *bigquery.Client, dataset string, row *ScoringRunRow) error {
	if row.RunID == "" {
		return errors.New("InsertScoringRun: run_id is required")
	}

	q := client.Query(fmt.Sprintf(`
		INSERT %s (
			run_id,
			run_date,
			filename,
			file_format,
			model_name,
			model_version,
			status,
			started_ts
		)
		VALUES (
			@run_id,
			@run_date,
			@filename,
			@file_format,
			@model_name,
			@model_version,
			@status,
			@started_ts
		)
	`, tableRef(dataset)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: row.RunID},
		{Name: "run_date", Value: row.RunDate},
		{Name: "filename", Value: row.Filename},
		{Name: "file_format", Value: row.FileFormat},
		{Name: "model_name", Value: row.ModelName},
		{Name: "model_version", Value: row.ModelVersion},
		{Name: "status", Value: StatusRunning},
		{Name: "started_ts", Value: row.StartedTS},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertScoringRun: %w", err)
	}
	return nil
}

// MarkScoringRunFailedWithClient sets status=FAILED, finished_ts and
// error_message. Failures are logged, not returned.
func MarkScoringRunFailedWithClient(ctx context.Context, client *bigquery.Client, dataset, runID string, runErr error) {
	log := logger.FromContext(ctx)

	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, tableRef(dataset)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: StatusFailed},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: truncateError(runErr)},
		{Name: "run_id", Value: runID},
	}

	if err := runDML(ctx, q); err != nil {
		log.Error().
			Err(err).
			Str("run_id", runID).
			Msg("MarkScoringRunFailed: update failed")
	}
}

// MarkScoringRunSucceededWithClient sets status=SUCCESS with the final counts.
func MarkScoringRunSucceededWithClient(ctx context.Context, client *bigquery.Client, dataset, runID string, outcome RunOutcome) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    row_count = @row_count,
		    legit_count = @legit_count,
		    fraud_count = @fraud_count,
		    archive_uri = NULLIF(@archive_uri, '')
		WHERE run_id = @run_id
	`, tableRef(dataset)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: StatusSuccess},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "row_count", Value: int64(outcome.Rows)},
		{Name: "legit_count", Value: int64(outcome.Legit)},
		{Name: "fraud_count", Value: int64(outcome.Fraud)},
		{Name: "archive_uri", Value: outcome.ArchiveURI},
		{Name: "run_id", Value: runID},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("MarkScoringRunSucceeded: %w", err)
	}
	return nil
}

// ListRecentScoringRunsWithClient returns the newest runs first.
func ListRecentScoringRunsWithClient(ctx context.Context, client *bigquery.Client, dataset string, limit int) ([]*ScoringRunRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			run_id,
			run_date,
			filename,
			file_format,
			model_name,
			model_version,
			status,
			started_ts,
			finished_ts,
			row_count,
			legit_count,
			fraud_count,
			error_message,
			archive_uri
		FROM %s
		ORDER BY started_ts DESC
		LIMIT @limit
	`, tableRef(dataset)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "limit", Value: int64(limit)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRecentScoringRuns: reading query: %w", err)
	}

	var runs []*ScoringRunRow
	for {
		var row ScoringRunRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListRecentScoringRuns: iterating: %w", err)
		}
		runs = append(runs, &row)
	}
	return runs, nil
}

func runDML(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

func truncateError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > maxErrorMessageLen {
		msg = msg[:maxErrorMessageLen]
	}
	return msg
}
