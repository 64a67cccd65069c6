package bigquery

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// RunRepository records and lists scoring runs.
type RunRepository interface {
	InsertScoringRun(ctx context.Context, row *ScoringRunRow) error
	MarkScoringRunFailed(ctx context.Context, runID string, runErr error)
	MarkScoringRunSucceeded(ctx context.Context, runID string, outcome RunOutcome) error
	ListRecentScoringRuns(ctx context.Context, limit int) ([]*ScoringRunRow, error)
}

// BigQueryRunRepository is the BigQuery-backed RunRepository. It holds one
// shared client for the life of the process.
type BigQueryRunRepository struct {
	client  *bigquery.Client
	dataset string
}

// NewBigQueryRunRepository creates a repository writing to dataset in projectID.
func NewBigQueryRunRepository(ctx context.Context, projectID, dataset string) (*BigQueryRunRepository, error) {
	if projectID == "" {
		return nil, errors.New("NewBigQueryRunRepository: project ID is required")
	}
	if dataset == "" {
		return nil, errors.New("NewBigQueryRunRepository: dataset is required")
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryRunRepository: creating client: %w", err)
	}
	return &BigQueryRunRepository{client: client, dataset: dataset}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryRunRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *BigQueryRunRepository) InsertScoringRun(ctx context.Context, row *ScoringRunRow) error {
	return InsertScoringRunWithClient(ctx, r.client, r.dataset, row)
}

func (r *BigQueryRunRepository) MarkScoringRunFailed(ctx context.Context, runID string, runErr error) {
	MarkScoringRunFailedWithClient(ctx, r.client, r.dataset, runID, runErr)
}

func (r *BigQueryRunRepository) MarkScoringRunSucceeded(ctx context.Context, runID string, outcome RunOutcome) error {
	return MarkScoringRunSucceededWithClient(ctx, r.client, r.dataset, runID, outcome)
}

func (r *BigQueryRunRepository) ListRecentScoringRuns(ctx context.Context, limit int) ([]*ScoringRunRow, error) {
	return ListRecentScoringRunsWithClient(ctx, r.client, r.dataset, limit)
}

var _ RunRepository = (*BigQueryRunRepository)(nil)
