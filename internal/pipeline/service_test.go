package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/fraud-screening/internal/domain"
	infra "github.com/dvloznov/fraud-screening/internal/infra/bigquery"
	"github.com/dvloznov/fraud-screening/internal/logger"
	"github.com/dvloznov/fraud-screening/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRunRecorder struct {
	insertErr  error
	inserted   []*infra.ScoringRunRow
	failed     map[string]error
	succeeded  map[string]infra.RunOutcome
	succeedErr error
}

func newMockRunRecorder() *mockRunRecorder {
	return &mockRunRecorder{
		failed:    make(map[string]error),
		succeeded: make(map[string]infra.RunOutcome),
	}
}

func (m *mockRunRecorder) InsertScoringRun(ctx context.Context, row *infra.ScoringRunRow) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, row)
	return nil
}

func (m *mockRunRecorder) MarkScoringRunFailed(ctx context.Context, runID string, runErr error) {
	m.failed[runID] = runErr
}

func (m *mockRunRecorder) MarkScoringRunSucceeded(ctx context.Context, runID string, outcome infra.RunOutcome) error {
	m.succeeded[runID] = outcome
	return m.succeedErr
}

type mockArchiver struct {
	err     error
	objects map[string][]byte
}

func (m *mockArchiver) UploadBytes(ctx context.Context, bucketName, objectName, contentType string, data []byte) error {
	if m.err != nil {
		return m.err
	}
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[bucketName+"/"+objectName] = data
	return nil
}

type mockObserver struct {
	uploads []string
	legit   int
	fraud   int
}

func (m *mockObserver) ObserveUpload(format, outcome string, elapsed time.Duration) {
	m.uploads = append(m.uploads, format+":"+outcome)
}

func (m *mockObserver) ObserveVerdicts(legit, fraud int) {
	m.legit += legit
	m.fraud += fraud
}

func fixedClock() func() time.Time {
	t := time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func multiRowUpload(t *testing.T) Upload {
	return Upload{
		Filename: "batch.csv",
		Data: buildCSV(t, domain.RequiredColumns,
			featureValues(1, 0, 10),
			featureValues(200, 0, 25),
			featureValues(3, 0, 30),
		),
	}
}

func TestService_ScoreUpload_RecordsAndArchives(t *testing.T) {
	runs := newMockRunRecorder()
	archive := &mockArchiver{}
	observer := &mockObserver{}

	svc := NewService(&spyClassifier{},
		WithRunRecorder(runs),
		WithArchive(archive, "results-bucket"),
		WithObserver(observer),
	)
	svc.now = fixedClock()

	result, err := svc.ScoreUpload(context.Background(), multiRowUpload(t))
	require.NoError(t, err)

	require.Len(t, runs.inserted, 1)
	row := runs.inserted[0]
	assert.Equal(t, result.RunID, row.RunID)
	assert.Equal(t, civil.Date{Year: 2024, Month: 3, Day: 9}, row.RunDate)
	assert.Equal(t, "csv", row.FileFormat)
	assert.Equal(t, "batch.csv", row.Filename)
	assert.Equal(t, infra.StatusRunning, row.Status)

	wantObject := "predictions/2024/03/09/" + result.RunID + ".csv"
	assert.Equal(t, "gs://results-bucket/"+wantObject, result.ArchiveURI)
	exported := archive.objects["results-bucket/"+wantObject]
	require.NotEmpty(t, exported)
	assert.True(t, strings.HasPrefix(string(exported), "Time,V1,"))

	outcome := runs.succeeded[result.RunID]
	assert.Equal(t, infra.RunOutcome{Rows: 3, Legit: 2, Fraud: 1, ArchiveURI: result.ArchiveURI}, outcome)
	assert.Empty(t, runs.failed)

	assert.Equal(t, []string{"csv:" + metrics.OutcomeSuccess}, observer.uploads)
	assert.Equal(t, 2, observer.legit)
	assert.Equal(t, 1, observer.fraud)
}

func TestService_ScoreUpload_SingleRowNotArchived(t *testing.T) {
	archive := &mockArchiver{}
	svc := NewService(&spyClassifier{}, WithArchive(archive, "results-bucket"))

	data := buildCSV(t, domain.RequiredColumns, featureValues(5, 0, 1))
	result, err := svc.ScoreUpload(context.Background(), Upload{Filename: "one.csv", Data: data})
	require.NoError(t, err)
	assert.True(t, result.Report.IsSingle())
	assert.Empty(t, result.ArchiveURI)
	assert.Empty(t, archive.objects)
}

func TestService_ScoreUpload_FailureMarksRun(t *testing.T) {
	runs := newMockRunRecorder()
	observer := &mockObserver{}
	svc := NewService(&spyClassifier{}, WithRunRecorder(runs), WithObserver(observer))

	data := buildCSV(t, withoutColumn("V17"), featureValues(1, 0, 10))
	_, err := svc.ScoreUpload(context.Background(), Upload{Filename: "bad.csv", Data: data})

	var missingErr *MissingColumnsError
	require.True(t, errors.As(err, &missingErr))
	require.Len(t, runs.inserted, 1)
	assert.ErrorAs(t, runs.failed[runs.inserted[0].RunID], &missingErr)
	assert.Empty(t, runs.succeeded)
	assert.Equal(t, []string{"csv:" + metrics.OutcomeFailure}, observer.uploads)
}

func TestService_ScoreUpload_LedgerAndArchiveFailuresIgnored(t *testing.T) {
	runs := newMockRunRecorder()
	runs.insertErr = errors.New("bigquery unavailable")
	archive := &mockArchiver{err: errors.New("bucket missing")}

	svc := NewService(&spyClassifier{}, WithRunRecorder(runs), WithArchive(archive, "results-bucket"))

	result, err := svc.ScoreUpload(context.Background(), multiRowUpload(t))
	require.NoError(t, err)
	assert.Empty(t, result.ArchiveURI)
	assert.Equal(t, 3, result.Report.Summary.Total)
	assert.Empty(t, runs.succeeded, "unrecorded run must not be updated")
}

func TestArchiveObjectName(t *testing.T) {
	started := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "predictions/2025/01/02/abc.csv", ArchiveObjectName("abc", started))
}

func TestService_ScoreUpload_LogsRunFields(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(buf))

	upload := multiRowUpload(t)
	result, err := NewService(&spyClassifier{}).ScoreUpload(ctx, upload)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"run_id":"`+result.RunID+`"`)
	assert.Contains(t, out, `"filename":"batch.csv"`)
	assert.Contains(t, out, `"size_bytes":`)
}
