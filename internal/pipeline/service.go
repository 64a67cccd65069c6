package pipeline

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/fraud-screening/internal/classifier"
	"github.com/dvloznov/fraud-screening/internal/domain"
	"github.com/dvloznov/fraud-screening/internal/gcsuploader"
	infra "github.com/dvloznov/fraud-screening/internal/infra/bigquery"
	"github.com/dvloznov/fraud-screening/internal/logger"
	"github.com/dvloznov/fraud-screening/internal/metrics"
	"github.com/dvloznov/fraud-screening/internal/report"
	"github.com/google/uuid"
)

// Result is the outcome of one successful upload.
type Result struct {
	RunID      string
	Format     Format
	Report     *report.Report
	ArchiveURI string
}

// Service runs the screening pipeline for one upload at a time and keeps the
// optional run ledger and result archive up to date.
type Service struct {
	pipeline      *Pipeline
	model         classifier.Info
	runs          RunRecorder
	archive       Archiver
	archiveBucket string
	observer      Observer
	now           func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRunRecorder records every upload in the run ledger.
func WithRunRecorder(r RunRecorder) Option {
	return func(s *Service) { s.runs = r }
}

// WithArchive uploads every multi-row export to bucket.
func WithArchive(a Archiver, bucket string) Option {
	return func(s *Service) {
		s.archive = a
		s.archiveBucket = bucket
	}
}

// WithObserver reports upload metrics to o.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// NewService creates a service around classifier c.
func NewService(c classifier.Classifier, opts ...Option) *Service {
	s := &Service{
		pipeline: NewScreeningPipeline(c),
		model:    classifier.Describe(c),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScoreUpload runs the pipeline over upload. Ledger and archive failures are
// logged and never fail the upload.
func (s *Service) ScoreUpload(ctx context.Context, upload Upload) (*Result, error) {
	runID := uuid.NewString()
	log := logger.WithFields(logger.FromContext(ctx), map[string]interface{}{
		"run_id":     runID,
		"filename":   upload.Filename,
		"size_bytes": len(upload.Data),
	})
	ctx = logger.WithContext(ctx, log)

	started := s.now()
	recorded := s.startRun(ctx, runID, upload, started)

	state := &PipelineState{Upload: upload}
	err := s.pipeline.Execute(ctx, state)
	elapsed := s.now().Sub(started)

	if err != nil {
		s.observe(state.Format, metrics.OutcomeFailure, elapsed)
		if recorded {
			s.runs.MarkScoringRunFailed(ctx, runID, err)
		}
		log.Warn().Err(err).Dur("elapsed", elapsed).Msg("Upload rejected")
		return nil, err
	}

	summary := report.Summarize(state.Scored)
	s.observe(state.Format, metrics.OutcomeSuccess, elapsed)
	if s.observer != nil {
		s.observer.ObserveVerdicts(summary.Legit, summary.Fraud)
	}

	result := &Result{RunID: runID, Format: state.Format, Report: state.Report}
	if !state.Report.IsSingle() {
		result.ArchiveURI = s.archiveResults(ctx, runID, started, state.Scored)
	}

	if recorded {
		outcome := infra.RunOutcome{
			Rows:       summary.Total,
			Legit:      summary.Legit,
			Fraud:      summary.Fraud,
			ArchiveURI: result.ArchiveURI,
		}
		if err := s.runs.MarkScoringRunSucceeded(ctx, runID, outcome); err != nil {
			log.Error().Err(err).Msg("Failed to mark scoring run succeeded")
		}
	}

	log.Info().
		Str("format", string(state.Format)).
		Int("rows", summary.Total).
		Int("fraud", summary.Fraud).
		Dur("elapsed", elapsed).
		Msg("Upload scored")

	return result, nil
}

func (s *Service) startRun(ctx context.Context, runID string, upload Upload, started time.Time) bool {
	if s.runs == nil {
		return false
	}
	format, _ := DetectFormat(upload.Filename, upload.ContentType)
	row := &infra.ScoringRunRow{
		RunID:        runID,
		RunDate:      civil.DateOf(started.UTC()),
		Filename:     upload.Filename,
		FileFormat:   string(format),
		ModelName:    s.model.Name,
		ModelVersion: s.model.Version,
		Status:       infra.StatusRunning,
		StartedTS:    started,
	}
	if err := s.runs.InsertScoringRun(ctx, row); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to record scoring run")
		return false
	}
	return true
}

func (s *Service) archiveResults(ctx context.Context, runID string, started time.Time, batch *domain.ScoredBatch) string {
	if s.archive == nil || s.archiveBucket == "" {
		return ""
	}
	log := logger.FromContext(ctx)

	data, err := report.CSVBytes(batch)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode results for archive")
		return ""
	}
	object := ArchiveObjectName(runID, started)
	if err := s.archive.UploadBytes(ctx, s.archiveBucket, object, report.ContentTypeCSV, data); err != nil {
		log.Error().Err(err).Str("object", object).Msg("Failed to archive results")
		return ""
	}
	return gcsuploader.BuildGCSURI(s.archiveBucket, object)
}

func (s *Service) observe(format Format, outcome string, elapsed time.Duration) {
	if s.observer != nil {
		s.observer.ObserveUpload(string(format), outcome, elapsed)
	}
}

// ArchiveObjectName is where a run's export lands in the archive bucket.
func ArchiveObjectName(runID string, started time.Time) string {
	return fmt.Sprintf("predictions/%s/%s.csv", started.UTC().Format("2006/01/02"), runID)
}
