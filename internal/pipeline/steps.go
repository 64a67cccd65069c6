package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/fraud-screening/internal/classifier"
	"github.com/dvloznov/fraud-screening/internal/domain"
	"github.com/dvloznov/fraud-screening/internal/report"
)

// PipelineStep represents a single step in the screening pipeline.
type PipelineStep interface {
	Name() string
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Upload Upload
	Format Format
	Table  *domain.Table
	Batch  *domain.Batch
	Scored *domain.ScoredBatch
	Report *report.Report
}

// Step 1: LoadStep detects the format and parses the upload.
type LoadStep struct{}

func (s *LoadStep) Name() string { return "load" }

func (s *LoadStep) Execute(ctx context.Context, state *PipelineState) error {
	format, err := DetectFormat(state.Upload.Filename, state.Upload.ContentType)
	if err != nil {
		return err
	}
	table, err := LoadTable(state.Upload.Data, format)
	if err != nil {
		return err
	}
	state.Format = format
	state.Table = table
	return nil
}

// Step 2: CleanColumnsStep trims column names and drops the label column.
type CleanColumnsStep struct{}

func (s *CleanColumnsStep) Name() string { return "clean" }

func (s *CleanColumnsStep) Execute(ctx context.Context, state *PipelineState) error {
	table := CleanColumnNames(state.Table)
	if err := CheckDuplicateColumns(table, domain.RequiredColumns); err != nil {
		return err
	}
	state.Table = DropLabelColumn(table)
	return nil
}

// Step 3: ValidateStep checks required columns and projects the table.
type ValidateStep struct {
	Validator *SchemaValidator
}

func (s *ValidateStep) Name() string { return "validate" }

func (s *ValidateStep) Execute(ctx context.Context, state *PipelineState) error {
	batch, err := s.Validator.Validate(state.Table)
	if err != nil {
		return err
	}
	state.Batch = batch
	return nil
}

// Step 4: ScoreStep runs the classifier.
type ScoreStep struct {
	Classifier classifier.Classifier
}

func (s *ScoreStep) Name() string { return "score" }

func (s *ScoreStep) Execute(ctx context.Context, state *PipelineState) error {
	scored, err := ScoreBatch(ctx, s.Classifier, state.Batch)
	if err != nil {
		return err
	}
	state.Scored = scored
	return nil
}

// Step 5: PresentStep builds the single-row or summary report.
type PresentStep struct{}

func (s *PresentStep) Name() string { return "present" }

func (s *PresentStep) Execute(ctx context.Context, state *PipelineState) error {
	r, err := report.Build(state.Scored)
	if err != nil {
		return err
	}
	state.Report = r
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially and stops at the first failure.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("%s: %w", step.Name(), err)
		}
	}
	return nil
}

// NewScreeningPipeline creates the standard load, clean, validate, score and
// present pipeline around c.
func NewScreeningPipeline(c classifier.Classifier) *Pipeline {
	return NewPipeline(
		&LoadStep{},
		&CleanColumnsStep{},
		&ValidateStep{Validator: NewSchemaValidator(domain.RequiredColumns)},
		&ScoreStep{Classifier: c},
		&PresentStep{},
	)
}
