package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dvloznov/fraud-screening/internal/classifier"
	"github.com/dvloznov/fraud-screening/internal/gcsuploader"
	"github.com/dvloznov/fraud-screening/internal/logger"
	"github.com/dvloznov/fraud-screening/internal/pipeline"
	"github.com/dvloznov/fraud-screening/internal/report"
	"github.com/spf13/cobra"
)

func newScoreCommand(opts Options) *cobra.Command {
	var modelURI string
	var outPath string

	cmd := &cobra.Command{
		Use:   "score FILE",
		Short: "Score a CSV or JSON file of transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd.Context(), opts, cmd.OutOrStdout(), args[0], modelURI, outPath)
		},
	}

	cmd.Flags().StringVar(&modelURI, "model", opts.Config.ModelURI, "model artifact path or gs:// URI")
	cmd.Flags().StringVar(&outPath, "out", report.DownloadFilename, "where to write predictions for multi-row files")

	return cmd
}

func runScore(ctx context.Context, opts Options, out io.Writer, path, modelURI, outPath string) error {
	log := opts.Log
	ctx = logger.WithContext(ctx, log)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	model, err := loadModel(ctx, opts, modelURI)
	if err != nil {
		return err
	}

	var svcOpts []pipeline.Option
	if opts.Config.LedgerEnabled() {
		runs, err := opts.NewRunStore(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Run ledger unavailable, continuing without it")
		} else {
			defer runs.Close()
			svcOpts = append(svcOpts, pipeline.WithRunRecorder(runs))
		}
	}

	svc := pipeline.NewService(model, svcOpts...)
	result, err := svc.ScoreUpload(ctx, pipeline.Upload{
		Filename: filepath.Base(path),
		Data:     data,
	})
	if err != nil {
		return describeFailure(err)
	}

	r := result.Report
	if r.IsSingle() {
		fmt.Fprintln(out, r.Single.Banner())
		fmt.Fprintf(out, "Prediction: %s\n", r.Single.Prediction)
		fmt.Fprintf(out, "Fraud probability: %s\n", report.FormatFloat(r.Single.FraudProbability))
		return nil
	}

	s := r.Summary
	fmt.Fprintf(out, "Total transactions: %d\n", s.Total)
	fmt.Fprintf(out, "Legitimate: %d\n", s.Legit)
	fmt.Fprintf(out, "Fraudulent: %d\n", s.Fraud)
	fmt.Fprintf(out, "Flagged amount: %s\n", s.FraudAmount.StringFixed(2))

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outPath, err)
	}
	if err := report.WriteCSV(f, r.Batch); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", outPath, err)
	}
	fmt.Fprintf(out, "Predictions written to %s\n", outPath)
	return nil
}

func loadModel(ctx context.Context, opts Options, modelURI string) (*classifier.LogisticModel, error) {
	var fetcher classifier.Fetcher
	if gcsuploader.IsGCSURI(modelURI) {
		storage, err := opts.NewStorage(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating storage client: %w", err)
		}
		defer storage.Close()
		fetcher = storage
	}

	if timeout := opts.Config.ModelLoadTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return classifier.Load(ctx, modelURI, fetcher)
}

func describeFailure(err error) error {
	var missing *pipeline.MissingColumnsError
	if errors.As(err, &missing) {
		return fmt.Errorf("error processing file: missing columns %s (found: %s)",
			strings.Join(missing.Missing, ", "), strings.Join(missing.Found, ", "))
	}
	return fmt.Errorf("error processing file: %w", err)
}
