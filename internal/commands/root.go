package commands

import (
	"context"
	"io"

	"github.com/dvloznov/fraud-screening/internal/config"
	"github.com/dvloznov/fraud-screening/internal/gcsuploader"
	infra "github.com/dvloznov/fraud-screening/internal/infra/bigquery"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Storage is the object storage the CLI talks to.
type Storage interface {
	gcsuploader.StorageService
	io.Closer
}

// RunStore is the scoring run ledger the CLI talks to.
type RunStore interface {
	infra.RunRepository
	io.Closer
}

// Options carries configuration and client constructors into the commands.
type Options struct {
	Config      *config.Config
	Log         zerolog.Logger
	NewStorage  func(ctx context.Context) (Storage, error)
	NewRunStore func(ctx context.Context) (RunStore, error)
}

// DefaultOptions wires the commands to GCS and BigQuery.
func DefaultOptions(cfg *config.Config, log zerolog.Logger) Options {
	return Options{
		Config: cfg,
		Log:    log,
		NewStorage: func(ctx context.Context) (Storage, error) {
			return gcsuploader.NewGCSStorageService(ctx)
		},
		NewRunStore: func(ctx context.Context) (RunStore, error) {
			return infra.NewBigQueryRunRepository(ctx, cfg.GCPProjectID, cfg.BigQueryDataset)
		},
	}
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand(opts Options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fraudscreen",
		Short: "Screen card transactions for fraud",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newScoreCommand(opts),
		newUploadModelCommand(opts),
		newRunsCommand(opts),
	)

	return rootCmd
}
