package commands

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dvloznov/fraud-screening/internal/logger"
	"github.com/spf13/cobra"
)

func newRunsCommand(opts Options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent scoring runs from the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.Config.LedgerEnabled() {
				return errors.New("run ledger is not configured: set GCP_PROJECT_ID")
			}
			if limit <= 0 {
				return errors.New("--limit must be positive")
			}

			ctx := logger.WithContext(cmd.Context(), opts.Log)
			store, err := opts.NewRunStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			rows, err := store.ListRecentScoringRuns(ctx, limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN ID\tSTARTED\tSTATUS\tFILE\tROWS\tFRAUD")
			for _, row := range rows {
				rowCount, fraud := "-", "-"
				if row.RowCount.Valid {
					rowCount = fmt.Sprint(row.RowCount.Int64)
				}
				if row.FraudCount.Valid {
					fraud = fmt.Sprint(row.FraudCount.Int64)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					row.RunID,
					row.StartedTS.UTC().Format(time.RFC3339),
					row.Status,
					row.Filename,
					rowCount,
					fraud,
				)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show")

	return cmd
}
