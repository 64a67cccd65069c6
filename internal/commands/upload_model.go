package commands

import (
	"fmt"
	"path/filepath"

	"github.com/dvloznov/fraud-screening/internal/classifier"
	"github.com/dvloznov/fraud-screening/internal/gcsuploader"
	"github.com/dvloznov/fraud-screening/internal/logger"
	"github.com/spf13/cobra"
)

func newUploadModelCommand(opts Options) *cobra.Command {
	var bucketName string
	var filePath string
	var objectName string

	cmd := &cobra.Command{
		Use:   "upload-model",
		Short: "Validate a model artifact and upload it to GCS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := logger.WithContext(cmd.Context(), opts.Log)

			if objectName == "" {
				objectName = filepath.Base(filePath)
			}

			// Refuse artifacts the service would reject at startup.
			if _, err := classifier.Load(ctx, filePath, nil); err != nil {
				return err
			}

			storage, err := opts.NewStorage(ctx)
			if err != nil {
				return fmt.Errorf("creating storage client: %w", err)
			}
			defer storage.Close()

			opts.Log.Info().
				Str("bucket", bucketName).
				Str("object", objectName).
				Str("file", filePath).
				Msg("Uploading model artifact to GCS")

			if err := storage.UploadFile(ctx, bucketName, objectName, filePath); err != nil {
				return fmt.Errorf("upload failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s to %s\n", filePath, gcsuploader.BuildGCSURI(bucketName, objectName))
			return nil
		},
	}

	cmd.Flags().StringVar(&bucketName, "bucket", "", "GCS bucket name (required)")
	cmd.Flags().StringVar(&filePath, "file", "", "path to the model artifact (required)")
	cmd.Flags().StringVar(&objectName, "object", "", "GCS object name (defaults to the file name)")
	_ = cmd.MarkFlagRequired("bucket")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
