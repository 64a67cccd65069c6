package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/cenkalti/backoff/v4"
	"gopkg.in/yaml.v3"

	"github.com/dvloznov/fraud-screening/internal/gcsuploader"
	"github.com/dvloznov/fraud-screening/internal/logger"
)

// Fetcher downloads artifact bytes from object storage.
type Fetcher interface {
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)
}

// maxFetchElapsed bounds the retries of a remote artifact fetch.
const maxFetchElapsed = 20 * time.Second

// Load reads a model artifact from a local path or gs:// URI and builds a
// LogisticModel. fetcher may be nil when uri is a local path.
func Load(ctx context.Context, uri string, fetcher Fetcher) (*LogisticModel, error) {
	data, err := readArtifact(ctx, uri, fetcher)
	if err != nil {
		return nil, err
	}

	a, err := DecodeArtifact(data, artifactName(uri))
	if err != nil {
		return nil, fmt.Errorf("decode model artifact %s: %w", uri, err)
	}

	m, err := NewLogisticModel(a)
	if err != nil {
		return nil, fmt.Errorf("invalid model artifact %s: %w", uri, err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("model_uri", uri).
		Str("model_name", a.Name).
		Str("model_version", a.Version).
		Float64("threshold", m.Threshold()).
		Msg("Model loaded")

	return m, nil
}

// DecodeArtifact parses artifact bytes. The format is chosen from the
// filename extension: .yaml/.yml is YAML, anything else is JSON.
func DecodeArtifact(data []byte, filename string) (Artifact, error) {
	var a Artifact
	switch strings.ToLower(path.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &a); err != nil {
			return Artifact{}, fmt.Errorf("parsing YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &a); err != nil {
			return Artifact{}, fmt.Errorf("parsing JSON: %w", err)
		}
	}
	return a, nil
}

func readArtifact(ctx context.Context, uri string, fetcher Fetcher) ([]byte, error) {
	if !gcsuploader.IsGCSURI(uri) {
		data, err := os.ReadFile(uri)
		if err != nil {
			return nil, fmt.Errorf("read model artifact: %w", err)
		}
		return data, nil
	}

	if fetcher == nil {
		return nil, fmt.Errorf("model URI %s requires a storage client", uri)
	}
	if _, _, err := gcsuploader.ParseGCSURI(uri); err != nil {
		return nil, fmt.Errorf("fetch model artifact: %w", err)
	}

	log := logger.FromContext(ctx)

	var data []byte
	operation := func() error {
		var err error
		data, err = fetcher.FetchFromGCS(ctx, uri)
		if err == nil {
			return nil
		}
		if permanentFetchError(err) {
			return backoff.Permanent(err)
		}
		log.Warn().Err(err).Str("model_uri", uri).Msg("Model fetch failed, retrying")
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxFetchElapsed
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("fetch model artifact: %w", err)
	}

	return data, nil
}

// permanentFetchError reports errors a retry cannot fix.
func permanentFetchError(err error) bool {
	return errors.Is(err, storage.ErrObjectNotExist) ||
		errors.Is(err, storage.ErrBucketNotExist) ||
		errors.Is(err, gcsuploader.ErrInvalidGCSURI)
}

func artifactName(uri string) string {
	if gcsuploader.IsGCSURI(uri) {
		return gcsuploader.ExtractFilenameFromGCSURI(uri)
	}
	return filepath.Base(uri)
}
