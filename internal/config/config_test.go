package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "MODEL_URI", "GCP_PROJECT_ID", "ARCHIVE_BUCKET", "MAX_UPLOAD_BYTES", "RATE_LIMIT_RPS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultModelURI, cfg.ModelURI)
	assert.Equal(t, int64(DefaultMaxUploadBytes), cfg.MaxUploadBytes)
	assert.Equal(t, 10.0, cfg.RateLimitRPS)
	assert.False(t, cfg.LedgerEnabled())
	assert.False(t, cfg.ArchiveEnabled())
	assert.Equal(t, ":8080", cfg.Address())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MODEL_URI", "gs://models/fraud.yaml")
	t.Setenv("GCP_PROJECT_ID", "test-project")
	t.Setenv("ARCHIVE_BUCKET", "fraud-results")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")
	t.Setenv("MODEL_LOAD_TIMEOUT", "5s")
	t.Setenv("RATE_LIMIT_BURST", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "gs://models/fraud.yaml", cfg.ModelURI)
	assert.Equal(t, int64(1024), cfg.MaxUploadBytes)
	assert.Equal(t, 5*time.Second, cfg.ModelLoadTimeout)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.True(t, cfg.LedgerEnabled())
	assert.True(t, cfg.ArchiveEnabled())
}
