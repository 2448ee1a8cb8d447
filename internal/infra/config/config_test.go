package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "screenshot.processing", cfg.RabbitMQProcessingQueue)
	assert.Equal(t, "auto", cfg.DecoderBackend)
	assert.Equal(t, 90, cfg.JPEGQuality)
	assert.Equal(t, 8080, cfg.HTTPPort)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("WORKER_COUNT", "7")
	t.Setenv("DECODER_BACKEND", "mpeg")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.WorkerCount)
	assert.Equal(t, "mpeg", cfg.DecoderBackend)
	assert.True(t, cfg.MinIOUseSSL)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("JPEG_QUALITY", "0")
	_, err := Load()
	assert.ErrorContains(t, err, "JPEG_QUALITY")
}

func TestLoadRejectsMalformedNumber(t *testing.T) {
	t.Setenv("HTTP_PORT", "eighty")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsSampleRatioOutOfRange(t *testing.T) {
	t.Setenv("TRACE_SAMPLE_RATIO", "1.5")
	_, err := Load()
	assert.ErrorContains(t, err, "TRACE_SAMPLE_RATIO")
}
