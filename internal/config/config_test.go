package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)

	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "hazard-feature-collections", cfg.KafkaFeaturesTopic)
	assert.Equal(t, "hazard-overlay", cfg.KafkaGroupID)

	assert.False(t, cfg.CorrelationEnabled)
	assert.Equal(t, 5*time.Second, cfg.CorrelationTimeout)
	assert.Equal(t, 1000, cfg.CorrelationCacheSize)

	assert.Equal(t, 100*time.Millisecond, cfg.CursorTick)
	assert.Equal(t, 3600.0, cfg.CursorSpeed)
	assert.Equal(t, 1.5, cfg.RecencyPeak)
	assert.Equal(t, time.Hour, cfg.RecencyWindow)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("CORRELATION_ENABLED", "true")
	t.Setenv("CORRELATION_BASE_URL", "http://catalog:8081")
	t.Setenv("CURSOR_SPEED", "7200")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.CorrelationEnabled)
	assert.Equal(t, "http://catalog:8081", cfg.CorrelationBaseURL)
	assert.Equal(t, 7200.0, cfg.CursorSpeed)
}

func TestLoadValidation(t *testing.T) {
	t.Run("correlation enabled without a base url", func(t *testing.T) {
		t.Setenv("CORRELATION_ENABLED", "true")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "CORRELATION_BASE_URL")
	})

	t.Run("non-positive cursor tick", func(t *testing.T) {
		t.Setenv("CURSOR_TICK", "0s")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cursor")
	})

	t.Run("recency peak below the floor", func(t *testing.T) {
		t.Setenv("RECENCY_PEAK", "0.8")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "RECENCY_PEAK")
	})

	t.Run("malformed duration", func(t *testing.T) {
		t.Setenv("SHUTDOWN_TIMEOUT", "soon")
		_, err := Load()
		require.Error(t, err)
	})
}
