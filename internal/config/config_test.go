package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultBroker = "localhost:9092"
	testDataURL   = "https://data.example.org/public"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "nitrogen-balance-requests", cfg.KafkaSourceTopic)
	assert.Equal(t, "nitrogen-balance-results", cfg.KafkaSinkTopic)
	assert.Equal(t, "nbalance", cfg.KafkaGroupID)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)
	assert.Equal(t, "http://localhost:9000/public-data", cfg.PublicDataURL)
	assert.Equal(t, 30*time.Second, cfg.RasterTimeout)
	assert.Equal(t, 8, cfg.FieldConcurrency)
	assert.Equal(t, 2, cfg.RequestConcurrency)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SOURCE_TOPIC", "custom-source")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("BATCH_FLUSH_INTERVAL", "1s")
	t.Setenv("PUBLIC_DATA_URL", testDataURL)
	t.Setenv("RASTER_TIMEOUT", "10s")
	t.Setenv("FIELD_CONCURRENCY", "4")
	t.Setenv("REQUEST_CONCURRENCY", "6")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-source", cfg.KafkaSourceTopic)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 1*time.Second, cfg.BatchFlushInterval)
	assert.Equal(t, testDataURL, cfg.PublicDataURL)
	assert.Equal(t, 10*time.Second, cfg.RasterTimeout)
	assert.Equal(t, 4, cfg.FieldConcurrency)
	assert.Equal(t, 6, cfg.RequestConcurrency)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	t.Setenv("BATCH_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_BatchSizeTooLarge(t *testing.T) {
	t.Setenv("BATCH_SIZE", "9999")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_InvalidBatchFlushInterval(t *testing.T) {
	t.Setenv("BATCH_FLUSH_INTERVAL", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_FLUSH_INTERVAL")
}

func TestLoad_InvalidRasterTimeout(t *testing.T) {
	t.Setenv("RASTER_TIMEOUT", "bad")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RASTER_TIMEOUT")
}

func TestLoad_NonPositiveRasterTimeout(t *testing.T) {
	t.Setenv("RASTER_TIMEOUT", "0s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RASTER_TIMEOUT")
}

func TestLoad_InvalidFieldConcurrency(t *testing.T) {
	for _, v := range []string{"0", "-2", "many", "1000"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("FIELD_CONCURRENCY", v)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "FIELD_CONCURRENCY")
		})
	}
}

func TestLoad_InvalidRequestConcurrency(t *testing.T) {
	for _, v := range []string{"0", "65", "two"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("REQUEST_CONCURRENCY", v)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "REQUEST_CONCURRENCY")
		})
	}
}

func TestLoad_RelativePublicDataURL(t *testing.T) {
	t.Setenv("PUBLIC_DATA_URL", "public-data")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PUBLIC_DATA_URL")
}
