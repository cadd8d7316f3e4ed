package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Balance engine configuration.
	PublicDataURL      string
	RasterTimeout      time.Duration
	FieldConcurrency   int
	RequestConcurrency int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	rasterTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("RASTER_TIMEOUT", "30s"))
	if err != nil || rasterTimeout <= 0 {
		return nil, errors.New("invalid RASTER_TIMEOUT")
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	fieldConcurrency, err := parseConcurrency("FIELD_CONCURRENCY", 8, 256)
	if err != nil {
		return nil, err
	}

	requestConcurrency, err := parseConcurrency("REQUEST_CONCURRENCY", 2, 64)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "nitrogen-balance-requests"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "nitrogen-balance-results"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "nbalance"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		PublicDataURL:      sharedcfg.EnvOrDefault("PUBLIC_DATA_URL", "http://localhost:9000/public-data"),
		RasterTimeout:      rasterTimeout,
		FieldConcurrency:   fieldConcurrency,
		RequestConcurrency: requestConcurrency,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if u, err := url.Parse(cfg.PublicDataURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.New("PUBLIC_DATA_URL must be an absolute URL")
	}

	return cfg, nil
}

// parseConcurrency reads a worker limit from key, falling back to def when unset.
func parseConcurrency(key string, def, limit int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > limit {
		return 0, fmt.Errorf("invalid %s: must be between 1 and %d", key, limit)
	}
	return n, nil
}
