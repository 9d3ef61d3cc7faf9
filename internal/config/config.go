package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// Kafka feature ingest. Disabled when no brokers are configured; the
	// HTTP surface then remains the only ingest path.
	KafkaEnabled       bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	KafkaBrokers       []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaFeaturesTopic string   `envconfig:"KAFKA_FEATURES_TOPIC" default:"hazard-feature-collections"`
	KafkaGroupID       string   `envconfig:"KAFKA_GROUP_ID" default:"hazard-overlay"`

	// Correlation query upstream (cross-type sequence resolution).
	CorrelationEnabled   bool          `envconfig:"CORRELATION_ENABLED" default:"false"`
	CorrelationBaseURL   string        `envconfig:"CORRELATION_BASE_URL"`
	CorrelationTimeout   time.Duration `envconfig:"CORRELATION_TIMEOUT" default:"5s"`
	CorrelationCacheSize int           `envconfig:"CORRELATION_CACHE_SIZE" default:"1000"`

	// Time cursor: real cadence and sim-seconds advanced per real second.
	CursorTick  time.Duration `envconfig:"CURSOR_TICK" default:"100ms"`
	CursorSpeed float64       `envconfig:"CURSOR_SPEED" default:"3600"`

	// Recency flash: peak multiplier and decay window.
	RecencyPeak   float64       `envconfig:"RECENCY_PEAK" default:"1.5"`
	RecencyWindow time.Duration `envconfig:"RECENCY_WINDOW" default:"1h"`
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.CorrelationEnabled && cfg.CorrelationBaseURL == "" {
		return nil, errors.New("CORRELATION_ENABLED is true but CORRELATION_BASE_URL is not set")
	}
	if cfg.CorrelationTimeout <= 0 {
		return nil, errors.New("invalid CORRELATION_TIMEOUT")
	}
	if cfg.CursorTick <= 0 || cfg.CursorSpeed <= 0 {
		return nil, errors.New("invalid cursor settings")
	}
	if cfg.RecencyPeak < 1.0 {
		return nil, errors.New("RECENCY_PEAK must be at least 1.0")
	}

	return &cfg, nil
}
