// Package config loads service settings from environment variables and the
// immutable location/stakeholder catalog from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Pipeline cadence.
	IngestInterval     time.Duration
	ThreatPollInterval time.Duration
	BroadcastInterval  time.Duration
	StatsInterval      time.Duration

	// Queue sizing: a few seconds of throughput at the ingest cadence.
	ReadingQueueCapacity int
	ThreatQueueCapacity  int
	BroadcastBatchSize   int

	// Notification dispatch.
	SuppressionThreshold float64
	ChannelTimeout       time.Duration

	// Catalog file; empty means the built-in default catalog.
	CatalogPath string

	// Optional Kafka reading source (remote collectors). When disabled the
	// in-process simulator produces readings.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	// Optional persistence and live-state cache backends.
	PostgresURL string
	RedisURL    string

	// Optional SMS gateway; empty URL means simulation mode.
	SMSGatewayURL   string
	SMSGatewayToken string
	SMSFrom         string

	// Optional SMTP gateway; empty host means simulation mode.
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	ingestInterval, err := envDuration("INGEST_INTERVAL", 2*time.Second)
	if err != nil {
		return nil, err
	}
	threatPoll, err := envDuration("THREAT_POLL_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}
	broadcastInterval, err := envDuration("BROADCAST_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, err
	}
	statsInterval, err := envDuration("STATS_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}
	channelTimeout, err := envDuration("CHANNEL_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	readingQueueCap, err := envInt("READING_QUEUE_CAPACITY", 256)
	if err != nil {
		return nil, err
	}
	threatQueueCap, err := envInt("THREAT_QUEUE_CAPACITY", 64)
	if err != nil {
		return nil, err
	}
	broadcastBatch, err := envInt("BROADCAST_BATCH_SIZE", 10)
	if err != nil {
		return nil, err
	}

	suppression, err := envFloat("SUPPRESSION_THRESHOLD", 0.4)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		IngestInterval:     ingestInterval,
		ThreatPollInterval: threatPoll,
		BroadcastInterval:  broadcastInterval,
		StatsInterval:      statsInterval,

		ReadingQueueCapacity: readingQueueCap,
		ThreatQueueCapacity:  threatQueueCap,
		BroadcastBatchSize:   broadcastBatch,

		SuppressionThreshold: suppression,
		ChannelTimeout:       channelTimeout,

		CatalogPath: os.Getenv("CATALOG_PATH"),

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: splitBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   envOrDefault("KAFKA_READINGS_TOPIC", "coastal-readings"),
		KafkaGroupID: envOrDefault("KAFKA_GROUP_ID", "coastal-threat-service"),

		PostgresURL: os.Getenv("POSTGRES_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		SMSGatewayURL:   os.Getenv("SMS_GATEWAY_URL"),
		SMSGatewayToken: os.Getenv("SMS_GATEWAY_TOKEN"),
		SMSFrom:         envOrDefault("SMS_FROM", "+10000000000"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     envOrDefault("SMTP_PORT", "587"),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     envOrDefault("SMTP_FROM", "alerts@coastal.local"),
	}

	if cfg.SuppressionThreshold < 0 || cfg.SuppressionThreshold > 1 {
		return nil, errors.New("SUPPRESSION_THRESHOLD must be in [0,1]")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_READINGS_TOPIC is empty")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func envInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return f, nil
}

func splitBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
