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

	// Assessment loop.
	CycleInterval time.Duration
	WorkerCount   int

	// Input fixtures and persistence. ObservationsPath is optional; when the
	// file is absent the cycle runs without weather data.
	ZonesPath        string
	ResourcesPath    string
	ObservationsPath string
	DBPath           string

	// Remote ML prediction service.
	MLEndpoint string
	MLEnabled  bool
	MLTimeout  time.Duration

	// Kafka publishing of fused records and allocation plans.
	KafkaBrokers   []string
	KafkaSinkTopic string
	KafkaEnabled   bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	cycleInterval, err := parseDuration("CYCLE_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}

	mlTimeout, err := parseDuration("ML_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	workerCount, err := parseWorkerCount()
	if err != nil {
		return nil, err
	}

	mlEndpoint := os.Getenv("ML_ENDPOINT")
	mlEnabled := mlEndpoint != ""
	if v := os.Getenv("ML_ENABLED"); v != "" {
		mlEnabled = v == "true"
	}

	kafkaEnabled := false
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		CycleInterval: cycleInterval,
		WorkerCount:   workerCount,

		ZonesPath:        envOrDefault("ZONES_PATH", "zones.json"),
		ResourcesPath:    envOrDefault("RESOURCES_PATH", "resources.json"),
		ObservationsPath: envOrDefault("OBSERVATIONS_PATH", "observations.json"),
		DBPath:           envOrDefault("DB_PATH", "riskcore.db"),

		MLEndpoint: mlEndpoint,
		MLEnabled:  mlEnabled,
		MLTimeout:  mlTimeout,

		KafkaBrokers:   splitBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: envOrDefault("KAFKA_SINK_TOPIC", "zone-risk-records"),
		KafkaEnabled:   kafkaEnabled,
	}

	if cfg.ZonesPath == "" {
		return nil, errors.New("ZONES_PATH is required")
	}
	if cfg.ResourcesPath == "" {
		return nil, errors.New("RESOURCES_PATH is required")
	}
	if cfg.MLEnabled && cfg.MLEndpoint == "" {
		return nil, errors.New("ML_ENABLED is true but ML_ENDPOINT is not set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_SINK_TOPIC is empty")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseWorkerCount() (int, error) {
	s := envOrDefault("WORKER_COUNT", "8")
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 256 {
		return 0, errors.New("invalid WORKER_COUNT: must be between 1 and 256")
	}
	return n, nil
}

func splitBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
