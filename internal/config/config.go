package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// NATS configuration
	NatsURL           string
	NatsTurnSubject   string
	NatsCommandPrefix string
	NatsTimeout       time.Duration

	// Redis configuration
	RedisURL    string
	SessionTTL  time.Duration
	TurnLockTTL time.Duration

	// HTTP configuration
	HTTPAddr    string
	MetricsAddr string

	// Dialogue configuration
	CatalogDSN      string
	NLUConfigPath   string
	RepliesPath     string
	PermissionsPath string
	EntityThreshold float64
	TaskThreshold   float64
	CandidateLimit  int
	ListLimit       int
	ReportsBaseURL  string

	// Service configuration
	ServiceName string
	LogLevel    string
}

func Load() (*Config, error) {
	cfg := &Config{
		// NATS settings
		NatsURL:           getEnv("NATS_URL", "nats://localhost:4222"),
		NatsTurnSubject:   getEnv("NATS_TURN_SUBJECT", "assistant.turn"),
		NatsCommandPrefix: getEnv("NATS_COMMAND_PREFIX", "erp.commands"),
		NatsTimeout:       getDurationEnv("NATS_TIMEOUT", 10*time.Second),

		// Redis settings
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SessionTTL:  getDurationEnv("SESSION_TTL", 30*time.Minute),
		TurnLockTTL: getDurationEnv("TURN_LOCK_TTL", 30*time.Second),

		// HTTP settings
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),

		// Dialogue settings
		CatalogDSN:      getEnv("CATALOG_DSN", "file:catalog.db"),
		NLUConfigPath:   getEnv("NLU_CONFIG", ""),
		RepliesPath:     getEnv("REPLIES_FILE", ""),
		PermissionsPath: getEnv("PERMISSIONS_FILE", ""),
		// zero keeps the thresholds of the intent table
		EntityThreshold: getFloatEnv("ENTITY_MATCH_THRESHOLD", 0),
		TaskThreshold:   getFloatEnv("TASK_GUESS_THRESHOLD", 0),
		CandidateLimit:  getIntEnv("CANDIDATE_LIMIT", 60),
		ListLimit:       getIntEnv("LIST_LIMIT", 10),
		ReportsBaseURL:  getEnv("REPORTS_BASE_URL", ""),

		// Service settings
		ServiceName: getEnv("SERVICE_NAME", "erpbuddy-assistant"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges that cannot be caught by parsing.
func (c *Config) Validate() error {
	if c.EntityThreshold < 0 || c.EntityThreshold > 1 {
		return fmt.Errorf("ENTITY_MATCH_THRESHOLD must be in [0,1], got %v", c.EntityThreshold)
	}
	if c.TaskThreshold < 0 || c.TaskThreshold > 1 {
		return fmt.Errorf("TASK_GUESS_THRESHOLD must be in [0,1], got %v", c.TaskThreshold)
	}
	if c.CandidateLimit <= 0 {
		return fmt.Errorf("CANDIDATE_LIMIT must be positive, got %d", c.CandidateLimit)
	}
	if c.ListLimit <= 0 {
		return fmt.Errorf("LIST_LIMIT must be positive, got %d", c.ListLimit)
	}
	if c.TurnLockTTL <= 0 {
		return fmt.Errorf("TURN_LOCK_TTL must be positive, got %v", c.TurnLockTTL)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
