// Package config loads runtime configuration for the collaboration core
// from environment variables, with an optional static YAML overlay for
// deployment topology that doesn't belong in the process environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every setting named in SPEC_FULL.md §6.6 plus the ambient
// server/log settings every component needs at boot.
type Config struct {
	Port string

	ESSURL            string
	ESSReadyTimeout   time.Duration
	DSSHost           string
	DSSPort           string
	DSSUser           string
	DSSPassword       string
	DSSName           string
	DSSSSLMode        string
	NATSURL           string
	NATSEnabled       bool

	SessionTimeout        time.Duration
	LockTimeoutSeconds    int
	PresenceTTLSeconds    int
	CursorTTLSeconds      int
	TypingTTLSeconds      int
	HeartbeatTTLSeconds   int
	CursorThrottleSeconds int

	ActivityBatchMS           int
	ActivityBatchMax          int
	ActivityRetentionDays     int

	GatewayRateLimitPerSecond float64
	GatewayRateLimitBurst     int

	LogLevel string
	LogPretty bool
}

// yamlOverlay is the optional static topology file; any field set here is
// applied only where the corresponding environment variable is absent.
type yamlOverlay struct {
	ESSURL  string `yaml:"ess_url"`
	DSSHost string `yaml:"dss_host"`
	NATSURL string `yaml:"nats_url"`
}

// Load builds a Config from the environment, defaulting every field per
// SPEC_FULL.md §6.6, then applies config.yaml (if present at configPath)
// for values no environment variable supplied.
func Load(configPath string) (*Config, error) {
	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		ESSURL:          getEnv("ESS_URL", "redis://localhost:6379/0"),
		ESSReadyTimeout: time.Duration(getEnvInt("ESS_READY_TIMEOUT_MS", 10000)) * time.Millisecond,

		DSSHost:     getEnv("DSS_HOST", "localhost"),
		DSSPort:     getEnv("DSS_PORT", "5432"),
		DSSUser:     getEnv("DSS_USER", "collab"),
		DSSPassword: getEnv("DSS_PASSWORD", "collab"),
		DSSName:     getEnv("DSS_NAME", "collab"),
		DSSSSLMode:  getEnv("DSS_SSL_MODE", "disable"),

		NATSURL:     getEnv("NATS_URL", "nats://localhost:4222"),
		NATSEnabled: getEnv("NATS_ENABLED", "false") == "true",

		SessionTimeout:        time.Duration(getEnvInt("SESSION_TIMEOUT_MINUTES", 30)) * time.Minute,
		LockTimeoutSeconds:    getEnvInt("LOCK_TIMEOUT_SECONDS", 30),
		PresenceTTLSeconds:    getEnvInt("PRESENCE_TTL_SECONDS", 300),
		CursorTTLSeconds:      getEnvInt("CURSOR_TTL_SECONDS", 60),
		TypingTTLSeconds:      getEnvInt("TYPING_TTL_SECONDS", 10),
		HeartbeatTTLSeconds:   getEnvInt("HEARTBEAT_TTL_SECONDS", 30),
		CursorThrottleSeconds: getEnvInt("CURSOR_THROTTLE_SECONDS", 1),

		ActivityBatchMS:       getEnvInt("ACTIVITY_BATCH_MS", 2000),
		ActivityBatchMax:      getEnvInt("ACTIVITY_BATCH_MAX", 10),
		ActivityRetentionDays: getEnvInt("ACTIVITY_RETENTION_DAYS", 30),

		GatewayRateLimitPerSecond: float64(getEnvInt("GATEWAY_RATE_LIMIT_PER_SECOND", 100)),
		GatewayRateLimitBurst:     getEnvInt("GATEWAY_RATE_LIMIT_BURST", 20),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnv("LOG_PRETTY", "false") == "true",
	}

	if configPath != "" {
		if err := applyYAMLOverlay(cfg, configPath); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func applyYAMLOverlay(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config overlay %s: %w", path, err)
	}

	var overlay yamlOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("failed to parse config overlay %s: %w", path, err)
	}

	if _, set := os.LookupEnv("ESS_URL"); !set && overlay.ESSURL != "" {
		cfg.ESSURL = overlay.ESSURL
	}
	if _, set := os.LookupEnv("DSS_HOST"); !set && overlay.DSSHost != "" {
		cfg.DSSHost = overlay.DSSHost
	}
	if _, set := os.LookupEnv("NATS_URL"); !set && overlay.NATSURL != "" {
		cfg.NATSURL = overlay.NATSURL
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
