package config

import (
	"errors"
	"os"
	"time"
)

type Config struct {
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	JWTExpiry   time.Duration

	// Path of the optional runtime YAML file (probe window, external
	// inventory status presentation). Empty means built-in defaults.
	RuntimePath string
	Runtime     *Runtime
}

func Load() *Config {
	config := &Config{
		JWTSecret:   getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTIssuer:   getEnv("JWT_ISS", "inventory-monitor-api"),
		JWTAudience: getEnv("JWT_AUD", "inventory-monitor-api"),
		JWTExpiry:   24 * time.Hour, // Default to 24 hours
		RuntimePath: os.Getenv("RUNTIME_CONFIG"),
	}

	// Parse JWT expiry from environment if provided
	if expiryStr := os.Getenv("JWT_EXPIRY"); expiryStr != "" {
		if expiry, err := time.ParseDuration(expiryStr); err == nil {
			config.JWTExpiry = expiry
		}
	}

	return config
}

// LoadAndValidate loads the environment config plus the runtime YAML file and
// rejects unusable combinations before the server starts.
func LoadAndValidate() (*Config, error) {
	cfg := Load()

	rt, err := LoadRuntime(cfg.RuntimePath)
	if err != nil {
		return nil, err
	}
	cfg.Runtime = rt

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must not be empty")
	}
	if cfg.JWTExpiry <= 0 {
		return nil, errors.New("JWT_EXPIRY must be positive")
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
