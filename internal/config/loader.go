// Package config provides configuration management for the Skycast service.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load reads and parses the configuration from file and environment variables.
// It expands environment variable placeholders in the YAML file (${VAR_NAME}).
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the configuration (${VAR} syntax)
	expanded := os.ExpandEnv(string(data))

	v := viper.New()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(bytes.NewBuffer([]byte(expanded))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	v.SetEnvPrefix("SKYCAST")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional
// fields. The config file is optional; defaults and environment variables
// are enough to run against a local database.
func LoadWithDefaults(configPath string) (*Config, error) {
	v := viper.New()

	if configPath == "" {
		configPath = "config/config.yaml"
	}

	v.SetConfigType("yaml")
	v.SetEnvPrefix("SKYCAST")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		expanded := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewBuffer([]byte(expanded))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	// If file doesn't exist, continue with defaults and environment variables

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "skycast")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("training.target", "temperature")
	v.SetDefault("training.algorithms", []string{"linear", "forest", "boost"})
	v.SetDefault("training.min_observations", 100)
	v.SetDefault("training.history_window_days", 30)
	v.SetDefault("training.auto_retrain_days", 7)
	v.SetDefault("training.retrain_threshold", 0.7)
	v.SetDefault("training.holdout_fraction", 0.2)
	v.SetDefault("training.cross_validation_folds", 5)

	v.SetDefault("forecast.cache_ttl_seconds", 300)
	v.SetDefault("forecast.cache_max_size", 1000)
	v.SetDefault("forecast.max_horizon_days", 7)
	v.SetDefault("forecast.degraded_confidence", 0.3)

	v.SetDefault("weather_api.timeout_seconds", 10)
	v.SetDefault("weather_api.max_retries", 3)
	v.SetDefault("weather_api.rate_limit", 5.0)

	v.SetDefault("models.dir", "data/models")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("workers.pool_size", 4)
}

// ReloadFromEnv reloads configuration from an alternate path when
// SKYCAST_CONFIG_PATH is set.
func ReloadFromEnv(cfg *Config) error {
	if envPath := os.Getenv("SKYCAST_CONFIG_PATH"); envPath != "" {
		newCfg, err := Load(envPath)
		if err != nil {
			return err
		}
		*cfg = *newCfg
	}
	return nil
}
