// Package config provides configuration management for the Skycast service.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	WeatherAPI WeatherAPIConfig `mapstructure:"weather_api" validate:"required"`
	Training   TrainingConfig   `mapstructure:"training" validate:"required"`
	Forecast   ForecastConfig   `mapstructure:"forecast" validate:"required"`
	Models     ModelsConfig     `mapstructure:"models" validate:"required"`
	Metrics    MetricsConfig    `mapstructure:"metrics" validate:"required"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	Workers    WorkersConfig    `mapstructure:"workers"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents the connection configuration for the observation
// store and training history log
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password" validate:"required"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// WeatherAPIConfig represents the external baseline forecast provider
type WeatherAPIConfig struct {
	BaseURL        string  `mapstructure:"base_url" validate:"required,url"`
	APIKey         string  `mapstructure:"api_key"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxRetries     int     `mapstructure:"max_retries" validate:"gte=0"`
	RateLimit      float64 `mapstructure:"rate_limit" validate:"gt=0"`
}

// TrainingConfig represents model training configuration
type TrainingConfig struct {
	Target               string   `mapstructure:"target" validate:"required"`
	Algorithms           []string `mapstructure:"algorithms" validate:"required,min=1,algorithms"`
	MinObservations      int      `mapstructure:"min_observations" validate:"required,gt=0"`
	HistoryWindowDays    int      `mapstructure:"history_window_days" validate:"required,gt=0"`
	AutoRetrainDays      int      `mapstructure:"auto_retrain_days" validate:"required,gt=0"`
	RetrainThreshold     float64  `mapstructure:"retrain_threshold" validate:"gte=0,lte=1"`
	HoldoutFraction      float64  `mapstructure:"holdout_fraction" validate:"gt=0,lt=1"`
	CrossValidationFolds int      `mapstructure:"cross_validation_folds" validate:"required,gt=1"`
	RetrainSchedule      string   `mapstructure:"retrain_schedule"`
}

// ForecastConfig represents the integration layer configuration
type ForecastConfig struct {
	CacheTTLSeconds    int     `mapstructure:"cache_ttl_seconds" validate:"required,gt=0"`
	CacheMaxSize       int     `mapstructure:"cache_max_size" validate:"required,gt=0"`
	MaxHorizonDays     int     `mapstructure:"max_horizon_days" validate:"required,gt=0"`
	DegradedConfidence float64 `mapstructure:"degraded_confidence" validate:"gte=0,lte=1"`
}

// ModelsConfig represents trained model persistence configuration
type ModelsConfig struct {
	Dir string `mapstructure:"dir" validate:"required"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// TracingConfig represents AWS X-Ray tracing configuration. Disabled by
// default; when enabled the forecast API and training runs emit segments.
type TracingConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	DaemonAddr string `mapstructure:"daemon_addr"`
}

// WorkersConfig bounds the pool used for training and persistence work
type WorkersConfig struct {
	PoolSize int `mapstructure:"pool_size" validate:"omitempty,gt=0"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// CacheTTL returns the forecast cache TTL as a duration
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Forecast.CacheTTLSeconds) * time.Second
}

// WeatherAPITimeout returns the baseline provider request timeout
func (c *Config) WeatherAPITimeout() time.Duration {
	return time.Duration(c.WeatherAPI.TimeoutSeconds) * time.Second
}
