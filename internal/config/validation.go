// Package config provides configuration management for the Skycast service.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Algorithm names with registered implementations.
var knownAlgorithms = map[string]bool{
	"linear": true,
	"forest": true,
	"boost":  true,
}

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// Register custom validation functions
	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("algorithms", validateAlgorithms)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	// Additional cross-field validations
	if err := validateCrossField(cfg); err != nil {
		return err
	}

	return nil
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	env := fl.Field().String()
	switch env {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	level := fl.Field().String()
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateAlgorithms ensures every configured algorithm has an implementation
func validateAlgorithms(fl validator.FieldLevel) bool {
	algorithms, ok := fl.Field().Interface().([]string)
	if !ok || len(algorithms) == 0 {
		return false
	}
	for _, name := range algorithms {
		if !knownAlgorithms[name] {
			return false
		}
	}
	return true
}

// validateCrossField applies constraints spanning multiple fields
func validateCrossField(cfg *Config) error {
	if cfg.Training.HoldoutFraction <= 0 || cfg.Training.HoldoutFraction >= 1 {
		return fmt.Errorf("training.holdout_fraction must be in (0,1), got %v", cfg.Training.HoldoutFraction)
	}

	// Each cross-validation fold needs at least a handful of rows
	if cfg.Training.CrossValidationFolds > cfg.Training.MinObservations/2 {
		return fmt.Errorf("training.cross_validation_folds %d too large for min_observations %d",
			cfg.Training.CrossValidationFolds, cfg.Training.MinObservations)
	}

	if cfg.Forecast.MaxHorizonDays > 16 {
		return fmt.Errorf("forecast.max_horizon_days %d exceeds baseline provider limit of 16", cfg.Forecast.MaxHorizonDays)
	}

	return nil
}

// formatValidationErrors converts validator errors into a readable message
func formatValidationErrors(errs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", e.Namespace(), e.Tag()))
	}
	return fmt.Errorf("configuration invalid: %s", strings.Join(msgs, "; "))
}
