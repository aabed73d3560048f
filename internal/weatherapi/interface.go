// Package weatherapi fetches current conditions and baseline forecasts from
// the external weather provider.
package weatherapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourusername/skycast/internal/models"
)

// WeatherDataSource abstracts the external weather provider so the
// integration layer and tests can swap in stubs.
type WeatherDataSource interface {
	// CurrentWeather fetches the present conditions at a location.
	CurrentWeather(ctx context.Context, location models.Location) (*models.Observation, error)

	// Forecast fetches the provider's own day-by-day forecast, used as the
	// baseline that model output is blended against.
	Forecast(ctx context.Context, location models.Location, days int) ([]models.DayForecast, error)

	// Name identifies the provider.
	Name() string
}

// Provider error codes.
const (
	ErrCodeRateLimitExceeded = "rate_limit_exceeded"
	ErrCodeNotFound          = "not_found"
	ErrCodeInvalidData       = "invalid_data"
	ErrCodeNetworkError      = "network_error"
	ErrCodeServerError       = "server_error"
)

// ErrCircuitOpen is returned while the provider circuit breaker rejects calls.
var ErrCircuitOpen = errors.New("weather provider circuit open")

// ProviderError wraps a failure from the external provider with its source
// and a stable code.
type ProviderError struct {
	Source  string
	Code    string
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%s): %v", e.Source, e.Message, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Source, e.Message, e.Code)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a provider error
func NewProviderError(source, code, message string, err error) *ProviderError {
	return &ProviderError{Source: source, Code: code, Message: message, Err: err}
}
