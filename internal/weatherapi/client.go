package weatherapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/skycast/internal/config"
	"github.com/yourusername/skycast/internal/metrics"
	"github.com/yourusername/skycast/internal/models"
)

const sourceName = "open-meteo"

// Client implements WeatherDataSource against an Open-Meteo compatible API.
type Client struct {
	http    *RateLimitedHTTPClient
	baseURL string
	apiKey  string
	log     *logrus.Logger
}

// NewClient creates a provider client from configuration
func NewClient(cfg *config.WeatherAPIConfig, baseLogger *logrus.Logger) *Client {
	httpCfg := DefaultHTTPClientConfig()
	httpCfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	httpCfg.MaxRetries = cfg.MaxRetries
	if cfg.RateLimit > 0 {
		httpCfg.RateLimit = cfg.RateLimit
	}

	return &Client{
		http:    NewRateLimitedHTTPClient(httpCfg, log.New(baseLogger.Writer(), "", 0)),
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		log:     baseLogger,
	}
}

// Name returns the provider name
func (c *Client) Name() string {
	return sourceName
}

type currentResponse struct {
	Current struct {
		Time        string  `json:"time"`
		Temperature float64 `json:"temperature_2m"`
		Humidity    float64 `json:"relative_humidity_2m"`
		Pressure    float64 `json:"surface_pressure"`
		WindSpeed   float64 `json:"wind_speed_10m"`
		WeatherCode int     `json:"weather_code"`
	} `json:"current"`
}

type forecastResponse struct {
	Daily struct {
		Time        []string  `json:"time"`
		TempMax     []float64 `json:"temperature_2m_max"`
		TempMin     []float64 `json:"temperature_2m_min"`
		Humidity    []float64 `json:"relative_humidity_2m_mean"`
		WeatherCode []int     `json:"weather_code"`
	} `json:"daily"`
}

// CurrentWeather fetches the present conditions at a location
func (c *Client) CurrentWeather(ctx context.Context, location models.Location) (*models.Observation, error) {
	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%.4f", location.Latitude))
	params.Set("longitude", fmt.Sprintf("%.4f", location.Longitude))
	params.Set("current", "temperature_2m,relative_humidity_2m,surface_pressure,wind_speed_10m,weather_code")

	var parsed currentResponse
	if err := c.fetch(ctx, params, &parsed); err != nil {
		return nil, err
	}

	observedAt, err := time.Parse("2006-01-02T15:04", parsed.Current.Time)
	if err != nil {
		return nil, NewProviderError(sourceName, ErrCodeInvalidData, "unparseable observation time", err)
	}

	lat, lon := location.Latitude, location.Longitude
	return &models.Observation{
		Timestamp:   observedAt,
		Temperature: parsed.Current.Temperature,
		Humidity:    parsed.Current.Humidity,
		Pressure:    parsed.Current.Pressure,
		WindSpeed:   parsed.Current.WindSpeed,
		Description: describeWeatherCode(parsed.Current.WeatherCode),
		Latitude:    &lat,
		Longitude:   &lon,
	}, nil
}

// Forecast fetches the provider's day-by-day baseline forecast
func (c *Client) Forecast(ctx context.Context, location models.Location, days int) ([]models.DayForecast, error) {
	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%.4f", location.Latitude))
	params.Set("longitude", fmt.Sprintf("%.4f", location.Longitude))
	params.Set("daily", "temperature_2m_max,temperature_2m_min,relative_humidity_2m_mean,weather_code")
	params.Set("forecast_days", fmt.Sprintf("%d", days))

	var parsed forecastResponse
	if err := c.fetch(ctx, params, &parsed); err != nil {
		return nil, err
	}

	daily := parsed.Daily
	if len(daily.Time) == 0 {
		return nil, NewProviderError(sourceName, ErrCodeInvalidData, "empty daily forecast", nil)
	}

	forecast := make([]models.DayForecast, 0, len(daily.Time))
	for i, day := range daily.Time {
		date, err := time.Parse("2006-01-02", day)
		if err != nil {
			return nil, NewProviderError(sourceName, ErrCodeInvalidData, "unparseable forecast date", err)
		}
		df := models.DayForecast{Date: date}
		if i < len(daily.TempMax) && i < len(daily.TempMin) {
			df.TempHigh = daily.TempMax[i]
			df.TempLow = daily.TempMin[i]
			df.Temperature = (daily.TempMax[i] + daily.TempMin[i]) / 2
		}
		if i < len(daily.Humidity) {
			df.Humidity = daily.Humidity[i]
		}
		if i < len(daily.WeatherCode) {
			df.Description = describeWeatherCode(daily.WeatherCode[i])
		}
		forecast = append(forecast, df)
	}

	return forecast, nil
}

func (c *Client) fetch(ctx context.Context, params url.Values, out interface{}) error {
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}
	endpoint := fmt.Sprintf("%s/v1/forecast?%s", c.baseURL, params.Encode())

	started := time.Now()
	resp, err := c.http.Get(ctx, endpoint)
	metrics.BaselineFetchLatency.Observe(time.Since(started).Seconds())
	if err != nil {
		return NewProviderError(sourceName, ErrCodeNetworkError, "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return NewProviderError(sourceName, ErrCodeNotFound, "location not found", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return NewProviderError(sourceName, ErrCodeRateLimitExceeded, "provider rate limit exceeded", nil)
	case resp.StatusCode != http.StatusOK:
		return NewProviderError(sourceName, ErrCodeServerError, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewProviderError(sourceName, ErrCodeNetworkError, "failed to read response", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return NewProviderError(sourceName, ErrCodeInvalidData, "malformed provider response", err)
	}
	return nil
}

// describeWeatherCode maps WMO weather interpretation codes to the condition
// labels the feature encoder trains on.
func describeWeatherCode(code int) string {
	switch {
	case code == 0:
		return "clear sky"
	case code <= 2:
		return "partly cloudy"
	case code == 3:
		return "overcast"
	case code <= 48:
		return "fog"
	case code <= 57:
		return "drizzle"
	case code <= 67:
		return "rain"
	case code <= 77:
		return "snow"
	case code <= 82:
		return "rain showers"
	case code <= 86:
		return "snow showers"
	case code <= 99:
		return "thunderstorm"
	default:
		return "unknown"
	}
}
