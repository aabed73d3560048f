package models

import (
	"time"
)

// HybridDay is one day of a blended forecast: the baseline value combined
// with the ML prediction, weighted by that day's accuracy estimate.
type HybridDay struct {
	Date        time.Time      `json:"date"`
	Baseline    float64        `json:"baseline"`
	Predicted   float64        `json:"predicted"`
	Blended     float64        `json:"blended"`
	Weight      float64        `json:"weight"`
	Pattern     WeatherPattern `json:"pattern"`
	Description string         `json:"description"`
}

// IntegratedForecast is the cached hybrid artifact combining the baseline
// forecast snapshot with ML predictions. Expired cache entries are misses,
// not errors.
type IntegratedForecast struct {
	Location    Location           `json:"location"`
	Baseline    []DayForecast      `json:"baseline"`
	Predictions []PredictionResult `json:"predictions,omitempty"`
	Hybrid      []HybridDay        `json:"hybrid"`
	Confidence  float64            `json:"confidence"`
	Degraded    bool               `json:"degraded,omitempty"`
	GeneratedAt time.Time          `json:"generated_at"`
}
