package models

import (
	"time"
)

// WeatherPattern is a coarse rule-based label attached to a prediction.
type WeatherPattern string

const (
	PatternSnow         WeatherPattern = "snow"
	PatternRain         WeatherPattern = "rain"
	PatternCloudy       WeatherPattern = "cloudy"
	PatternClear        WeatherPattern = "clear"
	PatternPartlyCloudy WeatherPattern = "partly-cloudy"
)

// ClassifyPattern labels a predicted temperature/humidity pair. The table is
// auxiliary and rule-based, not model-driven.
func ClassifyPattern(temperature, humidity float64) WeatherPattern {
	switch {
	case temperature < 0:
		return PatternSnow
	case temperature < 10 && humidity > 80:
		return PatternRain
	case humidity > 90:
		return PatternCloudy
	case humidity < 30:
		return PatternClear
	default:
		return PatternPartlyCloudy
	}
}

// PredictionResult is one model (or ensemble) prediction for a point in time.
// Results are ephemeral; they are produced per prediction call and never
// persisted.
type PredictionResult struct {
	Timestamp        time.Time      `json:"timestamp"`
	Predicted        float64        `json:"predicted"`
	ConfidenceLower  float64        `json:"confidence_lower"`
	ConfidenceUpper  float64        `json:"confidence_upper"`
	Pattern          WeatherPattern `json:"pattern"`
	AccuracyEstimate float64        `json:"accuracy_estimate"`
	Features         []string       `json:"features,omitempty"`
}

// EnsembleWeights maps algorithm name to its combination weight. Weights are
// non-negative and sum to 1; they are recomputed from the most recent
// training result, never persisted independently.
type EnsembleWeights map[string]float64

// Normalize clamps negative weights to zero and scales the rest so they sum
// to 1. When every weight is zero the mass is split equally.
func (w EnsembleWeights) Normalize() {
	if len(w) == 0 {
		return
	}
	total := 0.0
	for k, v := range w {
		if v < 0 {
			w[k] = 0
			v = 0
		}
		total += v
	}
	if total <= 0 {
		equal := 1.0 / float64(len(w))
		for k := range w {
			w[k] = equal
		}
		return
	}
	for k, v := range w {
		w[k] = v / total
	}
}
