// Package logger provides forecast-specific logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// ForecastLogger provides dedicated logging for forecast operations.
type ForecastLogger struct {
	*logrus.Entry
}

// NewForecastLogger creates a new forecast logger.
func NewForecastLogger(baseLogger *logrus.Logger) *ForecastLogger {
	return &ForecastLogger{
		Entry: baseLogger.WithField("component", "forecast"),
	}
}

// LogForecastServed logs a served enhanced forecast.
func (fl *ForecastLogger) LogForecastServed(location string, days int, includeML, cacheHit, degraded bool, confidence float64, latencyMs float64) {
	fl.WithFields(logrus.Fields{
		"location":   location,
		"days":       days,
		"include_ml": includeML,
		"cache_hit":  cacheHit,
		"degraded":   degraded,
		"confidence": confidence,
		"latency_ms": latencyMs,
	}).Info("Enhanced forecast served")
}

// LogBaselineFetchFailed logs a baseline provider failure.
func (fl *ForecastLogger) LogBaselineFetchFailed(location string, err error) {
	fl.WithFields(logrus.Fields{
		"location": location,
	}).WithError(err).Error("Baseline forecast fetch failed")
}

// LogDegradedFallback logs a fall back to the baseline-only forecast.
func (fl *ForecastLogger) LogDegradedFallback(location string, reason string) {
	fl.WithFields(logrus.Fields{
		"location": location,
		"reason":   reason,
	}).Warn("ML predictions unavailable, serving baseline with reduced confidence")
}
