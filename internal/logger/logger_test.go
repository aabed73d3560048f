package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	if err != nil {
		return nil
	}
	return logEntry
}

func TestNewLoggerInvalidLevelDefaultsToInfo(t *testing.T) {
	log := NewLogger("nonsense", "development")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestNewLoggerProductionUsesJSON(t *testing.T) {
	log := NewLogger("debug", "production")
	_, ok := log.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)
}

func TestTrainingLoggerRunStarted(t *testing.T) {
	log, buf := setupTestLogger()
	trainingLogger := NewTrainingLogger(log)

	trainingLogger.LogRunStarted("run_001", "temperature", 720, []string{"linear", "forest"})

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "run_001", logEntry["run_id"])
	assert.Equal(t, "temperature", logEntry["target"])
	assert.Equal(t, "training", logEntry["component"])
}

func TestTrainingLoggerAlgorithmFailed(t *testing.T) {
	log, buf := setupTestLogger()
	trainingLogger := NewTrainingLogger(log)

	trainingLogger.LogAlgorithmFailed("run_001", "boost", errors.New("singular matrix"))

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "boost", logEntry["algorithm"])
	assert.Equal(t, "warning", logEntry["level"])
	assert.Contains(t, logEntry["error"], "singular matrix")
}

func TestTrainingLoggerAlgorithmTrained(t *testing.T) {
	log, buf := setupTestLogger()
	trainingLogger := NewTrainingLogger(log)

	trainingLogger.LogAlgorithmTrained("run_001", "forest", 0.91, 1.4, 0.88, 250*time.Millisecond)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "forest", logEntry["algorithm"])
	assert.InDelta(t, 0.91, logEntry["r2"].(float64), 1e-9)
}

func TestForecastLoggerServed(t *testing.T) {
	log, buf := setupTestLogger()
	forecastLogger := NewForecastLogger(log)

	forecastLogger.LogForecastServed("London", 5, true, false, false, 0.82, 12.5)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "London", logEntry["location"])
	assert.Equal(t, "forecast", logEntry["component"])
	assert.Equal(t, false, logEntry["cache_hit"])
}

func TestForecastLoggerDegradedFallback(t *testing.T) {
	log, buf := setupTestLogger()
	forecastLogger := NewForecastLogger(log)

	forecastLogger.LogDegradedFallback("London", "no trained models")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "warning", logEntry["level"])
	assert.Equal(t, "no trained models", logEntry["reason"])
}
