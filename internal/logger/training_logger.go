// Package logger provides training-specific logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// TrainingLogger provides dedicated logging for model training operations.
type TrainingLogger struct {
	*logrus.Entry
}

// NewTrainingLogger creates a new training logger.
func NewTrainingLogger(baseLogger *logrus.Logger) *TrainingLogger {
	return &TrainingLogger{
		Entry: baseLogger.WithField("component", "training"),
	}
}

// LogRunStarted logs the start of a training run.
func (tl *TrainingLogger) LogRunStarted(runID string, target string, observations int, algorithms []string) {
	tl.WithFields(logrus.Fields{
		"run_id":       runID,
		"target":       target,
		"observations": observations,
		"algorithms":   algorithms,
	}).Info("Training run started")
}

// LogAlgorithmTrained logs the outcome of training a single algorithm.
func (tl *TrainingLogger) LogAlgorithmTrained(runID, algorithm string, r2, rmse, cvScore float64, duration time.Duration) {
	tl.WithFields(logrus.Fields{
		"run_id":      runID,
		"algorithm":   algorithm,
		"r2":          r2,
		"rmse":        rmse,
		"cv_score":    cvScore,
		"duration_ms": duration.Milliseconds(),
	}).Info("Algorithm training completed")
}

// LogAlgorithmFailed logs an isolated per-algorithm training failure.
func (tl *TrainingLogger) LogAlgorithmFailed(runID, algorithm string, err error) {
	tl.WithFields(logrus.Fields{
		"run_id":    runID,
		"algorithm": algorithm,
	}).WithError(err).Warn("Algorithm training failed")
}

// LogRunCompleted logs the end of a training run.
func (tl *TrainingLogger) LogRunCompleted(runID, status string, trained, failed int, validationScore float64, duration time.Duration) {
	tl.WithFields(logrus.Fields{
		"run_id":           runID,
		"status":           status,
		"trained":          trained,
		"failed":           failed,
		"validation_score": validationScore,
		"duration_ms":      duration.Milliseconds(),
	}).Info("Training run completed")
}

// LogRetrainSkipped logs a run that was skipped by the retrain policy.
func (tl *TrainingLogger) LogRetrainSkipped(daysSinceLast float64, lastScore float64) {
	tl.WithFields(logrus.Fields{
		"days_since_last": daysSinceLast,
		"last_score":      lastScore,
	}).Info("Retraining not required, skipping run")
}
