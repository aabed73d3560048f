// Package training orchestrates the model training pipeline: pulling the
// observation window, cleaning it, training each algorithm in isolation, and
// recording the run in the append-only history log.
package training

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/skycast/internal/config"
	"github.com/yourusername/skycast/internal/features"
	"github.com/yourusername/skycast/internal/logger"
	"github.com/yourusername/skycast/internal/metrics"
	"github.com/yourusername/skycast/internal/models"
	"github.com/yourusername/skycast/internal/predictor"
	"github.com/yourusername/skycast/internal/regressor"
	"github.com/yourusername/skycast/internal/repository"
	"github.com/yourusername/skycast/internal/tracing"
)

// underperformingR2 marks a trained model for a report flag without failing.
const underperformingR2 = 0.6

const defaultWorkerPool = 3

// Orchestrator runs the full training pipeline and owns the retrain policy.
type Orchestrator struct {
	cfg       *config.Config
	obsStore  repository.ObservationStore
	history   repository.TrainingHistory
	predictor *predictor.Predictor
	log       *logger.TrainingLogger

	mu         sync.Mutex
	lastReport string
}

// NewOrchestrator creates a training orchestrator
func NewOrchestrator(cfg *config.Config, obsStore repository.ObservationStore, history repository.TrainingHistory, pred *predictor.Predictor, baseLogger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		obsStore:  obsStore,
		history:   history,
		predictor: pred,
		log:       logger.NewTrainingLogger(baseLogger),
	}
}

// Predictor returns the predictor this orchestrator trains
func (o *Orchestrator) Predictor() *predictor.Predictor {
	return o.predictor
}

// LastReport returns the human-readable report of the most recent run
func (o *Orchestrator) LastReport() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastReport
}

// ShouldRetrain evaluates the retrain policy against the history log. It is
// deliberately cheap so it can run before any data is pulled.
func (o *Orchestrator) ShouldRetrain(ctx context.Context) (bool, string, error) {
	last, err := o.history.LastSuccessful(ctx)
	if err == models.ErrModelNotTrained {
		return true, "no prior successful training run", nil
	}
	if err != nil {
		return false, "", err
	}

	days := time.Since(last.Timestamp).Hours() / 24
	if days >= float64(o.cfg.Training.AutoRetrainDays) {
		return true, fmt.Sprintf("last successful run is %.1f days old", days), nil
	}
	if last.ValidationScore < o.cfg.Training.RetrainThreshold {
		return true, fmt.Sprintf("last validation score %.3f below threshold %.2f", last.ValidationScore, o.cfg.Training.RetrainThreshold), nil
	}

	o.log.LogRetrainSkipped(days, last.ValidationScore)
	return false, "", nil
}

// TrainModels runs one training pass. Unless force is set, the retrain
// policy is consulted first and a nil result is returned when no retraining
// is warranted. Per-algorithm failures are isolated; the run fails only when
// every algorithm fails.
func (o *Orchestrator) TrainModels(ctx context.Context, force bool) (result *models.TrainingResult, err error) {
	if !force {
		needed, _, err := o.ShouldRetrain(ctx)
		if err != nil {
			return nil, err
		}
		if !needed {
			metrics.RecordTrainingSkipped()
			return nil, nil
		}
	}

	started := time.Now()
	runID := uuid.New()

	ctx, closeSegment := tracing.StartSegment(ctx, o.cfg.Tracing.Enabled, "model-training")
	defer func() { closeSegment(err) }()
	tracing.AddAnnotation(ctx, "run_id", runID.String())

	since := started.AddDate(0, 0, -o.cfg.Training.HistoryWindowDays)
	raw, err := o.obsStore.LoadHistorical(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load observation window: %w", err)
	}

	if err := ValidateFields(raw); err != nil {
		return nil, err
	}

	cleaned := Clean(raw)
	if len(cleaned) < o.cfg.Training.MinObservations {
		return nil, &models.InsufficientDataError{Count: len(cleaned), Required: o.cfg.Training.MinObservations}
	}

	o.log.LogRunStarted(runID.String(), o.cfg.Training.Target, len(cleaned), o.cfg.Training.Algorithms)
	metrics.ObservationsUsed.Set(float64(len(cleaned)))

	encoder := features.NewConditionEncoder()
	builder := features.NewBuilder(encoder)
	X, schema, y, err := builder.Matrix(cleaned)
	if err != nil {
		return nil, err
	}

	trainX, trainY, testX, testY := regressor.SplitChronological(X, y, o.cfg.Training.HoldoutFraction)

	// A missing algorithm implementation is fatal and surfaced before any
	// training work starts; a fit failure later is isolated per algorithm.
	candidates := make(map[string]regressor.Model, len(o.cfg.Training.Algorithms))
	for _, name := range o.cfg.Training.Algorithms {
		model, err := regressor.New(name, schema)
		if err != nil {
			return nil, err
		}
		candidates[name] = model
	}

	outcomes := o.trainAll(ctx, runID, candidates, trainX, trainY, testX, testY, schema)

	trained := make(map[string]regressor.Model)
	scores := make(map[string]float64)
	failed := 0
	scoreSum := 0.0
	for _, outcome := range outcomes {
		if outcome.Status != models.TrainingStatusSuccess {
			failed++
			continue
		}
		trained[outcome.Algorithm] = candidates[outcome.Algorithm]
		scores[outcome.Algorithm] = outcome.Metrics.R2
		scoreSum += outcome.Metrics.R2
	}

	result = &models.TrainingResult{
		RunID:      runID,
		Timestamp:  started,
		Target:     o.cfg.Training.Target,
		Outcomes:   outcomes,
		Duration:   time.Since(started),
		DataPoints: len(cleaned),
		Status:     models.TrainingStatusFailed,
	}
	if len(trained) > 0 {
		result.Status = models.TrainingStatusSuccess
		result.ValidationScore = scoreSum / float64(len(trained))
	} else {
		result.Notes = "all algorithms failed"
	}

	if len(trained) > 0 {
		o.predictor.Swap(trained, schema, encoder, scores, started)
		if err := o.predictor.Save(ctx); err != nil {
			return nil, fmt.Errorf("trained models could not be persisted: %w", err)
		}
	}

	if err := o.history.Append(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to record training run: %w", err)
	}

	report := buildReport(result, cleaned)
	o.mu.Lock()
	o.lastReport = report
	o.mu.Unlock()

	metrics.RecordTrainingRun(result.Status, result.Duration.Seconds())
	metrics.LastValidationScore.Set(result.ValidationScore)
	o.log.LogRunCompleted(runID.String(), result.Status, len(trained), failed, result.ValidationScore, result.Duration)

	return result, nil
}

// trainAll fits every candidate concurrently on a bounded pool. Each
// algorithm's outcome is recorded independently.
func (o *Orchestrator) trainAll(ctx context.Context, runID uuid.UUID, candidates map[string]regressor.Model, trainX [][]float64, trainY []float64, testX [][]float64, testY []float64, schema []string) []models.AlgorithmOutcome {
	poolSize := o.cfg.Workers.PoolSize
	if poolSize <= 0 {
		poolSize = defaultWorkerPool
	}

	var mu sync.Mutex
	outcomes := make([]models.AlgorithmOutcome, 0, len(candidates))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(poolSize)

	for _, name := range o.cfg.Training.Algorithms {
		model := candidates[name]
		g.Go(func() error {
			outcome := o.trainOne(ctx, runID, model, trainX, trainY, testX, testY, schema)
			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; failures land in their outcome.
	_ = g.Wait()

	// Restore the configured algorithm order lost to scheduling.
	ordered := make([]models.AlgorithmOutcome, 0, len(outcomes))
	for _, name := range o.cfg.Training.Algorithms {
		for i := range outcomes {
			if outcomes[i].Algorithm == name {
				ordered = append(ordered, outcomes[i])
				break
			}
		}
	}
	return ordered
}

func (o *Orchestrator) trainOne(ctx context.Context, runID uuid.UUID, model regressor.Model, trainX [][]float64, trainY []float64, testX [][]float64, testY []float64, schema []string) models.AlgorithmOutcome {
	name := model.Name()
	started := time.Now()

	if err := ctx.Err(); err != nil {
		o.log.LogAlgorithmFailed(runID.String(), name, err)
		return models.AlgorithmOutcome{Algorithm: name, Status: models.TrainingStatusFailed, Notes: err.Error()}
	}

	if err := model.Fit(trainX, trainY); err != nil {
		o.log.LogAlgorithmFailed(runID.String(), name, err)
		return models.AlgorithmOutcome{Algorithm: name, Status: models.TrainingStatusFailed, Notes: err.Error()}
	}

	predicted := make([]float64, len(testX))
	for i, row := range testX {
		out, err := model.Predict(row)
		if err != nil {
			o.log.LogAlgorithmFailed(runID.String(), name, err)
			return models.AlgorithmOutcome{Algorithm: name, Status: models.TrainingStatusFailed, Notes: err.Error()}
		}
		predicted[i] = out
	}

	modelMetrics, err := regressor.Evaluate(predicted, testY)
	if err != nil {
		o.log.LogAlgorithmFailed(runID.String(), name, err)
		return models.AlgorithmOutcome{Algorithm: name, Status: models.TrainingStatusFailed, Notes: err.Error()}
	}

	// Cross-validation runs on the training partition only so the holdout
	// stays untouched.
	cvScore, err := regressor.CrossValidate(func() regressor.Model {
		fresh, _ := regressor.New(name, schema)
		return fresh
	}, trainX, trainY, o.cfg.Training.CrossValidationFolds)
	if err != nil {
		o.log.LogAlgorithmFailed(runID.String(), name, err)
		return models.AlgorithmOutcome{Algorithm: name, Status: models.TrainingStatusFailed, Notes: err.Error()}
	}
	modelMetrics.CVScore = cvScore

	o.log.LogAlgorithmTrained(runID.String(), name, modelMetrics.R2, modelMetrics.RMSE, cvScore, time.Since(started))
	return models.AlgorithmOutcome{
		Algorithm: name,
		Status:    models.TrainingStatusSuccess,
		Metrics:   &modelMetrics,
	}
}
