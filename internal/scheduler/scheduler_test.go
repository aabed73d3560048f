package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/skycast/internal/config"
	"github.com/yourusername/skycast/internal/models"
	"github.com/yourusername/skycast/internal/predictor"
	"github.com/yourusername/skycast/internal/repository"
	"github.com/yourusername/skycast/internal/training"
)

type pollSource struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *pollSource) Name() string { return "poll-stub" }

func (s *pollSource) Forecast(ctx context.Context, location models.Location, days int) ([]models.DayForecast, error) {
	return nil, nil
}

func (s *pollSource) CurrentWeather(ctx context.Context, location models.Location) (*models.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &models.Observation{
		Timestamp:   time.Now().UTC(),
		Temperature: 15,
		Humidity:    60,
		Pressure:    1010,
		WindSpeed:   2,
		Description: "clear sky",
	}, nil
}

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()

	cfg := &config.Config{
		Training: config.TrainingConfig{
			Target:               "temperature",
			Algorithms:           []string{"linear"},
			MinObservations:      100,
			HistoryWindowDays:    30,
			AutoRetrainDays:      7,
			RetrainThreshold:     0.7,
			HoldoutFraction:      0.2,
			CrossValidationFolds: 5,
		},
	}

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	obsStore := repository.NewMemoryObservationStore()
	history := repository.NewMemoryTrainingHistory()
	pred := predictor.New("temperature", repository.NewMemoryModelStore(), log)
	orch := training.NewOrchestrator(cfg, obsStore, history, pred, log)
	source := &pollSource{}

	return NewScheduler(orch, source, obsStore, log)
}

func TestStartRequiresJobs(t *testing.T) {
	sched := newTestScheduler(t)
	assert.Error(t, sched.Start())
	assert.False(t, sched.IsRunning())
}

func TestStartAndStop(t *testing.T) {
	sched := newTestScheduler(t)
	require.NoError(t, sched.ScheduleRetraining("0 3 * * *"))

	require.NoError(t, sched.Start())
	assert.True(t, sched.IsRunning())
	assert.Error(t, sched.Start(), "double start should fail")
	assert.False(t, sched.NextRun().IsZero())

	require.NoError(t, sched.Stop())
	assert.False(t, sched.IsRunning())
	require.NoError(t, sched.Stop(), "stop is idempotent")
}

func TestScheduleWhileRunningFails(t *testing.T) {
	sched := newTestScheduler(t)
	require.NoError(t, sched.ScheduleRetraining("0 3 * * *"))
	require.NoError(t, sched.Start())
	defer sched.Stop()

	assert.Error(t, sched.ScheduleRetraining("0 4 * * *"))
	assert.Error(t, sched.ScheduleObservationPolling(600, models.Location{Name: "berlin"}))
}

func TestInvalidCronExpression(t *testing.T) {
	sched := newTestScheduler(t)
	assert.Error(t, sched.ScheduleRetraining("not a cron expression"))
}

func TestObservationPollingSchedules(t *testing.T) {
	sched := newTestScheduler(t)

	require.NoError(t, sched.ScheduleObservationPolling(10, models.Location{Name: "berlin", Latitude: 52.52, Longitude: 13.405}))
	require.NoError(t, sched.Start())
	defer sched.Stop()

	// Sub-minute intervals clamp to the 60s floor.
	next := sched.NextRun()
	require.False(t, next.IsZero())
	assert.Greater(t, time.Until(next), 30*time.Second)
}
