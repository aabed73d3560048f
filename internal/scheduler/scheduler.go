package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/skycast/internal/models"
	"github.com/yourusername/skycast/internal/repository"
	"github.com/yourusername/skycast/internal/training"
	"github.com/yourusername/skycast/internal/weatherapi"
)

// Scheduler manages the periodic retraining and observation polling jobs
type Scheduler struct {
	cron            *cron.Cron
	orchestrator    *training.Orchestrator
	source          weatherapi.WeatherDataSource
	obsStore        repository.ObservationStore
	logger          *logrus.Logger
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	gracefulTimeout time.Duration
}

// NewScheduler creates a new scheduler
func NewScheduler(orchestrator *training.Orchestrator, source weatherapi.WeatherDataSource, obsStore repository.ObservationStore, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:            cron.New(cron.WithLocation(time.UTC)),
		orchestrator:    orchestrator,
		source:          source,
		obsStore:        obsStore,
		logger:          logger,
		jobIDs:          make([]cron.EntryID, 0),
		gracefulTimeout: 30 * time.Second,
	}
}

// ScheduleRetraining schedules policy-gated retraining runs. Each tick asks
// the orchestrator whether retraining is actually needed, so a frequent
// schedule stays cheap.
func (s *Scheduler) ScheduleRetraining(cronExpression string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	jobFunc := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		result, err := s.orchestrator.TrainModels(ctx, false)
		if err != nil {
			s.logger.WithError(err).Error("Scheduled retraining failed")
			return
		}
		if result == nil {
			s.logger.Debug("Scheduled retraining skipped, models still fresh")
			return
		}
		s.logger.WithFields(logrus.Fields{
			"run_id":           result.RunID,
			"status":           result.Status,
			"validation_score": result.ValidationScore,
		}).Info("Scheduled retraining completed")
	}

	entryID, err := s.cron.AddFunc(cronExpression, jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithField("schedule", cronExpression).Info("Scheduled retraining job")

	return nil
}

// ScheduleObservationPolling schedules periodic collection of current
// conditions into the observation store so the training window keeps
// filling between runs.
func (s *Scheduler) ScheduleObservationPolling(intervalSeconds int, location models.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	if intervalSeconds < 60 {
		intervalSeconds = 60
	}

	jobFunc := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(intervalSeconds-1)*time.Second)
		defer cancel()

		obs, err := s.source.CurrentWeather(ctx, location)
		if err != nil {
			s.logger.WithError(err).WithField("location", location.Key()).Warn("Observation polling failed")
			return
		}
		if err := s.obsStore.Insert(ctx, obs); err != nil {
			s.logger.WithError(err).Error("Failed to store polled observation")
		}
	}

	entryID, err := s.cron.AddFunc(fmt.Sprintf("@every %ds", intervalSeconds), jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithFields(logrus.Fields{
		"interval_seconds": intervalSeconds,
		"location":         location.Key(),
	}).Info("Scheduled observation polling job")

	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.gracefulTimeout)
	defer cancel()

	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out waiting for running jobs")
	}
	s.isRunning = false
	s.logger.Info("Scheduler stopped")

	return nil
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns the time of the next scheduled job run
func (s *Scheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			if nextRun.IsZero() || entry.Next.Before(nextRun) {
				nextRun = entry.Next
			}
		}
	}

	return nextRun
}
