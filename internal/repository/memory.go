package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yourusername/skycast/internal/models"
)

// MemoryObservationStore is an in-memory ObservationStore used in tests and
// for running the pipeline without a database.
type MemoryObservationStore struct {
	mu           sync.RWMutex
	observations map[time.Time]models.Observation
}

// NewMemoryObservationStore creates an empty in-memory observation store
func NewMemoryObservationStore() *MemoryObservationStore {
	return &MemoryObservationStore{observations: make(map[time.Time]models.Observation)}
}

// Insert stores a single observation
func (s *MemoryObservationStore) Insert(_ context.Context, obs *models.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observations[obs.Timestamp] = *obs
	return nil
}

// InsertBatch stores observations, keeping the first reading per timestamp
func (s *MemoryObservationStore) InsertBatch(_ context.Context, obs []models.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range obs {
		if _, exists := s.observations[obs[i].Timestamp]; !exists {
			s.observations[obs[i].Timestamp] = obs[i]
		}
	}
	return nil
}

// LoadHistorical retrieves observations since the given time in chronological order
func (s *MemoryObservationStore) LoadHistorical(_ context.Context, since time.Time) ([]models.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Observation
	for ts, o := range s.observations {
		if !ts.Before(since) {
			result = append(result, o)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}

// Latest retrieves the most recent observation
func (s *MemoryObservationStore) Latest(_ context.Context) (*models.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.Observation
	for ts := range s.observations {
		if latest == nil || ts.After(latest.Timestamp) {
			o := s.observations[ts]
			latest = &o
		}
	}
	if latest == nil {
		return nil, models.ErrNoObservations
	}
	return latest, nil
}

// Count returns the number of stored observations
func (s *MemoryObservationStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observations), nil
}

// MemoryTrainingHistory is an in-memory append-only training run log
type MemoryTrainingHistory struct {
	mu   sync.RWMutex
	runs []*models.TrainingResult
}

// NewMemoryTrainingHistory creates an empty in-memory training history
func NewMemoryTrainingHistory() *MemoryTrainingHistory {
	return &MemoryTrainingHistory{}
}

// Append records a completed training run
func (h *MemoryTrainingHistory) Append(_ context.Context, result *models.TrainingResult) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	copied := *result
	h.runs = append(h.runs, &copied)
	return nil
}

// List retrieves the most recent training runs, newest first
func (h *MemoryTrainingHistory) List(_ context.Context, limit int) ([]*models.TrainingResult, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var results []*models.TrainingResult
	for i := len(h.runs) - 1; i >= 0 && len(results) < limit; i-- {
		copied := *h.runs[i]
		results = append(results, &copied)
	}
	return results, nil
}

// LastSuccessful retrieves the most recent run that trained at least one model
func (h *MemoryTrainingHistory) LastSuccessful(_ context.Context) (*models.TrainingResult, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for i := len(h.runs) - 1; i >= 0; i-- {
		if h.runs[i].Succeeded() {
			copied := *h.runs[i]
			return &copied, nil
		}
	}
	return nil, models.ErrModelNotTrained
}

// MemoryModelStore is an in-memory ModelStore used in tests
type MemoryModelStore struct {
	mu        sync.RWMutex
	artifacts map[string][]byte
	meta      *ModelMetadata
}

// NewMemoryModelStore creates an empty in-memory model store
func NewMemoryModelStore() *MemoryModelStore {
	return &MemoryModelStore{artifacts: make(map[string][]byte)}
}

// SaveArtifact stores a blob under the given key
func (s *MemoryModelStore) SaveArtifact(_ context.Context, key string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]byte, len(blob))
	copy(copied, blob)
	s.artifacts[key] = copied
	return nil
}

// LoadArtifact retrieves the blob stored under the given key
func (s *MemoryModelStore) LoadArtifact(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.artifacts[key]
	if !ok {
		return nil, models.ErrModelNotFound
	}
	copied := make([]byte, len(blob))
	copy(copied, blob)
	return copied, nil
}

// SaveMetadata stores the snapshot metadata
func (s *MemoryModelStore) SaveMetadata(_ context.Context, meta *ModelMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *meta
	s.meta = &copied
	return nil
}

// LoadMetadata retrieves the snapshot metadata
func (s *MemoryModelStore) LoadMetadata(_ context.Context) (*ModelMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.meta == nil {
		return nil, models.ErrModelNotFound
	}
	copied := *s.meta
	return &copied, nil
}
