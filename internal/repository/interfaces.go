package repository

import (
	"context"
	"time"

	"github.com/yourusername/skycast/internal/models"
)

// ObservationStore defines the interface for historical weather observation access
type ObservationStore interface {
	Insert(ctx context.Context, obs *models.Observation) error
	InsertBatch(ctx context.Context, obs []models.Observation) error
	LoadHistorical(ctx context.Context, since time.Time) ([]models.Observation, error)
	Latest(ctx context.Context) (*models.Observation, error)
	Count(ctx context.Context) (int, error)
}

// TrainingHistory defines the interface for the append-only training run log
type TrainingHistory interface {
	Append(ctx context.Context, result *models.TrainingResult) error
	List(ctx context.Context, limit int) ([]*models.TrainingResult, error)
	LastSuccessful(ctx context.Context) (*models.TrainingResult, error)
}

// ModelStore defines the interface for durable model artifact persistence.
// Artifacts are opaque blobs keyed by name; metadata describes the set of
// artifacts that belong together.
type ModelStore interface {
	SaveArtifact(ctx context.Context, key string, blob []byte) error
	LoadArtifact(ctx context.Context, key string) ([]byte, error)
	SaveMetadata(ctx context.Context, meta *ModelMetadata) error
	LoadMetadata(ctx context.Context) (*ModelMetadata, error)
}

// ModelMetadata describes a persisted model snapshot.
type ModelMetadata struct {
	Target     string    `json:"target"`
	Schema     []string  `json:"schema"`
	Algorithms []string  `json:"algorithms"`
	TrainedAt  time.Time `json:"trained_at"`
}
