package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/skycast/internal/database"
	"github.com/yourusername/skycast/internal/models"
)

// PostgresTrainingHistory implements TrainingHistory for PostgreSQL. Records
// are stored as JSONB so the run structure can evolve without migrations.
type PostgresTrainingHistory struct {
	db *database.DB
}

// NewPostgresTrainingHistory creates a new training history log
func NewPostgresTrainingHistory(db *database.DB) TrainingHistory {
	return &PostgresTrainingHistory{db: db}
}

// Append records a completed training run
func (h *PostgresTrainingHistory) Append(ctx context.Context, result *models.TrainingResult) error {
	record, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal training result: %w", err)
	}

	query := `
		INSERT INTO training_runs (run_id, created_at, record)
		VALUES ($1, $2, $3)
	`

	_, err = h.db.GetPool().Exec(ctx, query, result.RunID, result.Timestamp, record)
	if err != nil {
		return fmt.Errorf("failed to append training run: %w", err)
	}

	return nil
}

// List retrieves the most recent training runs, newest first
func (h *PostgresTrainingHistory) List(ctx context.Context, limit int) ([]*models.TrainingResult, error) {
	query := `
		SELECT record FROM training_runs
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := h.db.GetPool().Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query training runs: %w", err)
	}
	defer rows.Close()

	var results []*models.TrainingResult
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan training run: %w", err)
		}
		result := &models.TrainingResult{}
		if err := json.Unmarshal(record, result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal training run: %w", err)
		}
		results = append(results, result)
	}

	return results, rows.Err()
}

// LastSuccessful retrieves the most recent run that trained at least one model
func (h *PostgresTrainingHistory) LastSuccessful(ctx context.Context) (*models.TrainingResult, error) {
	query := `
		SELECT record FROM training_runs
		WHERE record->>'status' = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var record []byte
	err := h.db.GetPool().QueryRow(ctx, query, models.TrainingStatusSuccess).Scan(&record)
	if err == pgx.ErrNoRows {
		return nil, models.ErrModelNotTrained
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last successful run: %w", err)
	}

	result := &models.TrainingResult{}
	if err := json.Unmarshal(record, result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal training run: %w", err)
	}

	return result, nil
}
