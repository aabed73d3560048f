package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/skycast/internal/database"
	"github.com/yourusername/skycast/internal/models"
)

const errScanObservation = "failed to scan observation: %w"

// PostgresObservationStore implements ObservationStore for PostgreSQL
type PostgresObservationStore struct {
	db *database.DB
}

// NewPostgresObservationStore creates a new observation store
func NewPostgresObservationStore(db *database.DB) ObservationStore {
	return &PostgresObservationStore{db: db}
}

// Insert stores a single observation, replacing any reading at the same timestamp
func (s *PostgresObservationStore) Insert(ctx context.Context, obs *models.Observation) error {
	query := `
		INSERT INTO observations (observed_at, temperature, humidity, pressure, wind_speed, description, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (observed_at) DO UPDATE SET
			temperature = EXCLUDED.temperature, humidity = EXCLUDED.humidity,
			pressure = EXCLUDED.pressure, wind_speed = EXCLUDED.wind_speed,
			description = EXCLUDED.description, latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude
	`

	_, err := s.db.GetPool().Exec(ctx, query,
		obs.Timestamp, obs.Temperature, obs.Humidity, obs.Pressure,
		obs.WindSpeed, obs.Description, obs.Latitude, obs.Longitude,
	)
	if err != nil {
		return fmt.Errorf("failed to insert observation: %w", err)
	}

	return nil
}

// InsertBatch stores observations in a single transaction
func (s *PostgresObservationStore) InsertBatch(ctx context.Context, obs []models.Observation) error {
	if len(obs) == 0 {
		return nil
	}

	tx, err := s.db.GetPool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO observations (observed_at, temperature, humidity, pressure, wind_speed, description, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (observed_at) DO NOTHING
	`

	for i := range obs {
		o := &obs[i]
		_, err := tx.Exec(ctx, query,
			o.Timestamp, o.Temperature, o.Humidity, o.Pressure,
			o.WindSpeed, o.Description, o.Latitude, o.Longitude,
		)
		if err != nil {
			return fmt.Errorf("failed to insert observation batch: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// LoadHistorical retrieves observations since the given time in chronological order
func (s *PostgresObservationStore) LoadHistorical(ctx context.Context, since time.Time) ([]models.Observation, error) {
	query := `
		SELECT observed_at, temperature, humidity, pressure, wind_speed, description, latitude, longitude
		FROM observations
		WHERE observed_at >= $1
		ORDER BY observed_at ASC
	`

	rows, err := s.db.GetPool().Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	var result []models.Observation
	for rows.Next() {
		var o models.Observation
		err := rows.Scan(
			&o.Timestamp, &o.Temperature, &o.Humidity, &o.Pressure,
			&o.WindSpeed, &o.Description, &o.Latitude, &o.Longitude,
		)
		if err != nil {
			return nil, fmt.Errorf(errScanObservation, err)
		}
		result = append(result, o)
	}

	return result, rows.Err()
}

// Latest retrieves the most recent observation
func (s *PostgresObservationStore) Latest(ctx context.Context) (*models.Observation, error) {
	query := `
		SELECT observed_at, temperature, humidity, pressure, wind_speed, description, latitude, longitude
		FROM observations
		ORDER BY observed_at DESC
		LIMIT 1
	`

	o := &models.Observation{}
	err := s.db.GetPool().QueryRow(ctx, query).Scan(
		&o.Timestamp, &o.Temperature, &o.Humidity, &o.Pressure,
		&o.WindSpeed, &o.Description, &o.Latitude, &o.Longitude,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNoObservations
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest observation: %w", err)
	}

	return o, nil
}

// Count returns the total number of stored observations
func (s *PostgresObservationStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetPool().QueryRow(ctx, "SELECT COUNT(*) FROM observations").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count observations: %w", err)
	}

	return count, nil
}
