package database

import (
	"context"
	"fmt"

	"github.com/yourusername/skycast/internal/config"
)

// schema holds the tables this service owns. Observations are append-only
// readings; training_runs is the append-only history log.
const schema = `
CREATE TABLE IF NOT EXISTS observations (
	observed_at TIMESTAMPTZ NOT NULL,
	temperature DOUBLE PRECISION NOT NULL,
	humidity    DOUBLE PRECISION NOT NULL,
	pressure    DOUBLE PRECISION NOT NULL,
	wind_speed  DOUBLE PRECISION NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	latitude    DOUBLE PRECISION,
	longitude   DOUBLE PRECISION,
	PRIMARY KEY (observed_at)
);

CREATE TABLE IF NOT EXISTS training_runs (
	run_id     UUID PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	record     JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_training_runs_created_at ON training_runs (created_at);
`

// Initialize creates a database connection pool and ensures the schema the
// service depends on exists.
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return db, nil
}
