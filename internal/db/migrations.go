package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS potholes (
		id               BIGSERIAL PRIMARY KEY,
		session_id       TEXT,
		model            TEXT,
		detections_count INT NOT NULL DEFAULT 0,
		address          TEXT,
		latitude         DOUBLE PRECISION,
		longitude        DOUBLE PRECISION,
		date             TEXT,
		time             TEXT,
		image            TEXT NOT NULL,
		info             JSONB,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_potholes_created_at ON potholes(created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_potholes_session_id ON potholes(session_id);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
