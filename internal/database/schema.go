package database

import (
	"context"
	"fmt"
)

const postgresHistoryTable = `
	CREATE TABLE IF NOT EXISTS publish_history (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		run_id VARCHAR(64) NOT NULL,
		post_id VARCHAR(16),
		platform VARCHAR(32),
		file VARCHAR(255) NOT NULL,
		outcome VARCHAR(32) NOT NULL,
		error TEXT,
		attempted_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_publish_history_attempted ON publish_history(attempted_at DESC);
	CREATE INDEX IF NOT EXISTS idx_publish_history_run ON publish_history(run_id);
	`

const sqliteHistoryTable = `
	CREATE TABLE IF NOT EXISTS publish_history (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		post_id TEXT,
		platform TEXT,
		file TEXT NOT NULL,
		outcome TEXT NOT NULL,
		error TEXT,
		attempted_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_publish_history_attempted ON publish_history(attempted_at DESC);
	CREATE INDEX IF NOT EXISTS idx_publish_history_run ON publish_history(run_id);
	`

// CreateTables creates the publish history table
func (db *DB) CreateTables(ctx context.Context) error {
	db.logger.Info("creating database tables")
	if _, err := db.Pool.Exec(ctx, postgresHistoryTable); err != nil {
		return fmt.Errorf("failed to create publish_history: %w", err)
	}
	db.logger.Info("all tables created")
	return nil
}
