package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/AndreasDit/Contento/internal/models"
)

// PgHistoryRepository keeps publish history in Postgres.
type PgHistoryRepository struct {
	db *DB
}

func NewHistoryRepository(db *DB) *PgHistoryRepository {
	return &PgHistoryRepository{db: db}
}

// Record inserts one attempt
func (r *PgHistoryRepository) Record(ctx context.Context, attempt *models.Attempt) error {
	if err := prepareAttempt(attempt); err != nil {
		return err
	}

	query := `
		INSERT INTO publish_history (id, run_id, post_id, platform, file, outcome, error, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		attempt.ID.String(),
		attempt.RunID,
		attempt.PostID,
		attempt.Platform,
		attempt.File,
		attempt.Outcome,
		attempt.Error,
		attempt.AttemptedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// Recent returns the newest attempts first
func (r *PgHistoryRepository) Recent(ctx context.Context, limit int) ([]*models.Attempt, error) {
	query := `
		SELECT id::text, run_id, COALESCE(post_id, ''), COALESCE(platform, ''), file, outcome,
		       COALESCE(error, ''), attempted_at
		FROM publish_history
		ORDER BY attempted_at DESC
		LIMIT $1
	`

	rows, err := r.db.Pool.Query(ctx, query, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var attempts []*models.Attempt
	for rows.Next() {
		attempt := &models.Attempt{}
		var id string
		err := rows.Scan(
			&id,
			&attempt.RunID,
			&attempt.PostID,
			&attempt.Platform,
			&attempt.File,
			&attempt.Outcome,
			&attempt.Error,
			&attempt.AttemptedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		if attempt.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("failed to parse attempt id: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}

	return attempts, nil
}

// Close releases the pool.
func (r *PgHistoryRepository) Close() error {
	r.db.Close()
	return nil
}
