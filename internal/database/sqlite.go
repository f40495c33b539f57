package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/AndreasDit/Contento/internal/logging"
	"github.com/AndreasDit/Contento/internal/models"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	// Fixed-width so ORDER BY on the text column is chronological.
	sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// SQLiteHistoryRepository keeps publish history in a local SQLite file.
type SQLiteHistoryRepository struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// OpenSQLiteHistory opens or creates the history database at path.
func OpenSQLiteHistory(ctx context.Context, path string, logger *slog.Logger) (*SQLiteHistoryRepository, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteHistoryTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create publish_history: %w", err)
	}

	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "database")
	logger.Info("database connected", logging.String("backend", "sqlite"), logging.String("path", path))

	return &SQLiteHistoryRepository{db: db, path: path, logger: logger}, nil
}

// Path returns the database file location.
func (r *SQLiteHistoryRepository) Path() string {
	return r.path
}

// Record inserts one attempt.
func (r *SQLiteHistoryRepository) Record(ctx context.Context, attempt *models.Attempt) error {
	if err := prepareAttempt(attempt); err != nil {
		return err
	}
	err := retryOnBusy(ctx, func() error {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO publish_history (id, run_id, post_id, platform, file, outcome, error, attempted_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			attempt.ID.String(),
			attempt.RunID,
			attempt.PostID,
			attempt.Platform,
			attempt.File,
			attempt.Outcome,
			attempt.Error,
			attempt.AttemptedAt.UTC().Format(sqliteTimeLayout),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// Recent returns the newest attempts first.
func (r *SQLiteHistoryRepository) Recent(ctx context.Context, limit int) ([]*models.Attempt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, run_id, COALESCE(post_id, ''), COALESCE(platform, ''), file, outcome,
		        COALESCE(error, ''), attempted_at
		 FROM publish_history
		 ORDER BY attempted_at DESC, rowid DESC
		 LIMIT ?`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var attempts []*models.Attempt
	for rows.Next() {
		attempt := &models.Attempt{}
		var id, attemptedAt string
		if err := rows.Scan(
			&id,
			&attempt.RunID,
			&attempt.PostID,
			&attempt.Platform,
			&attempt.File,
			&attempt.Outcome,
			&attempt.Error,
			&attemptedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		if attempt.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("failed to parse attempt id: %w", err)
		}
		if attempt.AttemptedAt, err = time.Parse(time.RFC3339Nano, attemptedAt); err != nil {
			return nil, fmt.Errorf("failed to parse attempted_at: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}
	return attempts, nil
}

// Close closes the underlying database connection.
func (r *SQLiteHistoryRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
