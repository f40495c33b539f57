package database

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/AndreasDit/Contento/internal/models"
)

// DefaultRecentLimit bounds Recent when the caller passes a non-positive limit.
const DefaultRecentLimit = 20

// HistoryRepository stores publish attempts.
type HistoryRepository interface {
	Record(ctx context.Context, attempt *models.Attempt) error
	Recent(ctx context.Context, limit int) ([]*models.Attempt, error)
	Close() error
}

// OpenHistory connects to the history store named by dsn. postgres:// and
// postgresql:// URLs use a pgx pool; anything else is a SQLite file path. The
// publish_history table is created on open.
func OpenHistory(ctx context.Context, dsn string, logger *slog.Logger) (HistoryRepository, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("history dsn is required")
	}
	if IsPostgresDSN(dsn) {
		db, err := NewDB(ctx, dsn, logger)
		if err != nil {
			return nil, err
		}
		if err := db.CreateTables(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return NewHistoryRepository(db), nil
	}
	repo, err := OpenSQLiteHistory(ctx, strings.TrimPrefix(dsn, "sqlite://"), logger)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// IsPostgresDSN reports whether dsn selects the Postgres backend.
func IsPostgresDSN(dsn string) bool {
	lower := strings.ToLower(dsn)
	return strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://")
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	return limit
}

func prepareAttempt(attempt *models.Attempt) error {
	if attempt == nil {
		return errors.New("attempt is required")
	}
	fresh := models.NewAttempt(attempt.RunID, attempt.File, attempt.Outcome)
	if attempt.ID == uuid.Nil {
		attempt.ID = fresh.ID
	}
	if attempt.AttemptedAt.IsZero() {
		attempt.AttemptedAt = fresh.AttemptedAt
	}
	return nil
}
