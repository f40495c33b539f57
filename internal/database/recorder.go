package database

import (
	"context"

	"github.com/AndreasDit/Contento/internal/dispatch"
	"github.com/AndreasDit/Contento/internal/models"
)

// SweepRecorder writes dispatcher results into a HistoryRepository.
type SweepRecorder struct {
	repo HistoryRepository
}

func NewSweepRecorder(repo HistoryRepository) *SweepRecorder {
	return &SweepRecorder{repo: repo}
}

// Record implements dispatch.Recorder.
func (r *SweepRecorder) Record(ctx context.Context, runID string, result dispatch.Result) error {
	attempt := models.NewAttempt(runID, result.File, string(result.Outcome))
	attempt.PostID = result.PostID
	attempt.Platform = result.Platform
	if result.Err != nil {
		attempt.Error = result.Err.Error()
	}
	return r.repo.Record(ctx, attempt)
}
