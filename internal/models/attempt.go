package models

import (
	"time"

	"github.com/google/uuid"
)

// Attempt is one publish-history row written after a sweep handled a record.
type Attempt struct {
	ID          uuid.UUID `json:"id"`
	RunID       string    `json:"run_id"`
	PostID      string    `json:"post_id"`
	Platform    string    `json:"platform"`
	File        string    `json:"file"`
	Outcome     string    `json:"outcome"`
	Error       string    `json:"error,omitempty"`
	AttemptedAt time.Time `json:"attempted_at"`
}

// NewAttempt creates an attempt with a fresh id stamped at the current time.
func NewAttempt(runID, file, outcome string) *Attempt {
	return &Attempt{
		ID:          uuid.New(),
		RunID:       runID,
		File:        file,
		Outcome:     outcome,
		AttemptedAt: time.Now().UTC(),
	}
}
