package dispatch

import "time"

// Outcome classifies what a sweep did with one file.
type Outcome string

const (
	OutcomePublished    Outcome = "published"
	OutcomeFailed       Outcome = "failed"
	OutcomeInvalid      Outcome = "invalid"
	OutcomeSkipped      Outcome = "skipped"
	OutcomeWouldPublish Outcome = "would_publish"
)

// Result describes one processed file.
type Result struct {
	File        string
	PostID      string
	Platform    string
	Outcome     Outcome
	Destination string
	Err         error
}

// Report summarizes one sweep.
type Report struct {
	RunID     string
	Now       string
	StartedAt time.Time
	Duration  time.Duration
	DryRun    bool
	Results   []Result
}

// Count returns how many results have the outcome.
func (r Report) Count(outcome Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == outcome {
			n++
		}
	}
	return n
}

// Failures returns failed and invalid results.
func (r Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Outcome == OutcomeFailed || res.Outcome == OutcomeInvalid {
			out = append(out, res)
		}
	}
	return out
}
