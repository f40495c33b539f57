// Package schedule assigns publish slots to queued posts that have none.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/AndreasDit/Contento/internal/logging"
	"github.com/AndreasDit/Contento/internal/models"
	"github.com/AndreasDit/Contento/internal/queue"
)

// Config describes the slot grid.
type Config struct {
	PostsPerDay    int
	PreferredTimes []string
	StartDate      time.Time
	Timezone       string
	// Platform limits planning to one queue. Empty plans every queue.
	Platform string
}

// Assignment is one planned slot.
type Assignment struct {
	RelPath         string
	PostID          string
	Platform        string
	DatetimeForPost string
}

// Planner fills datetime_for_post for unscheduled records in a queue store.
type Planner struct {
	store  *queue.Store
	logger *slog.Logger
	clock  func() time.Time
}

// Option customizes a Planner.
type Option func(*Planner)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(p *Planner) {
		if clock != nil {
			p.clock = clock
		}
	}
}

func NewPlanner(store *queue.Store, opts ...Option) *Planner {
	p := &Planner{store: store, logger: logging.NewNop(), clock: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "schedule")
	return p
}

// Plan computes slots for every record with an empty datetime_for_post without
// writing anything. Slots at or before now are skipped so a planned record is
// never due immediately.
func (p *Planner) Plan(cfg Config) ([]Assignment, error) {
	times, err := preferredTimes(cfg)
	if err != nil {
		return nil, err
	}
	location := time.Local
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		location, err = time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("failed to load timezone %q: %w", tz, err)
		}
	}
	var platform models.Platform
	if cfg.Platform != "" {
		platform, err = models.ParsePlatform(cfg.Platform)
		if err != nil {
			return nil, err
		}
	}

	records, err := p.store.Records()
	if err != nil {
		return nil, fmt.Errorf("failed to read queue: %w", err)
	}
	pending := make([]queue.Record, 0, len(records))
	for _, rec := range records {
		if rec.Broken() {
			p.logger.Warn("skipping malformed record", logging.String("path", rec.RelPath))
			continue
		}
		if strings.TrimSpace(rec.Post.DatetimeForPost) != "" {
			continue
		}
		if platform != "" && rec.Post.Platform != string(platform) {
			continue
		}
		pending = append(pending, rec)
	}
	sort.SliceStable(pending, func(i, j int) bool { return pending[i].RelPath < pending[j].RelPath })

	now := p.clock().In(location)
	start := cfg.StartDate
	if start.IsZero() {
		start = now
	}
	currentDate := start.In(location)
	slot := 0

	assignments := make([]Assignment, 0, len(pending))
	for _, rec := range pending {
		var at time.Time
		for {
			at = slotTime(currentDate, times[slot], location)
			slot++
			if slot >= len(times) {
				slot = 0
				currentDate = currentDate.AddDate(0, 0, 1)
			}
			if at.After(now) {
				break
			}
		}
		assignments = append(assignments, Assignment{
			RelPath:         rec.RelPath,
			PostID:          rec.Post.ID,
			Platform:        rec.Post.Platform,
			DatetimeForPost: models.FormatTimestamp(at.In(time.Local)),
		})
	}
	return assignments, nil
}

// Apply plans and saves every assignment. It returns the assignments that were
// written; a failed save stops the run.
func (p *Planner) Apply(ctx context.Context, cfg Config) ([]Assignment, error) {
	planned, err := p.Plan(cfg)
	if err != nil {
		return nil, err
	}
	written := make([]Assignment, 0, len(planned))
	for _, a := range planned {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		post, err := p.store.Read(a.RelPath)
		if err != nil {
			return written, fmt.Errorf("failed to reread %s: %w", a.RelPath, err)
		}
		post.DatetimeForPost = a.DatetimeForPost
		if _, err := p.store.Save(post); err != nil {
			return written, fmt.Errorf("failed to schedule %s: %w", a.RelPath, err)
		}
		p.logger.Info("post scheduled",
			logging.String("id", a.PostID),
			logging.String("platform", a.Platform),
			logging.String("datetime_for_post", a.DatetimeForPost),
		)
		written = append(written, a)
	}
	return written, nil
}

func preferredTimes(cfg Config) ([]string, error) {
	times := cfg.PreferredTimes
	if len(times) == 0 {
		times = DefaultTimes(cfg.PostsPerDay)
	}
	out := make([]string, 0, len(times))
	for _, t := range times {
		t = strings.TrimSpace(t)
		if _, err := time.Parse("15:04", t); err != nil {
			return nil, fmt.Errorf("invalid time format %q: want HH:MM", t)
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, errors.New("at least one preferred time is required")
	}
	sort.Strings(out)
	return out, nil
}

func slotTime(date time.Time, clock string, location *time.Location) time.Time {
	parsed, _ := time.Parse("15:04", clock)
	return time.Date(date.Year(), date.Month(), date.Day(), parsed.Hour(), parsed.Minute(), 0, 0, location)
}

// DefaultTimes returns evenly spread daytime slots for postsPerDay.
func DefaultTimes(postsPerDay int) []string {
	switch postsPerDay {
	case 1:
		return []string{"09:00"}
	case 2:
		return []string{"09:00", "15:00"}
	case 4:
		return []string{"09:00", "12:00", "15:00", "18:00"}
	default:
		return []string{"09:00", "13:00", "17:00"}
	}
}
