package schedule

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AndreasDit/Contento/internal/models"
	"github.com/AndreasDit/Contento/internal/queue"
)

func newTestStore(t *testing.T, posts ...models.Post) *queue.Store {
	t.Helper()
	store, err := queue.Open(t.TempDir())
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	for i := range posts {
		if _, err := store.Save(&posts[i]); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	return store
}

func fixedClock() time.Time {
	return time.Date(2024, 6, 1, 10, 0, 0, 0, time.Local)
}

func TestPlanSkipsPastSlotsAndRollsOverDays(t *testing.T) {
	store := newTestStore(t,
		models.Post{Platform: "twitter", ID: "10000001", Content: "a"},
		models.Post{Platform: "twitter", ID: "10000002", Content: "b"},
		models.Post{Platform: "twitter", ID: "10000003", Content: "c"},
		models.Post{Platform: "twitter", ID: "10000004", Content: "done", DatetimeForPost: "2024-01-01 00:00:00"},
	)
	planner := NewPlanner(store, WithClock(fixedClock))

	got, err := planner.Plan(Config{PreferredTimes: []string{"15:00", "09:00"}})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	want := []string{"2024-06-01 15:00:00", "2024-06-02 09:00:00", "2024-06-02 15:00:00"}
	if len(got) != len(want) {
		t.Fatalf("expected %d assignments, got %+v", len(want), got)
	}
	for i, a := range got {
		if a.DatetimeForPost != want[i] {
			t.Fatalf("assignment %d: expected %s, got %s", i, want[i], a.DatetimeForPost)
		}
	}
	if got[0].PostID != "10000001" {
		t.Fatalf("expected records in path order, got %+v", got)
	}

	post, err := store.Read(queue.RelPath("twitter", "10000001"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if post.DatetimeForPost != "" {
		t.Fatal("Plan must not write records")
	}
}

func TestApplyWritesSlotsForOnePlatform(t *testing.T) {
	store := newTestStore(t,
		models.Post{Platform: "twitter", ID: "10000001", Content: "a"},
		models.Post{Platform: "linkedin", ID: "10000002", Content: "b"},
	)
	planner := NewPlanner(store, WithClock(fixedClock))

	written, err := planner.Apply(context.Background(), Config{
		PostsPerDay: 1,
		StartDate:   time.Date(2024, 7, 1, 0, 0, 0, 0, time.Local),
		Platform:    "LinkedIn",
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(written) != 1 || written[0].Platform != "linkedin" {
		t.Fatalf("unexpected assignments %+v", written)
	}

	post, err := store.Read(queue.RelPath("linkedin", "10000002"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if post.DatetimeForPost != "2024-07-01 09:00:00" {
		t.Fatalf("unexpected slot %q", post.DatetimeForPost)
	}
	other, err := store.Read(queue.RelPath("twitter", "10000001"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if other.DatetimeForPost != "" {
		t.Fatal("other platforms must stay unscheduled")
	}
}

func TestPlanSkipsMalformedRecords(t *testing.T) {
	store := newTestStore(t, models.Post{Platform: "twitter", ID: "10000002", Content: "ok"})
	if err := os.WriteFile(filepath.Join(store.QueueDir(models.PlatformTwitter), "10000001.json"), []byte("{oops"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	planner := NewPlanner(store, WithClock(fixedClock))

	got, err := planner.Plan(Config{PreferredTimes: []string{"15:00"}})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(got) != 1 || got[0].PostID != "10000002" {
		t.Fatalf("expected only the valid record to be planned, got %+v", got)
	}
}

func TestPlanRejectsBadInput(t *testing.T) {
	planner := NewPlanner(newTestStore(t), WithClock(fixedClock))

	for _, cfg := range []Config{
		{PreferredTimes: []string{"9am"}},
		{Timezone: "Mars/Olympus"},
		{Platform: "myspace"},
	} {
		if _, err := planner.Plan(cfg); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
}

func TestDefaultTimes(t *testing.T) {
	if got := DefaultTimes(2); len(got) != 2 || got[1] != "15:00" {
		t.Fatalf("unexpected defaults %v", got)
	}
	if got := DefaultTimes(0); len(got) != 3 {
		t.Fatalf("expected three fallback slots, got %v", got)
	}
}
