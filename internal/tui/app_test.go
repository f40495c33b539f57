package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/AndreasDit/Contento/internal/models"
	"github.com/AndreasDit/Contento/internal/queue"
)

var testNow = time.Date(2024, time.June, 1, 9, 30, 0, 0, time.Local)

func newTestApp(t *testing.T) (*App, *queue.Store) {
	t.Helper()
	store, err := queue.Open(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	for _, p := range []models.Post{
		{Platform: "twitter", ID: "30000000", Content: "Launch day", Hashtags: "#go", DatetimeForPost: "2024-03-01 10:00:00"},
		{Platform: "linkedin", ID: "10000000", Content: "Hiring", Hashtags: "#jobs", DatetimeForPost: "2024-01-15 08:30:00"},
		{Platform: "facebook", ID: "20000000", Content: "launch recap", Hashtags: "#recap", DatetimeForPost: "2024-02-20 18:00:00"},
	} {
		if _, err := store.Save(&p); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	app := NewApp(store, WithClock(func() time.Time { return testNow }))
	app = runCmd(t, app, app.Init())
	return app, store
}

// send delivers msg and feeds back the results of store commands. Other
// commands, such as tea.Quit, are not executed.
func send(t *testing.T, app *App, msg tea.Msg) (*App, tea.Cmd) {
	t.Helper()
	model, cmd := app.Update(msg)
	app = model.(*App)
	return runCmd(t, app, cmd), cmd
}

func runCmd(t *testing.T, app *App, cmd tea.Cmd) *App {
	t.Helper()
	for cmd != nil {
		msg := cmd()
		switch msg.(type) {
		case recordsLoadedMsg, recordSavedMsg, recordDeletedMsg:
			var model tea.Model
			model, cmd = app.Update(msg)
			app = model.(*App)
		default:
			cmd = nil
		}
	}
	return app
}

func keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, app *App, msgs ...tea.Msg) *App {
	t.Helper()
	for _, msg := range msgs {
		app, _ = send(t, app, msg)
	}
	return app
}

func visibleIDs(app *App) []string {
	out := make([]string, len(app.visible))
	for i, rec := range app.visible {
		out[i] = rec.Post.ID
	}
	return out
}

func TestInitLoadsRecordsSortedByDatetime(t *testing.T) {
	app, _ := newTestApp(t)
	if got := strings.Join(visibleIDs(app), ","); got != "10000000,20000000,30000000" {
		t.Fatalf("unexpected initial order %s", got)
	}

	app = press(t, app, keys("o"))
	if got := strings.Join(visibleIDs(app), ","); got != "30000000,20000000,10000000" {
		t.Fatalf("unexpected descending order %s", got)
	}

	app = press(t, app, keys("s"))
	if app.sortField != queue.SortByPlatform {
		t.Fatalf("expected platform sort, got %s", app.sortField)
	}
	if got := strings.Join(visibleIDs(app), ","); got != "30000000,10000000,20000000" {
		t.Fatalf("unexpected platform desc order %s", got)
	}
}

func TestContentFilterIsLiveAndCaseInsensitive(t *testing.T) {
	app, _ := newTestApp(t)

	app = press(t, app, keys("/"), keys("LAUNCH"))
	if app.filterTarget != filterContent {
		t.Fatal("expected content filter to be active")
	}
	if got := strings.Join(visibleIDs(app), ","); got != "20000000,30000000" {
		t.Fatalf("unexpected filtered rows %s", got)
	}

	app = press(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	if app.filterTarget != filterNone || app.filter.Content != "LAUNCH" {
		t.Fatalf("filter should stay applied after enter: %+v", app.filter)
	}

	app = press(t, app, keys("c"))
	if len(app.visible) != 3 {
		t.Fatalf("clear should restore all rows, got %d", len(app.visible))
	}
}

func TestPlatformFilterCycles(t *testing.T) {
	app, _ := newTestApp(t)

	app = press(t, app, keys("p"))
	if app.filter.Platform != "twitter" || strings.Join(visibleIDs(app), ",") != "30000000" {
		t.Fatalf("expected twitter rows, got %v", visibleIDs(app))
	}
	for i := 0; i < len(models.Platforms); i++ {
		app = press(t, app, keys("p"))
	}
	if app.filter.Platform != "" || len(app.visible) != 3 {
		t.Fatalf("expected to cycle back to all platforms, got %q", app.filter.Platform)
	}
}

func TestCreateRecordThroughForm(t *testing.T) {
	app, store := newTestApp(t)

	app = press(t, app, keys("n"))
	if app.screen != screenForm || app.form == nil {
		t.Fatal("expected form screen")
	}
	id := app.form.id
	if !models.ValidID(id) {
		t.Fatalf("expected generated id, got %q", id)
	}
	if got := app.form.datetime.Value(); got != "2024-06-01 09:30:00" {
		t.Fatalf("expected datetime to default to now, got %q", got)
	}

	app = press(t, app,
		tea.KeyMsg{Type: tea.KeyRight},
		tea.KeyMsg{Type: tea.KeyTab}, keys("Hello"),
		tea.KeyMsg{Type: tea.KeyTab}, keys("#world"),
		tea.KeyMsg{Type: tea.KeyCtrlS},
	)
	if app.screen != screenList {
		t.Fatalf("expected list after save, form error: %v", app.form.err)
	}
	if !strings.Contains(app.status, id+".json") {
		t.Fatalf("unexpected status %q", app.status)
	}

	post, err := store.Read(queue.RelPath("facebook", id))
	if err != nil {
		t.Fatalf("read saved record: %v", err)
	}
	if post.Content != "Hello" || post.Hashtags != "#world" || post.DatetimeForPost != "2024-06-01 09:30:00" {
		t.Fatalf("unexpected saved record %+v", post)
	}
	if len(app.records) != 4 {
		t.Fatalf("expected reload after save, got %d records", len(app.records))
	}
}

func TestFormShowsValidationErrorsInline(t *testing.T) {
	app, store := newTestApp(t)

	app = press(t, app, keys("n"))
	app.form.datetime.SetValue("next tuesday")
	app = press(t, app, tea.KeyMsg{Type: tea.KeyCtrlS})

	if app.screen != screenForm || app.form.err == nil {
		t.Fatal("expected to stay on form with an error")
	}
	if !strings.Contains(app.View(), "datetime_for_post") {
		t.Fatalf("expected inline error in view:\n%s", app.View())
	}
	entries, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("invalid form must not write, got %d entries", len(entries))
	}

	app = press(t, app, tea.KeyMsg{Type: tea.KeyEsc})
	if app.screen != screenList {
		t.Fatal("esc should return to the list")
	}
}

func TestEditChangingPlatformMovesRecord(t *testing.T) {
	app, store := newTestApp(t)

	// First row in datetime order is the linkedin record.
	app = press(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	if app.form == nil || app.form.id != "10000000" || app.form.Platform() != models.PlatformLinkedIn {
		t.Fatalf("expected form for 10000000, got %+v", app.form)
	}

	app = press(t, app, tea.KeyMsg{Type: tea.KeyRight}, tea.KeyMsg{Type: tea.KeyCtrlS})
	if app.screen != screenList {
		t.Fatalf("expected list after save, form error: %v", app.form.err)
	}
	if _, err := store.Read(queue.RelPath("twitter", "10000000")); err != nil {
		t.Fatalf("expected record in twitter queue: %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.BaseDir(), queue.RelPath("linkedin", "10000000"))); !os.IsNotExist(err) {
		t.Fatalf("expected old linkedin record to be removed, stat err=%v", err)
	}
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	app, store := newTestApp(t)

	app = press(t, app, keys("d"), keys("n"))
	if len(app.records) != 3 {
		t.Fatal("delete without confirmation must keep the record")
	}

	app = press(t, app, keys("d"), keys("y"))
	if len(app.records) != 2 {
		t.Fatalf("expected 2 records after delete, got %d", len(app.records))
	}
	if _, err := store.Read(queue.RelPath("linkedin", "10000000")); err == nil {
		t.Fatal("expected deleted record to be gone")
	}
}

func TestQuitAndView(t *testing.T) {
	app, _ := newTestApp(t)
	app = press(t, app, tea.WindowSizeMsg{Width: 120, Height: 40})

	view := app.View()
	for _, want := range []string{"Contento", "3 of 3 records", "Launch day", "#jobs"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}

	_, cmd := send(t, app, keys("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}

func TestMalformedRecordIsListedAndDeletable(t *testing.T) {
	app, store := newTestApp(t)
	broken := filepath.Join(store.QueueDir(models.PlatformTwitter), "99999999.json")
	if err := os.WriteFile(broken, []byte("{"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	app = press(t, app, keys("r"))
	if app.err != nil || len(app.records) != 4 {
		t.Fatalf("expected the listing to load with the broken row, err=%v records=%d", app.err, len(app.records))
	}
	if !strings.Contains(app.View(), "malformed record") {
		t.Fatalf("expected malformed row in view:\n%s", app.View())
	}
	// Empty datetime sorts the broken row first.
	if rec, ok := app.selected(); !ok || !rec.Broken() {
		t.Fatalf("expected cursor on the broken row, got %+v", rec)
	}

	app = press(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	if app.screen != screenList || app.err == nil || !strings.Contains(app.View(), "99999999.json") {
		t.Fatalf("expected parse error naming the file, view:\n%s", app.View())
	}

	app = press(t, app, keys("d"), keys("y"))
	if _, err := os.Stat(broken); !os.IsNotExist(err) {
		t.Fatalf("expected broken record removed, stat err=%v", err)
	}
	if len(app.records) != 3 {
		t.Fatalf("expected 3 records after delete, got %d", len(app.records))
	}
}
