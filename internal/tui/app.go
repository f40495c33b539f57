// Package tui is the operator front-end over the queue store. It shows every
// queued record in one sortable, filterable table and edits records in a form.
package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/AndreasDit/Contento/internal/logging"
	"github.com/AndreasDit/Contento/internal/models"
	"github.com/AndreasDit/Contento/internal/queue"
)

type screen int

const (
	screenList screen = iota
	screenForm
)

// filterTarget is the filter field the filter input currently edits.
type filterTarget int

const (
	filterNone filterTarget = iota
	filterContent
	filterHashtags
)

type recordsLoadedMsg struct {
	records []queue.Record
	err     error
}

type recordSavedMsg struct {
	filename string
	err      error
}

type recordDeletedMsg struct {
	relPath string
	err     error
}

// Option customizes an App.
type Option func(*App)

// WithClock replaces time.Now for default schedule values.
func WithClock(clock func() time.Time) Option {
	return func(a *App) {
		if clock != nil {
			a.now = clock
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// App is the bubbletea model.
type App struct {
	store  *queue.Store
	logger *slog.Logger
	now    func() time.Time

	screen  screen
	records []queue.Record
	visible []queue.Record
	cursor  int

	sortField  queue.SortField
	descending bool
	filter     queue.Filter
	platform   int // 0 is every platform, i > 0 is models.Platforms[i-1]

	filterInput  textinput.Model
	filterTarget filterTarget

	confirmDelete bool
	form          *postForm
	status        string
	err           error

	width  int
	height int
}

// NewApp creates the model. Records are loaded by Init.
func NewApp(store *queue.Store, opts ...Option) *App {
	input := textinput.New()
	input.Prompt = "filter> "
	input.Cursor.SetMode(cursor.CursorStatic)

	a := &App{
		store:       store,
		logger:      logging.NewNop(),
		now:         time.Now,
		sortField:   queue.SortByDatetime,
		filterInput: input,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.NewComponentLogger(a.logger, "tui")
	return a
}

// Run starts the program on the alternate screen and blocks until quit.
func Run(store *queue.Store, opts ...Option) error {
	p := tea.NewProgram(NewApp(store, opts...), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return a.loadRecords()
}

func (a *App) loadRecords() tea.Cmd {
	store := a.store
	return func() tea.Msg {
		records, err := store.Records()
		return recordsLoadedMsg{records: records, err: err}
	}
}

func (a *App) saveRecord(post *models.Post, origin string) tea.Cmd {
	store := a.store
	return func() tea.Msg {
		filename, err := store.Save(post)
		if err != nil {
			return recordSavedMsg{err: err}
		}
		// A platform change moves the record to the new queue.
		if origin != "" && origin != queue.RelPath(post.Platform, post.ID) {
			if err := store.Delete(origin); err != nil && !errors.Is(err, queue.ErrNotFound) {
				return recordSavedMsg{filename: filename, err: err}
			}
		}
		return recordSavedMsg{filename: filename}
	}
}

func (a *App) deleteRecord(relPath string) tea.Cmd {
	store := a.store
	return func() tea.Msg {
		return recordDeletedMsg{relPath: relPath, err: store.Delete(relPath)}
	}
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case recordsLoadedMsg:
		if msg.err != nil {
			a.err = msg.err
			a.logger.Warn("load records failed", logging.Error(msg.err))
			return a, nil
		}
		a.err = nil
		a.records = msg.records
		a.applyView()
		return a, nil

	case recordSavedMsg:
		if msg.err != nil {
			if a.form != nil {
				a.form.err = msg.err
			} else {
				a.err = msg.err
			}
			return a, nil
		}
		a.form = nil
		a.screen = screenList
		a.status = "Saved " + msg.filename
		return a, a.loadRecords()

	case recordDeletedMsg:
		a.confirmDelete = false
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		a.status = "Deleted " + msg.relPath
		return a, a.loadRecords()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.screen == screenForm {
			return a.updateForm(msg)
		}
		return a.updateList(msg)
	}
	return a, nil
}

func (a *App) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.filterTarget != filterNone {
		return a.updateFilterInput(msg)
	}

	if a.confirmDelete {
		a.confirmDelete = false
		if msg.String() == "y" {
			if rec, ok := a.selected(); ok {
				return a, a.deleteRecord(rec.RelPath)
			}
		}
		a.status = "Delete cancelled"
		return a, nil
	}

	switch {
	case key.Matches(msg, listKeys.Quit):
		return a, tea.Quit
	case key.Matches(msg, listKeys.Up):
		if a.cursor > 0 {
			a.cursor--
		}
	case key.Matches(msg, listKeys.Down):
		if a.cursor < len(a.visible)-1 {
			a.cursor++
		}
	case key.Matches(msg, listKeys.Sort):
		a.sortField = nextSortField(a.sortField)
		a.applyView()
	case key.Matches(msg, listKeys.Order):
		a.descending = !a.descending
		a.applyView()
	case key.Matches(msg, listKeys.Content):
		a.startFilter(filterContent, a.filter.Content)
	case key.Matches(msg, listKeys.Hashtags):
		a.startFilter(filterHashtags, a.filter.Hashtags)
	case key.Matches(msg, listKeys.Platform):
		a.platform = (a.platform + 1) % (len(models.Platforms) + 1)
		a.filter.Platform = ""
		if a.platform > 0 {
			a.filter.Platform = string(models.Platforms[a.platform-1])
		}
		a.applyView()
	case key.Matches(msg, listKeys.Clear):
		a.filter = queue.Filter{}
		a.platform = 0
		a.applyView()
	case key.Matches(msg, listKeys.New):
		id, err := a.store.GenerateUniqueID()
		if err != nil {
			a.err = err
			return a, nil
		}
		a.form = newPostForm(id, a.now())
		a.screen = screenForm
	case key.Matches(msg, listKeys.Edit):
		if rec, ok := a.selected(); ok {
			if rec.Broken() {
				a.err = fmt.Errorf("%w (press d to delete it)", rec.Err)
				return a, nil
			}
			a.form = editPostForm(rec.RelPath, rec.Post, a.now())
			a.screen = screenForm
		}
	case key.Matches(msg, listKeys.Delete):
		if rec, ok := a.selected(); ok {
			a.confirmDelete = true
			a.status = fmt.Sprintf("Delete %s? press y to confirm", rec.RelPath)
		}
	case key.Matches(msg, listKeys.Reload):
		a.status = "Reloading..."
		return a, a.loadRecords()
	}
	return a, nil
}

func (a *App) startFilter(target filterTarget, current string) {
	a.filterTarget = target
	a.filterInput.SetValue(current)
	a.filterInput.CursorEnd()
	a.filterInput.Focus()
}

func (a *App) updateFilterInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		a.filterTarget = filterNone
		a.filterInput.Blur()
		return a, nil
	}
	var cmd tea.Cmd
	a.filterInput, cmd = a.filterInput.Update(msg)
	switch a.filterTarget {
	case filterContent:
		a.filter.Content = a.filterInput.Value()
	case filterHashtags:
		a.filter.Hashtags = a.filterInput.Value()
	}
	a.applyView()
	return a, cmd
}

func (a *App) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, formKeys.Cancel):
		a.form = nil
		a.screen = screenList
		a.status = "Edit cancelled"
		return a, nil
	case key.Matches(msg, formKeys.Save):
		post, err := a.form.post()
		if err != nil {
			a.form.err = err
			return a, nil
		}
		a.form.err = nil
		return a, a.saveRecord(post, a.form.origin)
	}
	return a, a.form.update(msg)
}

// applyView recomputes the visible rows from records, filter and sort.
func (a *App) applyView() {
	visible := a.filter.Apply(a.records)
	queue.SortRecords(visible, a.sortField, a.descending)
	a.visible = visible
	if a.cursor >= len(a.visible) {
		a.cursor = len(a.visible) - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

func (a *App) selected() (queue.Record, bool) {
	if a.cursor < 0 || a.cursor >= len(a.visible) {
		return queue.Record{}, false
	}
	return a.visible[a.cursor], true
}

func nextSortField(current queue.SortField) queue.SortField {
	for i, f := range queue.SortFields {
		if f == current {
			return queue.SortFields[(i+1)%len(queue.SortFields)]
		}
	}
	return queue.SortFields[0]
}
