package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/AndreasDit/Contento/internal/models"
)

type formField int

const (
	fieldPlatform formField = iota
	fieldContent
	fieldHashtags
	fieldDatetime
	fieldCount
)

// postForm edits one record. origin is the relative path of the record being
// edited, empty for a new one.
type postForm struct {
	origin   string
	platform int
	id       string
	content  textarea.Model
	hashtags textinput.Model
	datetime textinput.Model
	focus    formField
	err      error
}

func newPostForm(id string, now time.Time) *postForm {
	f := &postForm{id: id}

	f.content = textarea.New()
	f.content.Placeholder = "What do you want to post?"
	f.content.ShowLineNumbers = false
	f.content.SetHeight(4)
	f.content.Cursor.SetMode(cursor.CursorStatic)

	f.hashtags = textinput.New()
	f.hashtags.Placeholder = "#tags"
	f.hashtags.Cursor.SetMode(cursor.CursorStatic)

	f.datetime = textinput.New()
	f.datetime.Placeholder = models.TimestampLayout
	f.datetime.CharLimit = len(models.TimestampLayout)
	f.datetime.Cursor.SetMode(cursor.CursorStatic)
	f.datetime.SetValue(models.FormatTimestamp(now))

	f.setFocus(fieldPlatform)
	return f
}

// editPostForm loads an existing record. An unknown platform falls back to
// twitter so the form always has a valid selection.
func editPostForm(relPath string, post models.Post, now time.Time) *postForm {
	f := newPostForm(post.ID, now)
	f.origin = relPath
	f.platform = platformIndex(post.Platform)
	f.content.SetValue(post.Content)
	f.hashtags.SetValue(post.Hashtags)
	f.datetime.SetValue(post.DatetimeForPost)
	return f
}

func platformIndex(name string) int {
	for i, p := range models.Platforms {
		if string(p) == strings.ToLower(strings.TrimSpace(name)) {
			return i
		}
	}
	return 0
}

func (f *postForm) Platform() models.Platform {
	return models.Platforms[f.platform]
}

func (f *postForm) setFocus(field formField) {
	f.focus = field
	f.content.Blur()
	f.hashtags.Blur()
	f.datetime.Blur()
	switch field {
	case fieldContent:
		f.content.Focus()
	case fieldHashtags:
		f.hashtags.Focus()
	case fieldDatetime:
		f.datetime.Focus()
	}
}

// update handles keys that stay inside the form. Save and cancel are handled
// by the App.
func (f *postForm) update(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, formKeys.Next) && !(f.focus == fieldContent && msg.String() == "down"):
		f.setFocus((f.focus + 1) % fieldCount)
		return nil
	case key.Matches(msg, formKeys.Prev) && !(f.focus == fieldContent && msg.String() == "up"):
		f.setFocus((f.focus + fieldCount - 1) % fieldCount)
		return nil
	}

	var cmd tea.Cmd
	switch f.focus {
	case fieldPlatform:
		switch {
		case key.Matches(msg, formKeys.Cycle):
			f.platform = (f.platform + 1) % len(models.Platforms)
		case key.Matches(msg, formKeys.CycleRev):
			f.platform = (f.platform + len(models.Platforms) - 1) % len(models.Platforms)
		}
	case fieldContent:
		f.content, cmd = f.content.Update(msg)
	case fieldHashtags:
		f.hashtags, cmd = f.hashtags.Update(msg)
	case fieldDatetime:
		f.datetime, cmd = f.datetime.Update(msg)
	}
	return cmd
}

// post validates the inputs and builds the record to save.
func (f *postForm) post() (*models.Post, error) {
	datetime := strings.TrimSpace(f.datetime.Value())
	if datetime == "" {
		return nil, fmt.Errorf("datetime_for_post is required")
	}
	if _, err := models.ParseTimestamp(datetime); err != nil {
		return nil, err
	}
	post := &models.Post{
		Platform:        string(f.Platform()),
		ID:              f.id,
		Content:         f.content.Value(),
		Hashtags:        f.hashtags.Value(),
		DatetimeForPost: datetime,
	}
	if err := post.Validate(); err != nil {
		return nil, err
	}
	return post, nil
}
