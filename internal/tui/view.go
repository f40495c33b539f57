package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/AndreasDit/Contento/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#AAAAAA"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#3A3F58"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	labelStyle    = lipgloss.NewStyle().Width(12).Foreground(lipgloss.Color("#AAAAAA"))
	focusStyle    = lipgloss.NewStyle().Width(12).Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
)

const (
	colID       = 10
	colPlatform = 11
	colDatetime = 21
	colHashtags = 18
)

// View renders the current screen.
func (a *App) View() string {
	if a.screen == screenForm && a.form != nil {
		return a.viewForm()
	}
	return a.viewList()
}

func (a *App) viewList() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Contento · post queue"))
	b.WriteString("\n")

	order := "asc"
	if a.descending {
		order = "desc"
	}
	platform := "all"
	if a.filter.Platform != "" {
		platform = a.filter.Platform
	}
	summary := fmt.Sprintf("%d of %d records · sort %s %s · platform %s",
		len(a.visible), len(a.records), a.sortField, order, platform)
	if a.filter.Content != "" {
		summary += fmt.Sprintf(" · content %q", a.filter.Content)
	}
	if a.filter.Hashtags != "" {
		summary += fmt.Sprintf(" · hashtags %q", a.filter.Hashtags)
	}
	b.WriteString(mutedStyle.Render(summary))
	b.WriteString("\n")

	var rows []string
	rows = append(rows, headerStyle.Render(formatRow("ID", "PLATFORM", "DATETIME", "HASHTAGS", "CONTENT", a.contentWidth())))
	if len(a.visible) == 0 {
		rows = append(rows, mutedStyle.Render("No records. Press n to create one."))
	}
	for i, rec := range a.visible {
		content := rec.Post.Content
		if rec.Broken() {
			content = "malformed record"
		}
		line := formatRow(rec.Post.ID, rec.Post.Platform, rec.Post.DatetimeForPost, rec.Post.Hashtags, content, a.contentWidth())
		switch {
		case i == a.cursor:
			line = selectedStyle.Render(line)
		case rec.Broken():
			line = errorStyle.Render(line)
		}
		rows = append(rows, line)
	}
	b.WriteString(boxStyle.Render(strings.Join(rows, "\n")))
	b.WriteString("\n")

	if a.filterTarget != filterNone {
		b.WriteString(a.filterInput.View())
		b.WriteString("\n")
	}
	if a.err != nil {
		b.WriteString(errorStyle.Render("Error: " + a.err.Error()))
		b.WriteString("\n")
	} else if a.status != "" {
		b.WriteString(mutedStyle.Render(a.status))
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render(helpLine(listKeys.Sort, listKeys.Order, listKeys.Content, listKeys.Hashtags,
		listKeys.Platform, listKeys.New, listKeys.Edit, listKeys.Delete, listKeys.Reload, listKeys.Quit)))
	return b.String()
}

func (a *App) viewForm() string {
	f := a.form
	var b strings.Builder
	title := "New post"
	if f.origin != "" {
		title = "Edit " + f.origin
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	label := func(field formField, text string) string {
		if f.focus == field {
			return focusStyle.Render("› " + text)
		}
		return labelStyle.Render("  " + text)
	}

	var platforms []string
	for i, p := range models.Platforms {
		name := string(p)
		if i == f.platform {
			name = selectedStyle.Render(" " + name + " ")
		} else {
			name = mutedStyle.Render(" " + name + " ")
		}
		platforms = append(platforms, name)
	}

	lines := []string{
		lipgloss.JoinHorizontal(lipgloss.Top, label(fieldPlatform, "Platform"), strings.Join(platforms, "")),
		lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render("  ID"), mutedStyle.Render(f.id)),
		lipgloss.JoinHorizontal(lipgloss.Top, label(fieldContent, "Content"), f.content.View()),
		lipgloss.JoinHorizontal(lipgloss.Top, label(fieldHashtags, "Hashtags"), f.hashtags.View()),
		lipgloss.JoinHorizontal(lipgloss.Top, label(fieldDatetime, "Post at"), f.datetime.View()),
	}
	b.WriteString(boxStyle.Render(strings.Join(lines, "\n")))
	b.WriteString("\n")
	if f.err != nil {
		b.WriteString(errorStyle.Render(f.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render(helpLine(formKeys.Next, formKeys.Cycle, formKeys.Save, formKeys.Cancel)))
	return b.String()
}

func (a *App) contentWidth() int {
	width := a.width - colID - colPlatform - colDatetime - colHashtags - 8
	if width < 20 {
		return 20
	}
	return width
}

func formatRow(id, platform, datetime, hashtags, content string, contentWidth int) string {
	return pad(id, colID) + pad(platform, colPlatform) + pad(datetime, colDatetime) +
		pad(hashtags, colHashtags) + clip(content, contentWidth)
}

func pad(s string, width int) string {
	s = clip(s, width-1)
	gap := width - lipgloss.Width(s)
	if gap < 1 {
		gap = 1
	}
	return s + strings.Repeat(" ", gap)
}

// clip shortens s to width cells on one line.
func clip(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 1 {
		return string(runes[:width])
	}
	return string(runes[:width-1]) + "…"
}
