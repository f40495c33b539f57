package tui

import "github.com/charmbracelet/bubbles/key"

type listKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Sort     key.Binding
	Order    key.Binding
	Content  key.Binding
	Hashtags key.Binding
	Platform key.Binding
	Clear    key.Binding
	New      key.Binding
	Edit     key.Binding
	Delete   key.Binding
	Reload   key.Binding
	Quit     key.Binding
}

type formKeyMap struct {
	Next     key.Binding
	Prev     key.Binding
	Cycle    key.Binding
	CycleRev key.Binding
	Save     key.Binding
	Cancel   key.Binding
}

var listKeys = listKeyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Sort:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort field")),
	Order:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "order")),
	Content:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter content")),
	Hashtags: key.NewBinding(key.WithKeys("#"), key.WithHelp("#", "filter hashtags")),
	Platform: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "platform")),
	Clear:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear filters")),
	New:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
	Edit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "edit")),
	Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

var formKeys = formKeyMap{
	Next:     key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
	Prev:     key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "previous field")),
	Cycle:    key.NewBinding(key.WithKeys("right", " "), key.WithHelp("→", "next platform")),
	CycleRev: key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "previous platform")),
	Save:     key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
	Cancel:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
}

func helpLine(bindings ...key.Binding) string {
	out := ""
	for i, b := range bindings {
		if i > 0 {
			out += " · "
		}
		h := b.Help()
		out += h.Key + " " + h.Desc
	}
	return out
}
