package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the list view bindings.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	NextPage key.Binding
	PrevPage key.Binding
	Add      key.Binding
	Status   key.Binding
	Priority key.Binding
	Delete   key.Binding
	Restore  key.Binding
	Filter   key.Binding
	Sort     key.Binding
	Order    key.Binding
	Search   key.Binding
	Deleted  key.Binding
	Refresh  key.Binding
	Help     key.Binding
	Quit     key.Binding
	Submit   key.Binding
	Cancel   key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		NextPage: key.NewBinding(key.WithKeys("right", "l", "n"), key.WithHelp("→/n", "next page")),
		PrevPage: key.NewBinding(key.WithKeys("left", "h", "b"), key.WithHelp("←/b", "prev page")),
		Add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Status:   key.NewBinding(key.WithKeys(" ", "s"), key.WithHelp("s", "advance status")),
		Priority: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "cycle priority")),
		Delete:   key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		Restore:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restore")),
		Filter:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "status filter")),
		Sort:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "sort field")),
		Order:    key.NewBinding(key.WithKeys("O"), key.WithHelp("O", "sort order")),
		Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Deleted:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "show deleted")),
		Refresh:  key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "refresh")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		Cancel:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Add, k.Status, k.Delete, k.Filter, k.Search, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NextPage, k.PrevPage},
		{k.Add, k.Status, k.Priority, k.Delete, k.Restore},
		{k.Filter, k.Sort, k.Order, k.Search, k.Deleted},
		{k.Refresh, k.Help, k.Quit},
	}
}
