package common

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines shared key bindings across all views.
type KeyMap struct {
	Quit       key.Binding
	Refresh    key.Binding // r: refetch from the top
	ShowNew    key.Binding // n: merge buffered new posts
	Compose    key.Binding // p: compose in the preferred mode
	ComposeAlt key.Binding // P: compose in the other mode
	Up         key.Binding
	Down       key.Binding
	Like       key.Binding
	Bookmark   key.Binding
	Repost     key.Binding
	Follow     key.Binding // f: follow the selected post's author
	Comment    key.Binding
	Delete     key.Binding // d: delete own post (asks first)
	Report     key.Binding
	Open       key.Binding // o: open attached media
	Vote       key.Binding // 1-9: vote for a poll option
	Profile    key.Binding // u: the selected author's profile
	Trending   key.Binding // t: pick a trending hashtag feed
	Home       key.Binding // g: back to everyone's posts
	Confirm    key.Binding
	Cancel     key.Binding
	ToggleHelp key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		ShowNew: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "show new posts"),
		),
		Compose: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "post"),
		),
		ComposeAlt: key.NewBinding(
			key.WithKeys("P"),
			key.WithHelp("P", "post (other mode)"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Like: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "like"),
		),
		Bookmark: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "bookmark"),
		),
		Repost: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "repost"),
		),
		Follow: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "follow"),
		),
		Comment: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "comment"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Report: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "report"),
		),
		Open: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open media"),
		),
		Vote: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "vote"),
		),
		Profile: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "profile"),
		),
		Trending: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "trending tags"),
		),
		Home: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "everyone"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter", "y"),
			key.WithHelp("enter", "confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		ToggleHelp: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "keys"),
		),
	}
}

// ShortHelp lists the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Like, k.Comment, k.Compose, k.Refresh, k.ToggleHelp, k.Quit}
}

// FullHelp lists every binding, grouped for the help overlay.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Refresh, k.ShowNew},
		{k.Like, k.Bookmark, k.Repost, k.Follow, k.Vote},
		{k.Comment, k.Compose, k.ComposeAlt, k.Open},
		{k.Profile, k.Trending, k.Home},
		{k.Delete, k.Report, k.ToggleHelp, k.Quit},
	}
}
