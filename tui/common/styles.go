package common

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("#3B82F6")
	muted  = lipgloss.Color("#6E738D")

	// AppTitleStyle styles the application title.
	AppTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Padding(1, 2, 0, 1)

	// TaglineStyle styles the text next to the title.
	TaglineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555")).
			Italic(true).
			MarginLeft(1)

	// AuthorStyle styles the post author name.
	AuthorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7DC4E4"))

	// VerifiedStyle marks verified authors.
	VerifiedStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true)

	// TimestampStyle styles timestamps and handles.
	TimestampStyle = lipgloss.NewStyle().
			Foreground(muted)

	// ContentStyle styles post text.
	ContentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CAD3F5"))

	// CountStyle styles engagement counters.
	CountStyle = lipgloss.NewStyle().
			Foreground(muted)

	// ActiveCountStyle styles counters the user contributed to.
	ActiveCountStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#ED8796")).
				Bold(true)

	// SelectedStyle highlights the selected post.
	SelectedStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1)

	// UnselectedStyle gives other posts a subtle border.
	UnselectedStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#45475A")).
			Padding(0, 1)

	// OwnBadgeStyle marks the user's own posts.
	OwnBadgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A6DA95")).
			Bold(true).
			MarginLeft(1)

	// NewPostsStyle styles the "N new posts" banner.
	NewPostsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1E1E2E")).
			Background(accent).
			Bold(true).
			Padding(0, 1)

	// StatusBarStyle styles the bottom status bar.
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(muted).
			Padding(1, 0, 0, 0)

	// ActionActiveStyle styles the highlighted entry of a menu.
	ActionActiveStyle = lipgloss.NewStyle().
				Foreground(accent).
				Bold(true).
				Padding(0, 1)

	// ActionInactiveStyle styles the other menu entries.
	ActionInactiveStyle = lipgloss.NewStyle().
				Foreground(muted).
				Padding(0, 1)

	// ConfirmStyle styles confirmation prompts.
	ConfirmStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ED8796")).
			Bold(true).
			Padding(0, 1)

	// ErrorStyle styles error messages.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ED8796")).
			Bold(true)

	// WarningStyle styles moderation warnings.
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EED49F")).
			Bold(true)

	// SuccessStyle styles success messages.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A6DA95")).
			Bold(true)
)
