package compose

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/thetruth/truthterm/app"
	"github.com/thetruth/truthterm/domain"
	"github.com/thetruth/truthterm/infra/editor"
)

// --- Mode ---

// Mode selects how the draft is written.
type Mode int

const (
	InlineMode Mode = iota
	EditorMode
)

func (m Mode) String() string {
	if m == EditorMode {
		return "editor"
	}
	return "inline"
}

// Other returns the mode that is not m.
func (m Mode) Other() Mode {
	if m == EditorMode {
		return InlineMode
	}
	return EditorMode
}

// ParseMode reads a saved mode name. Unknown names fall back to InlineMode.
func ParseMode(s string) Mode {
	if s == "editor" {
		return EditorMode
	}
	return InlineMode
}

// --- Stage ---

type stage int

const (
	stageEditing     stage = iota
	stageChecking          // waiting for the moderator
	stageConfirmWarn       // moderator warned, next submit publishes anyway
	stageSubmitting        // uploading and publishing
)

// --- Messages ---

// DoneMsg is sent when composing ends. Cancelled is set when the user backed
// out; otherwise Post holds the new post, or CommentOn the commented post ID.
type DoneMsg struct {
	Post      domain.Post
	CommentOn string
	Cancelled bool
	Err       error
}

// editorFinishedMsg is sent after the external editor exits.
type editorFinishedMsg struct {
	tmpPath string
	err     error
}

type verdictMsg struct {
	seq     int
	verdict app.Verdict
}

type publishedMsg struct {
	seq  int
	post domain.Post
	err  error
}

// --- Model ---

// Deps are the services the compose view publishes through.
type Deps struct {
	Posts     app.PostService
	Media     app.MediaService
	Moderator app.Moderator
	Editor    *editor.EnvEditor
	Log       *zap.Logger
}

// Model holds the state for the compose view.
type Model struct {
	deps  Deps
	mode  Mode
	stage stage

	// Comment target; empty when writing a new post.
	replyTo     string
	replyAuthor string

	textarea   textarea.Model
	media      textinput.Model
	mediaFocus bool

	content string // draft handed back by the editor
	tmpPath string // temp file path for editor mode
	seq     int    // guards moderator and publish results after a resubmit

	status  string
	warning string
	err     error

	submit      key.Binding
	cancel      key.Binding
	reopen      key.Binding
	switchField key.Binding
}

// New creates a compose model for a new post.
func New(deps Deps, mode Mode) Model {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	ta := textarea.New()
	ta.Placeholder = "What's on your mind?"
	ta.CharLimit = domain.MaxPostLength
	ta.ShowLineNumbers = false
	ta.SetWidth(72)
	ta.SetHeight(6)
	ta.Focus()

	ti := textinput.New()
	ti.Placeholder = "optional: path to an image, video or audio file"
	ti.Prompt = "📎 "
	ti.Width = 60

	m := Model{
		deps:     deps,
		mode:     mode,
		textarea: ta,
		media:    ti,
		submit: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "post"),
		),
		cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		reopen: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit again"),
		),
		switchField: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "media"),
		),
	}
	if mode == EditorMode {
		m.status = "Opening editor..."
	}
	return m
}

// NewComment creates a compose model for a comment on post.
func NewComment(deps Deps, mode Mode, post domain.Post) Model {
	m := New(deps, mode)
	m.replyTo = post.ID
	m.replyAuthor = post.Author.Username
	m.textarea.Placeholder = "Write a comment..."
	return m
}

// Mode returns the active compose mode.
func (m Model) Mode() Mode { return m.mode }

// Busy reports whether a submit is in flight.
func (m Model) Busy() bool {
	return m.stage == stageChecking || m.stage == stageSubmitting
}

func (m Model) isComment() bool { return m.replyTo != "" }

// Init returns the initial command for the active mode.
func (m *Model) Init() tea.Cmd {
	if m.mode == EditorMode {
		return m.launchEditor()
	}
	return textarea.Blink
}

// launchEditor prepares the editor command and uses tea.ExecProcess so Bubble
// Tea releases the terminal while the editor runs.
func (m *Model) launchEditor() tea.Cmd {
	if m.deps.Editor == nil {
		return done(DoneMsg{Err: errors.New("no editor configured")})
	}
	note := ""
	if m.isComment() {
		note = "Commenting on @" + m.replyAuthor
	}
	cmd, tmpPath, err := m.deps.Editor.Cmd(m.content, note)
	if err != nil {
		return done(DoneMsg{Err: fmt.Errorf("preparing editor: %w", err)})
	}
	m.tmpPath = tmpPath
	m.status = "Editing in $EDITOR..."

	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return editorFinishedMsg{tmpPath: tmpPath, err: err}
	})
}

// Update handles messages for the compose view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {

	// --- Editor mode messages ---

	case editorFinishedMsg:
		if msg.err != nil {
			return m, done(DoneMsg{Err: fmt.Errorf("editor: %w", msg.err)})
		}
		content, err := m.deps.Editor.ReadContent(msg.tmpPath)
		if errors.Is(err, editor.ErrUnchanged) {
			return m, done(DoneMsg{Cancelled: true})
		}
		if err != nil {
			return m, done(DoneMsg{Err: err})
		}
		m.content = content
		m.status = ""
		return m.startSubmit()

	// --- Submit pipeline ---

	case verdictMsg:
		if msg.seq != m.seq || m.stage != stageChecking {
			return m, nil
		}
		return m.handleVerdict(msg.verdict)

	case publishedMsg:
		if msg.seq != m.seq || m.stage != stageSubmitting {
			return m, nil
		}
		if msg.err != nil {
			m.deps.Log.Warn("publish failed", zap.Bool("comment", m.isComment()), zap.Error(msg.err))
			m.stage = stageEditing
			m.err = msg.err
			m.status = ""
			return m, nil
		}
		if m.isComment() {
			return m, done(DoneMsg{CommentOn: m.replyTo})
		}
		return m, done(DoneMsg{Post: msg.post})

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Pass through any remaining messages (cursor blink) to the focused input.
	if m.mode == InlineMode {
		return m.updateInputs(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.Busy() {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.cancel):
		return m, done(DoneMsg{Cancelled: true})

	case key.Matches(msg, m.submit):
		if m.stage == stageConfirmWarn {
			return m.publish()
		}
		return m.startSubmit()
	}

	if m.mode == EditorMode {
		if key.Matches(msg, m.reopen) {
			m.stage = stageEditing
			m.warning = ""
			m.err = nil
			return m, m.launchEditor()
		}
		return m, nil
	}

	if key.Matches(msg, m.switchField) && !m.isComment() {
		m.mediaFocus = !m.mediaFocus
		if m.mediaFocus {
			m.textarea.Blur()
			return m, m.media.Focus()
		}
		m.media.Blur()
		return m, m.textarea.Focus()
	}

	// Editing the draft drops a pending warning confirmation.
	if m.stage == stageConfirmWarn {
		m.stage = stageEditing
		m.warning = ""
	}
	m.err = nil
	return m.updateInputs(msg)
}

func (m Model) updateInputs(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.mediaFocus {
		m.media, cmd = m.media.Update(msg)
	} else {
		m.textarea, cmd = m.textarea.Update(msg)
	}
	return m, cmd
}

// done wraps a DoneMsg into a tea.Cmd for immediate delivery.
func done(msg DoneMsg) tea.Cmd {
	return func() tea.Msg { return msg }
}
