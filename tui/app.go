package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/thetruth/truthterm/app"
	"github.com/thetruth/truthterm/domain"
	"github.com/thetruth/truthterm/infra/config"
	"github.com/thetruth/truthterm/infra/editor"
	"github.com/thetruth/truthterm/tui/common"
	"github.com/thetruth/truthterm/tui/compose"
	"github.com/thetruth/truthterm/tui/feed"
)

// Deps holds all dependencies the TUI needs. Plain struct, not a DI container.
type Deps struct {
	Timeline     app.TimelineService
	Posts        app.PostService
	Interactions app.InteractionService
	Media        app.MediaService
	Moderator    app.Moderator
	Changes      app.ChangeFeed
	Profiles     app.ProfileService
	Hashtags     app.HashtagService
	Account      app.AccountService
	Editor       *editor.EnvEditor
	Log          *zap.Logger

	User        domain.User
	ComposeMode compose.Mode
	StatePath   string // where the compose mode preference is saved
	PageSize    int
}

type activeView int

const (
	feedView activeView = iota
	composeView
)

const subscribeTimeout = 15 * time.Second

// --- Messages ---

type notificationMsg struct{ n domain.Notification }

type notificationsSubscribedMsg struct{ sub app.Subscription }

type notificationsErrorMsg struct{ err error }

type notificationsUnavailableMsg struct{ err error }

type authChangedMsg struct {
	event app.AuthEvent
	user  *domain.User
}

// App is the root Bubble Tea model. It routes between sub-views.
type App struct {
	deps        Deps
	active      activeView
	feed        feed.Model
	compose     compose.Model
	composeMode compose.Mode
	keys        common.KeyMap
	status      string // Transient status message (e.g. "Posted!")

	inbox     *common.Inbox // notifications and auth events
	notifSub  app.Subscription
	unsubAuth func()
	startup   tea.Cmd
	err       error
}

// NewApp creates the root model with all dependencies wired and the feed
// mounted.
func NewApp(deps Deps) App {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	f := feed.New(feed.Deps{
		Timeline:     deps.Timeline,
		Interactions: deps.Interactions,
		Posts:        deps.Posts,
		Changes:      deps.Changes,
		Profiles:     deps.Profiles,
		Hashtags:     deps.Hashtags,
		Log:          deps.Log.Named("feed"),
		PageSize:     deps.PageSize,
	})
	f, startup := f.Mount()

	a := App{
		deps:        deps,
		active:      feedView,
		feed:        f,
		composeMode: deps.ComposeMode,
		keys:        common.DefaultKeyMap(),
		inbox:       common.NewInbox(16),
		startup:     startup,
	}
	if deps.Account != nil {
		inbox := a.inbox
		a.unsubAuth = deps.Account.OnAuthStateChange(func(ev app.AuthEvent, u *domain.User) {
			inbox.Post(authChangedMsg{event: ev, user: u})
		})
	}
	return a
}

// Init starts the feed, the notification channel and the event listener.
func (a App) Init() tea.Cmd {
	return tea.Batch(a.startup, a.subscribeNotifications(), a.inbox.Next())
}

// Err returns the reason the app quit on its own, if any.
func (a App) Err() error { return a.err }

// Close releases realtime channels and listeners. It is safe to call twice.
func (a App) Close() App {
	a.feed = a.feed.Unmount()
	if a.unsubAuth != nil {
		a.unsubAuth()
		a.unsubAuth = nil
	}
	if a.notifSub != nil {
		if err := a.notifSub.Close(); err != nil {
			a.deps.Log.Warn("closing notifications channel", zap.Error(err))
		}
		a.notifSub = nil
	}
	a.inbox.Close()
	return a
}

// Run starts the program and blocks until the user quits.
func Run(deps Deps, opts ...tea.ProgramOption) error {
	final, err := tea.NewProgram(NewApp(deps), opts...).Run()
	if a, ok := final.(App); ok {
		a = a.Close()
		if err == nil {
			err = a.Err()
		}
	}
	return err
}

func (a App) subscribeNotifications() tea.Cmd {
	if a.deps.Changes == nil || a.deps.User.ID == "" {
		return nil
	}
	changes, userID, inbox := a.deps.Changes, a.deps.User.ID, a.inbox
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), subscribeTimeout)
		defer cancel()
		sub, err := changes.SubscribeNotifications(ctx, userID,
			func(n domain.Notification) { inbox.Post(notificationMsg{n: n}) },
			func(err error) { inbox.Post(notificationsErrorMsg{err: err}) },
		)
		if err != nil {
			return notificationsUnavailableMsg{err: err}
		}
		return notificationsSubscribedMsg{sub: sub}
	}
}

func (a App) quit(err error) (App, tea.Cmd) {
	a.err = err
	a = a.Close()
	return a, tea.Quit
}

// Update handles messages and routes to the active sub-model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(msg)

	case tea.WindowSizeMsg, spinner.TickMsg:
		// The feed keeps its layout and spinner while compose is open.
		var cmd tea.Cmd
		a.feed, cmd = a.feed.Update(msg)
		return a, cmd

	// --- Inbox events ---

	case notificationMsg:
		a.status = "🔔 " + notificationText(msg.n)
		return a, a.inbox.Next()

	case notificationsSubscribedMsg:
		if a.inbox.Closed() {
			if err := msg.sub.Close(); err != nil {
				a.deps.Log.Warn("closing notifications channel", zap.Error(err))
			}
			return a, nil
		}
		a.notifSub = msg.sub
		return a, nil

	case notificationsErrorMsg:
		a.deps.Log.Warn("notifications channel error", zap.Error(msg.err))
		return a, a.inbox.Next()

	case notificationsUnavailableMsg:
		a.deps.Log.Warn("notifications unavailable", zap.Error(msg.err))
		return a, nil

	case authChangedMsg:
		if msg.event == app.AuthSignedOut {
			return a.quit(domain.ErrNoSession)
		}
		a.deps.Log.Debug("auth state changed", zap.Int("event", int(msg.event)))
		return a, a.inbox.Next()

	// --- Feed requests ---

	case feed.AuthRequiredMsg:
		return a.quit(fmt.Errorf("%w: sign in with `truthterm login`", domain.ErrNoSession))

	case feed.CommentRequestMsg:
		return a.openCompose(compose.NewComment(a.composeDeps(), a.composeMode, msg.Post))

	case compose.DoneMsg:
		return a.handleComposeDone(msg)
	}

	return a.delegate(msg)
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return a.quit(nil)
	}

	if a.active == composeView {
		var cmd tea.Cmd
		a.compose, cmd = a.compose.Update(msg)
		return a, cmd
	}

	if !a.feed.Capturing() {
		switch {
		case key.Matches(msg, a.keys.Quit):
			return a.quit(nil)

		case key.Matches(msg, a.keys.Compose):
			return a.openCompose(compose.New(a.composeDeps(), a.composeMode))

		case key.Matches(msg, a.keys.ComposeAlt):
			a.composeMode = a.composeMode.Other()
			a.saveComposeMode()
			return a.openCompose(compose.New(a.composeDeps(), a.composeMode))
		}
	}

	var cmd tea.Cmd
	a.feed, cmd = a.feed.Update(msg)
	return a, cmd
}

// delegate routes everything else. Feed results keep arriving while compose
// is open, so both models see non-key messages then.
func (a App) delegate(msg tea.Msg) (tea.Model, tea.Cmd) {
	var feedCmd, composeCmd tea.Cmd
	a.feed, feedCmd = a.feed.Update(msg)
	if a.active == composeView {
		a.compose, composeCmd = a.compose.Update(msg)
	}
	return a, tea.Batch(feedCmd, composeCmd)
}

func (a App) composeDeps() compose.Deps {
	return compose.Deps{
		Posts:     a.deps.Posts,
		Media:     a.deps.Media,
		Moderator: a.deps.Moderator,
		Editor:    a.deps.Editor,
		Log:       a.deps.Log.Named("compose"),
	}
}

func (a App) openCompose(c compose.Model) (App, tea.Cmd) {
	a.active = composeView
	a.status = ""
	a.compose = c
	cmd := a.compose.Init()
	return a, cmd
}

func (a App) handleComposeDone(msg compose.DoneMsg) (App, tea.Cmd) {
	a.active = feedView
	switch {
	case msg.Err != nil:
		if errors.Is(msg.Err, domain.ErrNoSession) || errors.Is(msg.Err, domain.ErrUnauthorized) {
			return a.quit(fmt.Errorf("%w: sign in with `truthterm login`", domain.ErrNoSession))
		}
		a.status = "Error: " + msg.Err.Error()
		return a, nil

	case msg.Cancelled:
		a.status = "Cancelled."
		return a, nil

	case msg.CommentOn != "":
		var cmd tea.Cmd
		a.feed, cmd = a.feed.Update(feed.CommentAddedMsg{PostID: msg.CommentOn})
		a.status = "Comment added."
		return a, cmd
	}

	var cmd tea.Cmd
	a.feed, cmd = a.feed.Refresh()
	a.status = "Posted!"
	return a, cmd
}

func (a App) saveComposeMode() {
	if a.deps.StatePath == "" {
		return
	}
	st := config.UIState{ComposeMode: a.composeMode.String()}
	if err := config.SaveUIState(a.deps.StatePath, st); err != nil {
		a.deps.Log.Warn("saving ui state", zap.Error(err))
	}
}

func notificationText(n domain.Notification) string {
	switch {
	case n.Title != "" && n.Message != "":
		return n.Title + ": " + n.Message
	case n.Title != "":
		return n.Title
	case n.Message != "":
		return n.Message
	}
	return "New " + n.Type + " notification"
}

// View renders the active sub-model.
func (a App) View() string {
	var s string

	switch a.active {
	case feedView:
		s = a.feed.View()
	case composeView:
		s = a.compose.View()
	}

	// Append transient status if present.
	if a.status != "" {
		s += "\n" + common.StatusBarStyle.Render(a.status)
	}

	return s
}
