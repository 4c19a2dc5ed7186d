package feed

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/thetruth/truthterm/app"
	"github.com/thetruth/truthterm/domain"
	"github.com/thetruth/truthterm/tui/common"
)

const (
	defaultLimit    = 20
	prefetchTrigger = 3
	inboxSize       = 64
	trendingLimit   = 10
)

// PostsLoadedMsg is sent when the newest page arrives.
type PostsLoadedMsg struct {
	Posts    []domain.Post
	QueryKey string
	ReqSeq   int
}

// PostsErrorMsg is sent when fetching the newest page fails.
type PostsErrorMsg struct {
	Err      error
	QueryKey string
	ReqSeq   int
}

// PostsPageLoadedMsg is sent when an older page arrives.
type PostsPageLoadedMsg struct {
	Posts    []domain.Post
	QueryKey string
	ReqSeq   int
}

// PostsPageErrorMsg is sent when loading an older page fails.
type PostsPageErrorMsg struct {
	Err      error
	QueryKey string
	ReqSeq   int
}

// SubscribedMsg carries the realtime handle once the channel is joined.
type SubscribedMsg struct {
	SubID int
	Sub   app.Subscription
}

// SubscribeErrorMsg reports that the posts channel could not be joined.
type SubscribeErrorMsg struct {
	SubID int
	Err   error
}

// PostInsertedMsg is a realtime insert on the posts table.
type PostInsertedMsg struct {
	SubID int
	Post  domain.Post
}

// PostUpdatedMsg is a realtime update on the posts table.
type PostUpdatedMsg struct {
	SubID int
	Post  domain.Post
}

// RealtimeErrorMsg is a channel error reported while subscribed.
type RealtimeErrorMsg struct {
	SubID int
	Err   error
}

// ToggleResultMsg reports the outcome of an interaction toggle. Want is the
// state the call tried to reach.
type ToggleResultMsg struct {
	Target string
	Kind   app.Interaction
	Want   bool
	Err    error
}

// PollLoadedMsg carries the poll attached to a post.
type PollLoadedMsg struct {
	PostID string
	Poll   domain.Poll
	Err    error
}

// VoteResultMsg reports the outcome of a poll vote.
type VoteResultMsg struct {
	PostID   string
	OptionID string
	Err      error
}

// DeleteResultMsg is sent after a delete attempt.
type DeleteResultMsg struct {
	ID  string
	Err error
}

// ReportResultMsg is sent after a report attempt.
type ReportResultMsg struct {
	ID     string
	Reason string
	Err    error
}

// CommentRequestMsg asks the app to open the composer for a comment.
type CommentRequestMsg struct {
	Post domain.Post
}

// CommentAddedMsg tells the feed a comment was stored for a post.
type CommentAddedMsg struct {
	PostID string
}

// ProfileLoadedMsg carries a profile opened from the feed.
type ProfileLoadedMsg struct {
	UserID  string
	Profile domain.Profile
	Err     error
}

// TrendingLoadedMsg carries the trending hashtags.
type TrendingLoadedMsg struct {
	Tags []domain.Hashtag
	Err  error
}

// AuthRequiredMsg is emitted when an action fails for lack of a session.
type AuthRequiredMsg struct {
	Err error
}

// pendingKey identifies one in-flight action on one target.
type pendingKey struct {
	Target string // post ID, or author ID for follows
	Action string
}

const actionVote = "vote"

// Deps are the collaborators of the feed.
type Deps struct {
	Timeline     app.TimelineService
	Interactions app.InteractionService
	Posts        app.PostService
	Changes      app.ChangeFeed
	Profiles     app.ProfileService
	Hashtags     app.HashtagService
	Log          *zap.Logger
	PageSize     int
	Source       domain.Source // feed shown first
}

type feedState struct {
	source      domain.Source
	posts       []domain.Post
	cursor      int
	oldest      time.Time // page cursor: created_at of the last visible post
	loading     bool
	loadingMore bool
	hasMoreFeed bool
	feedReqSeq  int
	jumpTop     bool // select the head once the reload lands
	err         error
	notice      string
}

type realtimeState struct {
	inbox      *common.Inbox
	subID      int
	sub        app.Subscription
	pendingNew map[string]struct{}
	mounted    bool
}

type actionState struct {
	pending      map[pendingKey]bool
	countedFrom  map[pendingKey]int // counter value when a toggle started
	polls        map[string]domain.Poll
	pollLoading  map[string]bool
	deleteTarget string // post awaiting delete confirmation
	reportTarget string // post the report menu is open for
	reportCursor int
}

type browseState struct {
	showProfile    bool
	profileID      string
	profile        domain.Profile
	profileLoading bool
	profileErr     error

	showTrending  bool
	trends        []domain.Hashtag
	trendCursor   int
	trendsLoading bool
	trendsErr     error
}

type uiState struct {
	keys       common.KeyMap
	help       help.Model
	spinner    spinner.Model
	width      int
	height     int
	startIndex int
	showHelp   bool
	now        func() time.Time
}

// Model holds the state for the feed view.
type Model struct {
	deps Deps
	feedState
	realtimeState
	actionState
	browseState
	uiState
}

// New creates a feed model with injected dependencies.
func New(deps Deps) Model {
	if deps.PageSize <= 0 {
		deps.PageSize = defaultLimit
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6"))

	return Model{
		deps: deps,
		feedState: feedState{
			source:      deps.Source,
			loading:     true,
			hasMoreFeed: true,
		},
		realtimeState: realtimeState{
			inbox:      common.NewInbox(inboxSize),
			pendingNew: make(map[string]struct{}),
		},
		actionState: actionState{
			pending:     make(map[pendingKey]bool),
			countedFrom: make(map[pendingKey]int),
			polls:       make(map[string]domain.Poll),
			pollLoading: make(map[string]bool),
		},
		uiState: uiState{
			keys:    common.DefaultKeyMap(),
			help:    help.New(),
			spinner: s,
			now:     time.Now,
		},
	}
}

// Mount starts the first fetch, the posts subscription and the spinner.
func (m Model) Mount() (Model, tea.Cmd) {
	m.mounted = true
	m.subID++
	m.loading = true
	m.feedReqSeq++
	return m, tea.Batch(
		m.fetchFirstPage(m.feedReqSeq),
		m.subscribe(m.subID),
		m.inbox.Next(),
		m.spinner.Tick,
	)
}

// Unmount releases the realtime channel. Results still in flight are
// dropped when they arrive.
func (m Model) Unmount() Model {
	m.mounted = false
	m.subID++
	if m.sub != nil {
		if err := m.sub.Close(); err != nil {
			m.deps.Log.Warn("closing posts subscription", zap.Error(err))
		}
		m.sub = nil
	}
	m.inbox.Close()
	m.inbox = common.NewInbox(inboxSize)
	m.feedReqSeq++
	m.loading = false
	m.loadingMore = false
	return m
}

// Update handles messages for the feed view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m.update(msg)
}

// Posts returns the visible posts in display order.
func (m Model) Posts() []domain.Post {
	return m.posts
}

// NewPostCount is the number of distinct inserts waiting for a flush.
func (m Model) NewPostCount() int {
	return len(m.pendingNew)
}

// HasMore reports whether an older page may exist.
func (m Model) HasMore() bool {
	return m.hasMoreFeed
}

// Loading reports whether the first page is loading.
func (m Model) Loading() bool {
	return m.loading
}

// LoadingMore reports whether an older page is loading.
func (m Model) LoadingMore() bool {
	return m.loadingMore
}

// Err returns the error of the last first-page load, if any.
func (m Model) Err() error {
	return m.err
}

// Notice returns the transient status line.
func (m Model) Notice() string {
	return m.notice
}

// Source returns the feed source being shown.
func (m Model) Source() domain.Source {
	return m.source
}

// Cursor returns the selected index.
func (m Model) Cursor() int {
	return m.cursor
}

// SelectedPost returns the highlighted post, if any.
func (m Model) SelectedPost() (domain.Post, bool) {
	if m.cursor < 0 || m.cursor >= len(m.posts) {
		return domain.Post{}, false
	}
	return m.posts[m.cursor], true
}

// Capturing reports whether the feed is in a modal state that owns keys
// like q and esc.
func (m Model) Capturing() bool {
	return m.deleteTarget != "" || m.reportTarget != "" || m.showHelp || m.showProfile || m.showTrending
}
