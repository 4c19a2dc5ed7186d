package feed

import (
	"slices"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/thetruth/truthterm/domain"
)

func (m Model) handleFeedLoadingMsg(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case PostsLoadedMsg:
		if msg.ReqSeq != m.feedReqSeq || msg.QueryKey != firstPageKey {
			return m, nil
		}
		anchorID := m.selectedID()
		m.posts = normalizeFeed(msg.Posts)
		m.loading = false
		m.loadingMore = false
		m.err = nil
		m.hasMoreFeed = len(msg.Posts) == m.deps.PageSize
		m.oldest = m.lastCreatedAt()
		m.dropMergedInserts()
		switch {
		case m.promptTarget() != "" && m.setCursorByID(m.promptTarget()):
			m.jumpTop = false
		case m.jumpTop:
			m.cursor = 0
			m.startIndex = 0
			m.jumpTop = false
		case !m.setCursorByID(anchorID):
			m.cursor = min(m.cursor, max(len(m.posts)-1, 0))
		}
		m.ensureCursorVisible()
		return m, m.ensurePoll()

	case PostsErrorMsg:
		if msg.ReqSeq != m.feedReqSeq || msg.QueryKey != firstPageKey {
			return m, nil
		}
		m.deps.Log.Warn("loading feed", zap.Error(msg.Err))
		m.loading = false
		m.loadingMore = false
		m.err = msg.Err
		return m, authRequired(msg.Err)

	case PostsPageLoadedMsg:
		if msg.ReqSeq != m.feedReqSeq || !m.loadingMore || msg.QueryKey != pageQueryKey(m.oldest) {
			return m, nil
		}
		anchorID := m.selectedID()
		m.loadingMore = false
		existing := make(map[string]struct{}, len(m.posts))
		for _, p := range m.posts {
			existing[p.ID] = struct{}{}
		}
		next := slices.Clone(m.posts)
		added := 0
		for _, p := range msg.Posts {
			if _, ok := existing[p.ID]; ok {
				continue
			}
			existing[p.ID] = struct{}{}
			next = append(next, p)
			added++
		}
		m.posts = normalizeFeed(next)
		m.oldest = m.lastCreatedAt()
		m.hasMoreFeed = len(msg.Posts) == m.deps.PageSize && added > 0
		if !m.hasMoreFeed && len(m.posts) > 0 {
			m.notice = "You're all caught up."
		}
		m.setCursorByID(anchorID)
		m.dropMergedInserts()
		return m, nil

	case PostsPageErrorMsg:
		if msg.ReqSeq != m.feedReqSeq || !m.loadingMore || msg.QueryKey != pageQueryKey(m.oldest) {
			return m, nil
		}
		m.deps.Log.Warn("loading older posts", zap.Error(msg.Err))
		m.loadingMore = false
		m.notice = "Couldn't load older posts: " + msg.Err.Error()
		return m, authRequired(msg.Err)
	}

	return m, nil
}

// loadInitial replaces the feed with the newest page.
func (m Model) loadInitial() (Model, tea.Cmd) {
	m.feedReqSeq++
	m.loading = true
	m.loadingMore = false
	m.hasMoreFeed = true
	m.err = nil
	return m, m.fetchFirstPage(m.feedReqSeq)
}

// loadMore appends the page before the cursor. It does nothing while any
// load is in flight or once the feed is exhausted.
func (m Model) loadMore() (Model, tea.Cmd) {
	if m.loading || m.loadingMore || !m.hasMoreFeed || len(m.posts) == 0 {
		return m, nil
	}
	m.loadingMore = true
	return m, m.fetchOlderPosts(m.feedReqSeq)
}

// Refresh drops buffered inserts and cached pages and reloads from the top.
func (m Model) Refresh() (Model, tea.Cmd) { return m.flush() }

// flush merges buffered inserts by dropping cached pages and reloading from
// the top.
func (m Model) flush() (Model, tea.Cmd) {
	m.deps.Timeline.Invalidate()
	m.pendingNew = make(map[string]struct{})
	m.jumpTop = true
	m.notice = ""
	return m.loadInitial()
}

// normalizeFeed drops repeated IDs, keeping the first, and orders newest
// first.
func normalizeFeed(in []domain.Post) []domain.Post {
	seen := make(map[string]struct{}, len(in))
	out := make([]domain.Post, 0, len(in))
	for _, p := range in {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	slices.SortStableFunc(out, func(a, b domain.Post) int {
		switch {
		case a.NewerThan(b):
			return -1
		case b.NewerThan(a):
			return 1
		default:
			return 0
		}
	})
	return out
}

// dropMergedInserts forgets buffered inserts that a reload already shows.
func (m *Model) dropMergedInserts() {
	for id := range m.pendingNew {
		if m.indexOf(id) >= 0 {
			delete(m.pendingNew, id)
		}
	}
}

func (m Model) lastCreatedAt() time.Time {
	if len(m.posts) == 0 {
		return time.Time{}
	}
	return m.posts[len(m.posts)-1].CreatedAt
}

func (m Model) indexOf(id string) int {
	return slices.IndexFunc(m.posts, func(p domain.Post) bool { return p.ID == id })
}

// promptTarget is the post an open delete prompt or report menu acts on.
func (m Model) promptTarget() string {
	if m.deleteTarget != "" {
		return m.deleteTarget
	}
	return m.reportTarget
}

func (m Model) selectedID() string {
	if p, ok := m.SelectedPost(); ok {
		return p.ID
	}
	return ""
}

func (m *Model) setCursorByID(id string) bool {
	if id == "" {
		return false
	}
	i := m.indexOf(id)
	if i < 0 {
		return false
	}
	m.cursor = i
	return true
}
