package feed

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/thetruth/truthterm/app"
	"github.com/thetruth/truthterm/domain"
)

func (m Model) handleBrowseMsg(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ProfileLoadedMsg:
		if !m.showProfile || msg.UserID != m.profileID {
			return m, nil
		}
		m.profileLoading = false
		m.profileErr = msg.Err
		if msg.Err != nil {
			m.deps.Log.Warn("loading profile", zap.String("user_id", msg.UserID), zap.Error(msg.Err))
			return m, authRequired(msg.Err)
		}
		m.profile = msg.Profile
		return m, nil

	case TrendingLoadedMsg:
		m.trendsLoading = false
		m.trendsErr = msg.Err
		if msg.Err != nil {
			m.deps.Log.Warn("loading trending hashtags", zap.Error(msg.Err))
			return m, authRequired(msg.Err)
		}
		m.trends = msg.Tags
		m.trendCursor = min(m.trendCursor, max(len(m.trends)-1, 0))
		return m, nil
	}
	return m, nil
}

// switchSource shows src from its newest page. Buffered inserts belong to
// the previous source and are dropped.
func (m Model) switchSource(src domain.Source) (Model, tea.Cmd) {
	m.source = src
	m.posts = nil
	m.oldest = time.Time{}
	m.cursor = 0
	m.startIndex = 0
	m.jumpTop = false
	m.pendingNew = make(map[string]struct{})
	m.notice = ""
	return m.loadInitial()
}

// openProfile shows the selected author's profile. The post's author
// snapshot fills the pane until the full profile arrives.
func (m Model) openProfile() (Model, tea.Cmd) {
	p, ok := m.SelectedPost()
	if !ok || p.AuthorID == "" {
		return m, nil
	}
	if m.deps.Profiles == nil {
		m.notice = "Profiles are unavailable."
		return m, nil
	}
	m.showProfile = true
	m.profileID = p.AuthorID
	m.profile = domain.Profile{
		ID:           p.AuthorID,
		Username:     p.Author.Username,
		DisplayName:  p.Author.DisplayName,
		Verified:     p.Author.Verified,
		FollowedByMe: p.FollowingAuthor,
		IsMe:         p.IsOwn,
	}
	m.profileLoading = true
	m.profileErr = nil
	return m, m.fetchProfile(p.AuthorID)
}

func (m Model) handleProfileKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.Profile):
		m.showProfile = false
	case key.Matches(msg, m.keys.Follow):
		return m.toggleProfileFollow()
	case key.Matches(msg, m.keys.Confirm):
		m.showProfile = false
		return m.switchSource(domain.UserSource(m.profile.ID, m.profile.Username))
	}
	return m, nil
}

func (m Model) toggleProfileFollow() (Model, tea.Cmd) {
	switch {
	case m.profileLoading:
		m.notice = "Profile is still loading."
		return m, nil
	case m.profileErr != nil:
		m.notice = "Profile unavailable; press esc."
		return m, nil
	case m.profile.IsMe:
		m.notice = "You can't follow yourself."
		return m, nil
	}
	k := pendingKey{Target: m.profile.ID, Action: app.InteractionFollow.String()}
	if m.pending[k] {
		m.notice = "Still saving your follow..."
		return m, nil
	}
	m.pending[k] = true
	return m, m.toggle(app.InteractionFollow, m.profile.ID, m.profile.FollowedByMe)
}

// applyProfileFollow keeps an open profile in step with a follow result.
func (m *Model) applyProfileFollow(target string, want bool) {
	if m.profile.ID != target || m.profile.FollowedByMe == want {
		return
	}
	m.profile.FollowedByMe = want
	if want {
		m.profile.Followers++
	} else if m.profile.Followers > 0 {
		m.profile.Followers--
	}
}

func (m Model) openTrending() (Model, tea.Cmd) {
	if m.deps.Hashtags == nil {
		m.notice = "Trending hashtags are unavailable."
		return m, nil
	}
	m.showTrending = true
	m.trendCursor = 0
	m.trendsLoading = true
	m.trendsErr = nil
	return m, m.fetchTrending()
}

func (m Model) handleTrendingKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.Trending):
		m.showTrending = false
	case key.Matches(msg, m.keys.Up):
		if m.trendCursor > 0 {
			m.trendCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.trendCursor < len(m.trends)-1 {
			m.trendCursor++
		}
	case key.Matches(msg, m.keys.Confirm):
		if m.trendsLoading || m.trendCursor >= len(m.trends) {
			return m, nil
		}
		m.showTrending = false
		return m.switchSource(domain.HashtagSource(m.trends[m.trendCursor].Tag))
	}
	return m, nil
}
