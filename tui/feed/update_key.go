package feed

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/thetruth/truthterm/app"
	"github.com/thetruth/truthterm/domain"
)

func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.showHelp {
		if key.Matches(msg, m.keys.ToggleHelp) || key.Matches(msg, m.keys.Cancel) || key.Matches(msg, m.keys.Quit) {
			m.showHelp = false
		}
		return m, nil
	}
	if m.showProfile {
		return m.handleProfileKey(msg)
	}
	if m.showTrending {
		return m.handleTrendingKey(msg)
	}
	if m.reportTarget != "" {
		return m.handleReportKey(msg)
	}
	if m.deleteTarget != "" {
		return m.handleDeleteConfirm(msg)
	}

	switch {
	case key.Matches(msg, m.keys.ToggleHelp):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m.flush()

	case key.Matches(msg, m.keys.ShowNew):
		if len(m.pendingNew) == 0 {
			return m, nil
		}
		return m.flush()

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		m.ensureCursorVisible()
		return m, m.ensurePoll()

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.posts)-1 {
			m.cursor++
		}
		m.ensureCursorVisible()
		pollCmd := m.ensurePoll()
		if len(m.posts)-1-m.cursor < prefetchTrigger {
			var cmd tea.Cmd
			m, cmd = m.loadMore()
			return m, tea.Batch(pollCmd, cmd)
		}
		return m, pollCmd

	case key.Matches(msg, m.keys.Like):
		return m.startToggle(app.InteractionLike)
	case key.Matches(msg, m.keys.Bookmark):
		return m.startToggle(app.InteractionBookmark)
	case key.Matches(msg, m.keys.Repost):
		return m.startToggle(app.InteractionRepost)
	case key.Matches(msg, m.keys.Follow):
		return m.startToggle(app.InteractionFollow)

	case key.Matches(msg, m.keys.Vote):
		if len(msg.Runes) != 1 {
			return m, nil
		}
		return m.startVote(int(msg.Runes[0] - '1'))

	case key.Matches(msg, m.keys.Comment):
		p, ok := m.SelectedPost()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg { return CommentRequestMsg{Post: p} }

	case key.Matches(msg, m.keys.Delete):
		p, ok := m.SelectedPost()
		if !ok {
			return m, nil
		}
		if !p.IsOwn {
			m.notice = "You can only delete your own posts."
			return m, nil
		}
		if m.pending[pendingKey{Target: p.ID, Action: "delete"}] {
			return m, nil
		}
		m.deleteTarget = p.ID
		return m, nil

	case key.Matches(msg, m.keys.Report):
		p, ok := m.SelectedPost()
		if !ok {
			return m, nil
		}
		if p.IsOwn {
			m.notice = "You can't report your own post."
			return m, nil
		}
		m.reportTarget = p.ID
		m.reportCursor = 0
		return m, nil

	case key.Matches(msg, m.keys.Profile):
		return m.openProfile()

	case key.Matches(msg, m.keys.Trending):
		return m.openTrending()

	case key.Matches(msg, m.keys.Home):
		if m.source == domain.Everyone() {
			return m, nil
		}
		return m.switchSource(domain.Everyone())

	case key.Matches(msg, m.keys.Open):
		p, ok := m.SelectedPost()
		if !ok {
			return m, nil
		}
		if p.MediaURL == "" {
			m.notice = "No media on this post."
			return m, nil
		}
		if !isSafeExternalURL(p.MediaURL) {
			m.notice = "Refusing to open a non-web link."
			return m, nil
		}
		return m, openURL(p.MediaURL)
	}

	return m, nil
}

// handleDeleteConfirm acts on the post the prompt was opened for, even if
// a reload moved the selection in the meantime.
func (m Model) handleDeleteConfirm(msg tea.KeyMsg) (Model, tea.Cmd) {
	id := m.deleteTarget
	m.deleteTarget = ""
	if !key.Matches(msg, m.keys.Confirm) {
		m.notice = ""
		return m, nil
	}
	i := m.indexOf(id)
	if i < 0 {
		m.notice = "That post is no longer in the feed."
		return m, nil
	}
	if !m.posts[i].IsOwn {
		m.notice = "You can only delete your own posts."
		return m, nil
	}
	k := pendingKey{Target: id, Action: "delete"}
	if m.pending[k] {
		return m, nil
	}
	m.pending[k] = true
	m.notice = "Deleting..."
	return m, m.deletePost(id)
}

func (m Model) handleReportKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Quit):
		m.reportTarget = ""
	case key.Matches(msg, m.keys.Up):
		if m.reportCursor > 0 {
			m.reportCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.reportCursor < len(domain.ReportReasons)-1 {
			m.reportCursor++
		}
	case key.Matches(msg, m.keys.Confirm):
		id := m.reportTarget
		m.reportTarget = ""
		i := m.indexOf(id)
		if i < 0 {
			m.notice = "That post is no longer in the feed."
			return m, nil
		}
		if m.posts[i].IsOwn {
			m.notice = "You can't report your own post."
			return m, nil
		}
		k := pendingKey{Target: id, Action: "report"}
		if m.pending[k] {
			return m, nil
		}
		m.pending[k] = true
		return m, m.reportPost(id, domain.ReportReasons[m.reportCursor])
	}
	return m, nil
}
