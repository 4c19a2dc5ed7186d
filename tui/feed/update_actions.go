package feed

import (
	"errors"
	"fmt"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/thetruth/truthterm/app"
	"github.com/thetruth/truthterm/domain"
)

func (m Model) handleActionMsg(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ToggleResultMsg:
		k := pendingKey{Target: msg.Target, Action: msg.Kind.String()}
		base, hasBase := m.countedFrom[k]
		delete(m.pending, k)
		delete(m.countedFrom, k)
		if msg.Err != nil {
			return m.actionFailed(msg.Kind.String(), msg.Err)
		}
		if !hasBase {
			base = -1
		}
		m.applyToggle(msg.Kind, msg.Target, msg.Want, base)
		return m, nil

	case PollLoadedMsg:
		delete(m.pollLoading, msg.PostID)
		if msg.Err != nil {
			if !errors.Is(msg.Err, domain.ErrNotFound) {
				m.deps.Log.Warn("loading poll", zap.String("post_id", msg.PostID), zap.Error(msg.Err))
			}
			return m, nil
		}
		m.polls[msg.PostID] = msg.Poll
		return m, nil

	case VoteResultMsg:
		delete(m.pending, pendingKey{Target: msg.PostID, Action: actionVote})
		if errors.Is(msg.Err, domain.ErrAlreadyVoted) {
			m.notice = "You already voted in this poll."
			delete(m.polls, msg.PostID)
			m.pollLoading[msg.PostID] = true
			return m, m.fetchPoll(msg.PostID)
		}
		if msg.Err != nil {
			return m.actionFailed(actionVote, msg.Err)
		}
		if poll, ok := m.polls[msg.PostID]; ok {
			m.polls[msg.PostID] = poll.WithVote(msg.OptionID)
		}
		m.notice = "Vote recorded."
		return m, nil

	case DeleteResultMsg:
		delete(m.pending, pendingKey{Target: msg.ID, Action: "delete"})
		if msg.Err != nil {
			return m.actionFailed("delete", msg.Err)
		}
		var cmd tea.Cmd
		m, cmd = m.flush()
		m.notice = "Post deleted."
		return m, cmd

	case ReportResultMsg:
		delete(m.pending, pendingKey{Target: msg.ID, Action: "report"})
		if msg.Err != nil {
			return m.actionFailed("report", msg.Err)
		}
		m.notice = "Post reported. A moderator will review it."
		return m, nil

	case CommentAddedMsg:
		if i := m.indexOf(msg.PostID); i >= 0 {
			m.posts = slices.Clone(m.posts)
			m.posts[i].CommentsCount++
		}
		m.notice = "Comment posted."
		return m, nil
	}

	return m, nil
}

// startToggle issues one create-or-delete call for the selected post. State
// changes only when the call succeeds.
func (m Model) startToggle(kind app.Interaction) (Model, tea.Cmd) {
	p, ok := m.SelectedPost()
	if !ok {
		return m, nil
	}
	target := p.ID
	if kind == app.InteractionFollow {
		if p.IsOwn || p.AuthorID == "" {
			m.notice = "You can't follow yourself."
			return m, nil
		}
		target = p.AuthorID
	}
	key := pendingKey{Target: target, Action: kind.String()}
	if m.pending[key] {
		m.notice = fmt.Sprintf("Still saving your %s...", kind)
		return m, nil
	}
	m.pending[key] = true
	if n, ok := counterOf(p, kind); ok {
		m.countedFrom[key] = n
	}
	return m, m.toggle(kind, target, flagOf(p, kind))
}

// applyToggle sets the flag on every post the target covers. Counters move
// only when the flag actually changes, so a reload that already reflects the
// call is not counted twice. base is the counter when the toggle started, or
// -1; if a realtime update already moved it the right way, only the flag is
// set.
func (m *Model) applyToggle(kind app.Interaction, target string, want bool, base int) {
	m.posts = slices.Clone(m.posts)
	for i, p := range m.posts {
		match := p.ID == target
		if kind == app.InteractionFollow {
			match = p.AuthorID == target
		}
		if !match || flagOf(p, kind) == want {
			continue
		}
		if n, ok := counterOf(p, kind); ok && base >= 0 && ((want && n > base) || (!want && n < base)) {
			m.posts[i] = withFlagOnly(p, kind, want)
			continue
		}
		m.posts[i] = withFlag(p, kind, want)
	}
	if kind == app.InteractionFollow {
		m.applyProfileFollow(target, want)
	}
}

// counterOf returns the public counter a toggle of kind moves, if any.
func counterOf(p domain.Post, kind app.Interaction) (int, bool) {
	switch kind {
	case app.InteractionLike:
		return p.LikesCount, true
	case app.InteractionRepost:
		return p.RepostCount, true
	}
	return 0, false
}

func withFlagOnly(p domain.Post, kind app.Interaction, on bool) domain.Post {
	counters := p.Counters()
	return withFlag(p, kind, on).WithCounters(counters)
}

func flagOf(p domain.Post, kind app.Interaction) bool {
	switch kind {
	case app.InteractionLike:
		return p.Liked
	case app.InteractionBookmark:
		return p.Bookmarked
	case app.InteractionRepost:
		return p.Reposted
	case app.InteractionFollow:
		return p.FollowingAuthor
	}
	return false
}

func withFlag(p domain.Post, kind app.Interaction, on bool) domain.Post {
	delta := -1
	if on {
		delta = 1
	}
	switch kind {
	case app.InteractionLike:
		p.Liked = on
		p.LikesCount = max(p.LikesCount+delta, 0)
	case app.InteractionBookmark:
		p.Bookmarked = on
	case app.InteractionRepost:
		p.Reposted = on
		p.RepostCount = max(p.RepostCount+delta, 0)
	case app.InteractionFollow:
		p.FollowingAuthor = on
	}
	return p
}

// startVote casts a vote for option n (0-based) of the selected poll.
func (m Model) startVote(n int) (Model, tea.Cmd) {
	p, ok := m.SelectedPost()
	if !ok {
		return m, nil
	}
	if p.PostType != "poll" {
		m.notice = "This post has no poll."
		return m, nil
	}
	poll, ok := m.polls[p.ID]
	if !ok {
		m.notice = "Poll is still loading."
		return m, m.ensurePoll()
	}
	switch {
	case poll.VotedOption != "":
		m.notice = "You already voted in this poll."
		return m, nil
	case poll.Closed(m.now()):
		m.notice = "This poll has ended."
		return m, nil
	case n < 0 || n >= len(poll.Options):
		m.notice = fmt.Sprintf("There is no option %d.", n+1)
		return m, nil
	}
	key := pendingKey{Target: p.ID, Action: actionVote}
	if m.pending[key] {
		m.notice = "Still saving your vote..."
		return m, nil
	}
	m.pending[key] = true
	return m, m.vote(p.ID, poll.ID, poll.Options[n].ID)
}

// ensurePoll loads the poll of the selected post once.
func (m Model) ensurePoll() tea.Cmd {
	p, ok := m.SelectedPost()
	if !ok || p.PostType != "poll" || m.deps.Interactions == nil {
		return nil
	}
	if _, ok := m.polls[p.ID]; ok || m.pollLoading[p.ID] {
		return nil
	}
	m.pollLoading[p.ID] = true
	return m.fetchPoll(p.ID)
}

// actionFailed reports a failed call and leaves the feed as it was.
func (m Model) actionFailed(action string, err error) (Model, tea.Cmd) {
	m.deps.Log.Warn("feed action failed", zap.String("action", action), zap.Error(err))
	m.notice = fmt.Sprintf("Couldn't %s: %v", action, err)
	return m, authRequired(err)
}

func authRequired(err error) tea.Cmd {
	if !errors.Is(err, domain.ErrNoSession) && !errors.Is(err, domain.ErrUnauthorized) {
		return nil
	}
	return func() tea.Msg { return AuthRequiredMsg{Err: err} }
}
