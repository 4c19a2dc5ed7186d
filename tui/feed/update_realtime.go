package feed

import (
	"slices"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

func (m Model) handleRealtimeMsg(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SubscribedMsg:
		if msg.SubID != m.subID || !m.mounted {
			// The view moved on before the join finished.
			if msg.Sub != nil {
				_ = msg.Sub.Close()
			}
			return m, nil
		}
		m.sub = msg.Sub
		return m, nil

	case SubscribeErrorMsg:
		if msg.SubID != m.subID {
			return m, nil
		}
		m.deps.Log.Warn("subscribing to posts", zap.Error(msg.Err))
		m.notice = "Live updates unavailable; press r to refresh."
		return m, nil

	case PostInsertedMsg:
		if msg.SubID != m.subID {
			return m, nil
		}
		id := msg.Post.ID
		if id != "" && m.indexOf(id) < 0 && m.source.Matches(msg.Post) {
			m.pendingNew[id] = struct{}{}
		}
		return m, m.inbox.Next()

	case PostUpdatedMsg:
		if msg.SubID != m.subID {
			return m, nil
		}
		if i := m.indexOf(msg.Post.ID); i >= 0 {
			m.posts = slices.Clone(m.posts)
			m.posts[i] = m.posts[i].WithCounters(msg.Post.Counters())
		}
		return m, m.inbox.Next()

	case RealtimeErrorMsg:
		if msg.SubID != m.subID {
			return m, nil
		}
		m.deps.Log.Warn("posts channel error", zap.Error(msg.Err))
		return m, m.inbox.Next()
	}

	return m, nil
}
