package feed

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ensureCursorVisible()
		return m, nil

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	switch msg := msg.(type) {
	case PostsLoadedMsg, PostsErrorMsg, PostsPageLoadedMsg, PostsPageErrorMsg:
		return m.handleFeedLoadingMsg(msg)
	case SubscribedMsg, SubscribeErrorMsg, PostInsertedMsg, PostUpdatedMsg, RealtimeErrorMsg:
		return m.handleRealtimeMsg(msg)
	case ToggleResultMsg, PollLoadedMsg, VoteResultMsg, DeleteResultMsg, ReportResultMsg, CommentAddedMsg:
		return m.handleActionMsg(msg)
	case ProfileLoadedMsg, TrendingLoadedMsg:
		return m.handleBrowseMsg(msg)
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m, nil
}
