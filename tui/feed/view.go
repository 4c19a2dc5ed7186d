package feed

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/thetruth/truthterm/domain"
	"github.com/thetruth/truthterm/tui/common"
)

const (
	maxBodyLines = 6
	headerLines  = 4
	footerLines  = 3
	itemLines    = 7 // estimate used to size the visible window
)

// View renders the feed as a string.
func (m Model) View() string {
	var b strings.Builder

	title := common.AppTitleStyle.Render("The Truth")
	tagline := common.TaglineStyle.Render("speak freely, from your terminal")
	b.WriteString(title + tagline + "\n")
	if m.source.Kind != domain.SourceEveryone {
		b.WriteString(" " + common.AuthorStyle.Render("Posts from "+m.source.Label()) + common.TimestampStyle.Render(" · g: everyone") + "\n")
	}

	if n := len(m.pendingNew); n > 0 {
		label := "new post"
		if n > 1 {
			label = "new posts"
		}
		b.WriteString(" " + common.NewPostsStyle.Render(fmt.Sprintf("↑ %d %s · press n", n, label)) + "\n")
	}
	b.WriteString("\n")

	switch {
	case m.showProfile:
		b.WriteString(m.renderProfile())
	case m.showTrending:
		b.WriteString(m.renderTrending())
	case m.loading && len(m.posts) == 0:
		b.WriteString(fmt.Sprintf("  %s Loading posts...\n", m.spinner.View()))
	case m.err != nil && len(m.posts) == 0:
		b.WriteString(common.ErrorStyle.Render(fmt.Sprintf("  Error: %v", m.err)))
		b.WriteString("\n\n  Press r to retry.\n")
	case len(m.posts) == 0 && m.source.Kind != domain.SourceEveryone:
		b.WriteString("  No posts from " + m.source.Label() + " yet.\n")
	case len(m.posts) == 0:
		b.WriteString("  No posts yet. Be the first!\n")
	default:
		b.WriteString(m.renderList())
	}

	if m.showHelp {
		b.WriteString("\n" + m.help.FullHelpView(m.keys.FullHelp()) + "\n")
	}
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m Model) renderList() string {
	end := min(m.startIndex+m.visibleCount(), len(m.posts))
	var b strings.Builder
	for i := max(m.startIndex, 0); i < end; i++ {
		item := m.renderPost(m.posts[i], i == m.cursor)
		b.WriteString(item + "\n")
	}
	if m.loadingMore {
		b.WriteString(fmt.Sprintf("  %s Loading older posts...\n", m.spinner.View()))
	}
	return b.String()
}

func (m Model) renderPost(p domain.Post, selected bool) string {
	width := m.contentWidth()

	header := common.AuthorStyle.Render(p.Author.Name())
	if p.Author.Verified {
		header += common.VerifiedStyle.Render(" ✓")
	}
	if p.Author.Username != "" {
		header += common.TimestampStyle.Render(" @" + p.Author.Username)
	}
	if age := common.RelativeTime(p.CreatedAt, m.now()); age != "" {
		header += common.TimestampStyle.Render(" · " + age)
	}
	if p.IsOwn {
		header += common.OwnBadgeStyle.Render("(you)")
	} else if p.FollowingAuthor {
		header += common.TimestampStyle.Render(" · following")
	}
	if p.Pinned {
		header += common.WarningStyle.Render(" 📌")
	}

	lines := []string{header}
	if body := wrapBody(p.Content, width); body != "" {
		lines = append(lines, common.ContentStyle.Render(body))
	}
	if p.MediaURL != "" {
		kind := p.MediaType
		if kind == "" {
			kind = "media"
		}
		lines = append(lines, common.TimestampStyle.Render(ansi.Truncate("📎 "+kind+": "+p.MediaURL, width, "…")))
	}
	if poll, ok := m.polls[p.ID]; ok {
		lines = append(lines, m.renderPoll(poll, width))
	} else if p.PostType == "poll" && m.pollLoading[p.ID] {
		lines = append(lines, common.TimestampStyle.Render("loading poll..."))
	}
	lines = append(lines, m.renderCounters(p))

	content := strings.Join(lines, "\n")
	if selected {
		content = common.SelectedStyle.Width(width + 2).Render(content)
	} else {
		content = common.UnselectedStyle.Width(width + 2).Render(content)
	}
	// Prompts stay with the post they were opened for.
	switch {
	case m.deleteTarget != "" && p.ID == m.deleteTarget:
		content += "\n" + common.ConfirmStyle.Render("Delete this post? (y/enter to confirm)")
	case m.reportTarget != "" && p.ID == m.reportTarget:
		content += "\n" + m.renderReportMenu()
	}
	return content
}

func (m Model) renderCounters(p domain.Post) string {
	like := common.CountStyle.Render("♡ " + common.CompactCount(p.LikesCount))
	if p.Liked {
		like = common.ActiveCountStyle.Render("♥ " + common.CompactCount(p.LikesCount))
	}
	repost := common.CountStyle.Render("⟳ " + common.CompactCount(p.RepostCount))
	if p.Reposted {
		repost = common.ActiveCountStyle.Render("⟳ " + common.CompactCount(p.RepostCount))
	}
	comments := common.CountStyle.Render("↩ " + common.CompactCount(p.CommentsCount))
	parts := []string{like, comments, repost}
	if p.Bookmarked {
		parts = append(parts, common.ActiveCountStyle.Render("★ saved"))
	}
	return strings.Join(parts, "   ")
}

func (m Model) renderPoll(poll domain.Poll, width int) string {
	var b strings.Builder
	b.WriteString(common.ContentStyle.Bold(true).Render(ansi.Truncate(poll.Question, width, "…")))
	total := poll.TotalVotes()
	for i, o := range poll.Options {
		mark := " "
		if o.ID == poll.VotedOption {
			mark = "●"
		}
		pct := 0
		if total > 0 {
			pct = o.Votes * 100 / total
		}
		line := fmt.Sprintf("%s %d. %s  %d%%", mark, i+1, o.Text, pct)
		b.WriteString("\n" + ansi.Truncate(line, width, "…"))
	}
	status := fmt.Sprintf("%d votes", total)
	switch {
	case poll.Closed(m.now()):
		status += " · ended"
	case poll.VotedOption == "":
		status += " · press 1-9 to vote"
	}
	b.WriteString("\n" + common.TimestampStyle.Render(status))
	return b.String()
}

func (m Model) renderReportMenu() string {
	var b strings.Builder
	b.WriteString(common.ConfirmStyle.Render("Report this post for:"))
	for i, reason := range domain.ReportReasons {
		label := strings.ReplaceAll(reason, "_", " ")
		if i == m.reportCursor {
			b.WriteString("\n" + common.ActionActiveStyle.Render("> "+label))
		} else {
			b.WriteString("\n" + common.ActionInactiveStyle.Render("  "+label))
		}
	}
	b.WriteString("\n" + common.TimestampStyle.Render("  enter: submit · esc: cancel"))
	return b.String()
}

func (m Model) renderStatusBar() string {
	if m.notice != "" {
		return common.StatusBarStyle.Render(m.notice)
	}
	return common.StatusBarStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp()))
}

// wrapBody word-wraps s to width and clips it to maxBodyLines.
func wrapBody(s string, width int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lines := strings.Split(ansi.Wordwrap(s, width, ""), "\n")
	if len(lines) > maxBodyLines {
		lines = lines[:maxBodyLines]
		lines[maxBodyLines-1] = ansi.Truncate(lines[maxBodyLines-1], width-1, "") + "…"
	}
	return strings.Join(lines, "\n")
}

func (m Model) contentWidth() int {
	if m.width <= 0 {
		return 76
	}
	return max(m.width-6, 20)
}

func (m Model) visibleCount() int {
	if m.height <= 0 {
		return 5
	}
	avail := m.height - headerLines - footerLines
	return max(avail/itemLines, 1)
}

func (m *Model) ensureCursorVisible() {
	n := m.visibleCount()
	if m.cursor < m.startIndex {
		m.startIndex = m.cursor
	}
	if m.cursor >= m.startIndex+n {
		m.startIndex = m.cursor - n + 1
	}
	m.startIndex = max(min(m.startIndex, len(m.posts)-1), 0)
}
