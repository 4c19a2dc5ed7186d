package compose

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/thetruth/truthterm/domain"
	"github.com/thetruth/truthterm/tui/common"
)

// View renders the compose view based on the active mode.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(common.AppTitleStyle.Render("The Truth"))
	if m.isComment() {
		b.WriteString("  Comment on @" + m.replyAuthor + "\n\n")
	} else {
		b.WriteString("  New post\n\n")
	}

	switch m.mode {
	case EditorMode:
		if m.content != "" {
			b.WriteString(common.ContentStyle.Render(m.content))
			b.WriteString("\n\n")
		}
	case InlineMode:
		b.WriteString(m.textarea.View())
		b.WriteString("\n")
		if !m.isComment() {
			b.WriteString(m.media.View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	switch {
	case m.err != nil:
		b.WriteString(common.ErrorStyle.Render("✗ " + m.err.Error()))
		b.WriteString("\n")
	case m.warning != "":
		b.WriteString(common.WarningStyle.Render("⚠ " + m.warning))
		b.WriteString("\n")
		b.WriteString(common.ConfirmStyle.Render("Press ctrl+d again to post anyway, or keep editing."))
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString(common.StatusBarStyle.Render(m.status))
	} else {
		b.WriteString(common.StatusBarStyle.Render(m.footer()))
	}
	return b.String()
}

func (m Model) footer() string {
	if m.mode == EditorMode {
		return "ctrl+d: post • e: edit again • esc: cancel"
	}
	n := utf8.RuneCountInString(m.textarea.Value())
	if m.isComment() {
		return fmt.Sprintf("ctrl+d: send • esc: cancel • %d/%d chars", n, domain.MaxPostLength)
	}
	return fmt.Sprintf("ctrl+d: post • tab: media • esc: cancel • %d/%d chars", n, domain.MaxPostLength)
}
