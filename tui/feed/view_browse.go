package feed

import (
	"fmt"
	"strings"

	"github.com/thetruth/truthterm/tui/common"
)

func (m Model) renderProfile() string {
	p := m.profile
	var b strings.Builder

	name := common.AuthorStyle.Render(p.Name())
	if p.Verified {
		name += " " + common.VerifiedStyle.Render("✓")
	}
	if p.Username != "" {
		name += " " + common.TimestampStyle.Render("@"+p.Username)
	}
	if p.IsMe {
		name += " " + common.OwnBadgeStyle.Render("you")
	}
	b.WriteString("  " + name + "\n")

	switch {
	case m.profileLoading:
		b.WriteString(fmt.Sprintf("  %s Loading profile...\n", m.spinner.View()))
	case m.profileErr != nil:
		b.WriteString(common.ErrorStyle.Render(fmt.Sprintf("  Couldn't load profile: %v", m.profileErr)) + "\n")
	default:
		if p.Bio != "" {
			b.WriteString("\n" + indent(wrapBody(p.Bio, m.contentWidth()), "  ") + "\n")
		}
		counts := fmt.Sprintf("%s followers · %s following",
			common.CompactCount(p.Followers), common.CompactCount(p.Following))
		b.WriteString("\n  " + common.CountStyle.Render(counts) + "\n")
		var meta []string
		if !p.CreatedAt.IsZero() {
			meta = append(meta, "joined "+p.CreatedAt.Format("Jan 2006"))
		}
		if p.FollowedByMe {
			meta = append(meta, "you follow them")
		}
		if len(meta) > 0 {
			b.WriteString("  " + common.TimestampStyle.Render(strings.Join(meta, " · ")) + "\n")
		}
	}

	hint := "enter: their posts · esc: back"
	if !p.IsMe {
		verb := "follow"
		if p.FollowedByMe {
			verb = "unfollow"
		}
		hint = "f: " + verb + " · " + hint
	}
	b.WriteString("\n" + common.TimestampStyle.Render("  "+hint) + "\n")
	return b.String()
}

func (m Model) renderTrending() string {
	var b strings.Builder
	b.WriteString("  " + common.AuthorStyle.Render("Trending hashtags") + "\n\n")
	switch {
	case m.trendsLoading:
		b.WriteString(fmt.Sprintf("  %s Loading...\n", m.spinner.View()))
	case m.trendsErr != nil:
		b.WriteString(common.ErrorStyle.Render(fmt.Sprintf("  Couldn't load hashtags: %v", m.trendsErr)) + "\n")
	case len(m.trends) == 0:
		b.WriteString("  Nothing is trending yet.\n")
	default:
		for i, h := range m.trends {
			line := fmt.Sprintf("#%s  %s posts  %s", h.Tag, common.CompactCount(h.UseCount), trendArrow(h.Trend()))
			if i == m.trendCursor {
				b.WriteString(common.ActionActiveStyle.Render("> "+line) + "\n")
			} else {
				b.WriteString(common.ActionInactiveStyle.Render("  "+line) + "\n")
			}
		}
	}
	b.WriteString("\n" + common.TimestampStyle.Render("  enter: show posts · esc: back") + "\n")
	return b.String()
}

func trendArrow(trend string) string {
	switch trend {
	case "up":
		return "↑"
	case "down":
		return "↓"
	}
	return "→"
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
