package feed

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/thetruth/truthterm/domain"
)

func TestView_ShowsPostsAndNewBanner(t *testing.T) {
	m, _ := newFixture(makePosts(3))
	m = loaded(m)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	view := ansi.Strip(m.View())
	if !strings.Contains(view, "post p000") || !strings.Contains(view, "@usera1") {
		t.Fatalf("expected post content in view:\n%s", view)
	}
	if strings.Contains(view, "new post") {
		t.Fatalf("no banner without buffered inserts")
	}

	m, _ = m.Update(PostInsertedMsg{SubID: m.subID, Post: makePost("x", baseTime.Add(time.Minute), "a2")})
	m, _ = m.Update(PostInsertedMsg{SubID: m.subID, Post: makePost("y", baseTime.Add(2*time.Minute), "a2")})
	view = ansi.Strip(m.View())
	if !strings.Contains(view, "2 new posts") {
		t.Fatalf("expected the new posts banner:\n%s", view)
	}
}

func TestView_LoadingAndErrorStates(t *testing.T) {
	m, _ := newFixture(nil)
	if !strings.Contains(ansi.Strip(m.View()), "Loading posts") {
		t.Fatalf("expected loading state")
	}

	m, _ = m.loadInitial()
	m, _ = m.Update(PostsErrorMsg{Err: errors.New("offline"), QueryKey: firstPageKey, ReqSeq: m.feedReqSeq})
	view := ansi.Strip(m.View())
	if !strings.Contains(view, "offline") || !strings.Contains(view, "Press r to retry") {
		t.Fatalf("expected error state:\n%s", view)
	}
}

func TestView_PollAndCounters(t *testing.T) {
	p := pollPost()
	p.Liked = true
	p.LikesCount = 1200
	m, _ := newFixture([]domain.Post{p})
	m = loaded(m)
	m, _ = m.Update(PollLoadedMsg{PostID: p.ID, Poll: testPoll()})

	view := ansi.Strip(m.View())
	for _, want := range []string{"Tabs or spaces?", "1. Tabs", "2. Spaces", "♥ 1.2k", "press 1-9 to vote"} {
		if !strings.Contains(view, want) {
			t.Fatalf("missing %q in view:\n%s", want, view)
		}
	}
}

func TestView_LongBodyIsClipped(t *testing.T) {
	p := makePost("long", baseTime, "a1")
	p.Content = strings.Repeat("word ", 400)
	got := wrapBody(p.Content, 40)

	lines := strings.Split(got, "\n")
	if len(lines) != maxBodyLines {
		t.Fatalf("expected %d lines, got %d", maxBodyLines, len(lines))
	}
	for _, l := range lines {
		if ansi.StringWidth(l) > 40 {
			t.Fatalf("line wider than 40: %q", l)
		}
	}
	if !strings.HasSuffix(lines[len(lines)-1], "…") {
		t.Fatalf("clipped body should end with an ellipsis")
	}
}

func TestEnsureCursorVisible(t *testing.T) {
	m, _ := newFixture(makePosts(30))
	m = loaded(m)
	m.height = 4 + 3 + 2*itemLines

	m.cursor = 10
	m.ensureCursorVisible()
	if m.startIndex != 9 {
		t.Fatalf("startIndex = %d, want 9", m.startIndex)
	}
	m.cursor = 3
	m.ensureCursorVisible()
	if m.startIndex != 3 {
		t.Fatalf("startIndex = %d, want 3", m.startIndex)
	}
}
