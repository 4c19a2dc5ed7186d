package feed

import (
	"context"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/thetruth/truthterm/app"
	"github.com/thetruth/truthterm/domain"
)

const firstPageKey = "first"

// pageQueryKey names the page fetched before cursor.
func pageQueryKey(cursor time.Time) string {
	return "before:" + cursor.UTC().Format(time.RFC3339Nano)
}

func (m Model) fetchFirstPage(reqSeq int) tea.Cmd {
	timeline := m.deps.Timeline
	limit := m.deps.PageSize
	src := m.source
	return func() tea.Msg {
		posts, err := timeline.FetchPage(context.Background(), src, time.Time{}, limit)
		if err != nil {
			return PostsErrorMsg{Err: err, QueryKey: firstPageKey, ReqSeq: reqSeq}
		}
		return PostsLoadedMsg{Posts: posts, QueryKey: firstPageKey, ReqSeq: reqSeq}
	}
}

func (m Model) fetchOlderPosts(reqSeq int) tea.Cmd {
	timeline := m.deps.Timeline
	limit := m.deps.PageSize
	before := m.oldest
	src := m.source
	queryKey := pageQueryKey(before)
	return func() tea.Msg {
		posts, err := timeline.FetchPage(context.Background(), src, before, limit)
		if err != nil {
			return PostsPageErrorMsg{Err: err, QueryKey: queryKey, ReqSeq: reqSeq}
		}
		return PostsPageLoadedMsg{Posts: posts, QueryKey: queryKey, ReqSeq: reqSeq}
	}
}

// subscribe joins the posts channel. Handler callbacks run on the realtime
// client's goroutine and hand their events to the inbox.
func (m Model) subscribe(subID int) tea.Cmd {
	if m.deps.Changes == nil {
		return nil
	}
	changes := m.deps.Changes
	inbox := m.inbox
	return func() tea.Msg {
		sub, err := changes.SubscribePosts(context.Background(), app.PostHandlers{
			OnInsert: func(p domain.Post) { inbox.Post(PostInsertedMsg{SubID: subID, Post: p}) },
			OnUpdate: func(p domain.Post) { inbox.Post(PostUpdatedMsg{SubID: subID, Post: p}) },
			OnError:  func(err error) { inbox.Post(RealtimeErrorMsg{SubID: subID, Err: err}) },
		})
		if err != nil {
			return SubscribeErrorMsg{SubID: subID, Err: err}
		}
		return SubscribedMsg{SubID: subID, Sub: sub}
	}
}

func (m Model) toggle(kind app.Interaction, target string, current bool) tea.Cmd {
	svc := m.deps.Interactions
	want := !current
	return func() tea.Msg {
		var err error
		if want {
			err = svc.Set(context.Background(), kind, target)
		} else {
			err = svc.Unset(context.Background(), kind, target)
		}
		return ToggleResultMsg{Target: target, Kind: kind, Want: want, Err: err}
	}
}

func (m Model) fetchPoll(postID string) tea.Cmd {
	svc := m.deps.Interactions
	return func() tea.Msg {
		poll, err := svc.Poll(context.Background(), postID)
		return PollLoadedMsg{PostID: postID, Poll: poll, Err: err}
	}
}

func (m Model) vote(postID, pollID, optionID string) tea.Cmd {
	svc := m.deps.Interactions
	return func() tea.Msg {
		err := svc.Vote(context.Background(), pollID, optionID)
		return VoteResultMsg{PostID: postID, OptionID: optionID, Err: err}
	}
}

func (m Model) fetchProfile(userID string) tea.Cmd {
	svc := m.deps.Profiles
	return func() tea.Msg {
		p, err := svc.Profile(context.Background(), userID)
		return ProfileLoadedMsg{UserID: userID, Profile: p, Err: err}
	}
}

func (m Model) fetchTrending() tea.Cmd {
	svc := m.deps.Hashtags
	return func() tea.Msg {
		tags, err := svc.Trending(context.Background(), trendingLimit)
		return TrendingLoadedMsg{Tags: tags, Err: err}
	}
}

func (m Model) deletePost(id string) tea.Cmd {
	posts := m.deps.Posts
	return func() tea.Msg {
		return DeleteResultMsg{ID: id, Err: posts.Delete(context.Background(), id)}
	}
}

func (m Model) reportPost(id, reason string) tea.Cmd {
	posts := m.deps.Posts
	return func() tea.Msg {
		return ReportResultMsg{ID: id, Reason: reason, Err: posts.Report(context.Background(), id, reason)}
	}
}

func openURL(rawURL string) tea.Cmd {
	return func() tea.Msg {
		if !isSafeExternalURL(rawURL) {
			return nil
		}
		opener := "xdg-open"
		if runtime.GOOS == "darwin" {
			opener = "open"
		}
		_ = exec.Command(opener, rawURL).Start()
		return nil
	}
}

func isSafeExternalURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if parsed.Host == "" {
		return false
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		return true
	default:
		return false
	}
}
