package feed

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/thetruth/truthterm/app"
	"github.com/thetruth/truthterm/domain"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// stubTimeline serves pages out of an in-memory feed.
type stubTimeline struct {
	posts       []domain.Post
	calls       []time.Time
	sources     []domain.Source
	invalidated int
	err         error
}

func (s *stubTimeline) FetchPage(_ context.Context, src domain.Source, before time.Time, limit int) ([]domain.Post, error) {
	s.calls = append(s.calls, before)
	s.sources = append(s.sources, src)
	if s.err != nil {
		return nil, s.err
	}
	sorted := slices.Clone(s.posts)
	slices.SortFunc(sorted, func(a, b domain.Post) int {
		if a.NewerThan(b) {
			return -1
		}
		return 1
	})
	var out []domain.Post
	for _, p := range sorted {
		if !src.Matches(p) {
			continue
		}
		if !before.IsZero() && !p.CreatedAt.Before(before) {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *stubTimeline) Invalidate() { s.invalidated++ }

// stubInteractions counts calls and fails with err when set.
type stubInteractions struct {
	mu    sync.Mutex
	calls []string
	err   error
	poll  domain.Poll
}

func (s *stubInteractions) record(call string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
	return s.err
}

func (s *stubInteractions) Set(_ context.Context, kind app.Interaction, target string) error {
	return s.record("set " + kind.String() + " " + target)
}

func (s *stubInteractions) Unset(_ context.Context, kind app.Interaction, target string) error {
	return s.record("unset " + kind.String() + " " + target)
}

func (s *stubInteractions) Vote(_ context.Context, pollID, optionID string) error {
	return s.record("vote " + pollID + " " + optionID)
}

func (s *stubInteractions) Poll(_ context.Context, postID string) (domain.Poll, error) {
	if err := s.record("poll " + postID); err != nil {
		return domain.Poll{}, err
	}
	return s.poll, nil
}

func (s *stubInteractions) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type stubPosts struct {
	deleted  []string
	reported []string
	err      error
}

func (s *stubPosts) Create(context.Context, domain.NewPost) (domain.Post, error) {
	return domain.Post{}, s.err
}

func (s *stubPosts) Delete(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return s.err
}

func (s *stubPosts) Comment(context.Context, string, string) error { return s.err }

func (s *stubPosts) Report(_ context.Context, id, reason string) error {
	s.reported = append(s.reported, id+":"+reason)
	return s.err
}

type stubSub struct{ closed int }

func (s *stubSub) Close() error {
	s.closed++
	return nil
}

type stubProfiles struct {
	profiles map[string]domain.Profile
	calls    []string
	err      error
}

func (s *stubProfiles) Profile(_ context.Context, userID string) (domain.Profile, error) {
	s.calls = append(s.calls, userID)
	if s.err != nil {
		return domain.Profile{}, s.err
	}
	p, ok := s.profiles[userID]
	if !ok {
		return domain.Profile{}, domain.ErrNotFound
	}
	return p, nil
}

type stubHashtags struct {
	tags []domain.Hashtag
	err  error
}

func (s *stubHashtags) Trending(_ context.Context, limit int) ([]domain.Hashtag, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.tags[:min(limit, len(s.tags))], nil
}

func makePost(id string, createdAt time.Time, authorID string) domain.Post {
	return domain.Post{
		ID:        id,
		AuthorID:  authorID,
		Author:    domain.Author{ID: authorID, Username: "user" + authorID},
		Content:   "post " + id,
		PostType:  "text",
		CreatedAt: createdAt,
	}
}

// makePosts returns n posts one minute apart, newest first.
func makePosts(n int) []domain.Post {
	out := make([]domain.Post, n)
	for i := range n {
		out[i] = makePost(fmt.Sprintf("p%03d", i), baseTime.Add(-time.Duration(i)*time.Minute), "a1")
	}
	return out
}

type fixture struct {
	timeline     *stubTimeline
	interactions *stubInteractions
	posts        *stubPosts
	profiles     *stubProfiles
	hashtags     *stubHashtags
}

func newFixture(posts []domain.Post) (Model, *fixture) {
	f := &fixture{
		timeline:     &stubTimeline{posts: posts},
		interactions: &stubInteractions{},
		posts:        &stubPosts{},
		profiles:     &stubProfiles{profiles: map[string]domain.Profile{}},
		hashtags:     &stubHashtags{},
	}
	m := New(Deps{
		Timeline:     f.timeline,
		Interactions: f.interactions,
		Posts:        f.posts,
		Profiles:     f.profiles,
		Hashtags:     f.hashtags,
		PageSize:     20,
	})
	m.now = func() time.Time { return baseTime }
	m.mounted = true
	m.subID = 1
	return m, f
}

// run executes cmd and feeds its message back into the model.
func run(m Model, cmd tea.Cmd) (Model, tea.Msg) {
	if cmd == nil {
		return m, nil
	}
	msg := cmd()
	m, _ = m.Update(msg)
	return m, msg
}

func loaded(m Model) Model {
	m, cmd := m.loadInitial()
	m, _ = run(m, cmd)
	return m
}

func press(m Model, k string) (Model, tea.Cmd) {
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	return m.Update(msg)
}

func ids(posts []domain.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}
