package feed

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/thetruth/truthterm/app"
	"github.com/thetruth/truthterm/domain"
)

func TestRealtime_InsertCountsAndFlushBringsToHead(t *testing.T) {
	m, f := newFixture(makePosts(25))
	m = loaded(m)
	m.cursor = 4
	before := ids(m.Posts())

	x := makePost("x-new", baseTime.Add(time.Minute), "a2")
	m, _ = m.Update(PostInsertedMsg{SubID: m.subID, Post: x})
	m, _ = m.Update(PostInsertedMsg{SubID: m.subID, Post: x})

	if m.NewPostCount() != 1 {
		t.Fatalf("distinct inserts counted once, got %d", m.NewPostCount())
	}
	if !slices.Equal(ids(m.Posts()), before) || m.Cursor() != 4 {
		t.Fatalf("insert must not touch the visible feed")
	}

	f.timeline.posts = append(f.timeline.posts, x)
	m, cmd := press(m, "n")
	if m.NewPostCount() != 0 || f.timeline.invalidated != 1 {
		t.Fatalf("flush must reset the counter and drop cached pages")
	}
	m, _ = run(m, cmd)

	if m.Posts()[0].ID != "x-new" || m.Cursor() != 0 {
		t.Fatalf("expected the new post at the head, got %s (cursor %d)", m.Posts()[0].ID, m.Cursor())
	}
	if len(m.Posts()) != 20 || !m.HasMore() {
		t.Fatalf("flush reloads the first page")
	}
}

func TestRealtime_InsertOfVisiblePostIgnored(t *testing.T) {
	m, _ := newFixture(makePosts(5))
	m = loaded(m)

	m, _ = m.Update(PostInsertedMsg{SubID: m.subID, Post: m.Posts()[0]})
	m, _ = m.Update(PostInsertedMsg{SubID: m.subID, Post: domain.Post{}})
	if m.NewPostCount() != 0 {
		t.Fatalf("got %d", m.NewPostCount())
	}
}

func TestRealtime_FlushWithoutPendingIsIdempotent(t *testing.T) {
	m, f := newFixture(makePosts(30))
	m = loaded(m)
	first := ids(m.Posts())

	m, cmd := press(m, "n")
	if cmd != nil {
		t.Fatalf("n with nothing buffered must not fetch")
	}

	m, cmd = m.flush()
	m, _ = run(m, cmd)
	m, cmd = m.flush()
	m, _ = run(m, cmd)

	if !slices.Equal(ids(m.Posts()), first) || m.NewPostCount() != 0 {
		t.Fatalf("repeated flush changed the feed: %v", ids(m.Posts()))
	}
	if f.timeline.invalidated != 2 {
		t.Fatalf("expected 2 invalidations, got %d", f.timeline.invalidated)
	}
}

func TestRealtime_InsertDuringReloadDroppedOnceVisible(t *testing.T) {
	m, f := newFixture(makePosts(5))
	m = loaded(m)

	x := makePost("x-new", baseTime.Add(time.Minute), "a2")
	f.timeline.posts = append(f.timeline.posts, x)
	m, cmd := m.flush()
	m, _ = m.Update(PostInsertedMsg{SubID: m.subID, Post: x})
	if m.NewPostCount() != 1 {
		t.Fatalf("insert during reload is buffered")
	}
	m, _ = run(m, cmd)
	if m.NewPostCount() != 0 {
		t.Fatalf("reload that shows the post must clear it, got %d", m.NewPostCount())
	}
}

func TestRealtime_UpdatePatchesVisibleCounters(t *testing.T) {
	m, _ := newFixture(makePosts(5))
	m = loaded(m)
	m.posts[2].Liked = true
	m.posts[2].LikesCount = 1

	patch := domain.Post{ID: m.Posts()[2].ID, LikesCount: 9, CommentsCount: 4, RepostCount: 2, Pinned: true}
	m, _ = m.Update(PostUpdatedMsg{SubID: m.subID, Post: patch})

	got := m.Posts()[2]
	if got.LikesCount != 9 || got.CommentsCount != 4 || got.RepostCount != 2 || !got.Pinned {
		t.Fatalf("counters not patched: %+v", got)
	}
	if !got.Liked || got.Author.Username == "" || got.Content == "" {
		t.Fatalf("viewer and author fields must survive a patch: %+v", got)
	}
}

func TestRealtime_UpdateUnknownIDIsNoop(t *testing.T) {
	m, _ := newFixture(makePosts(5))
	m = loaded(m)
	before := slices.Clone(m.Posts())

	m, _ = m.Update(PostUpdatedMsg{SubID: m.subID, Post: domain.Post{ID: "nope", LikesCount: 100}})

	if !slices.Equal(m.Posts(), before) || m.NewPostCount() != 0 {
		t.Fatalf("unknown update changed the feed")
	}
}

func TestRealtime_StaleSubscriptionIgnored(t *testing.T) {
	m, _ := newFixture(makePosts(5))
	m = loaded(m)

	m, cmd := m.Update(PostInsertedMsg{SubID: m.subID + 7, Post: makePost("zzz", baseTime, "a1")})
	if m.NewPostCount() != 0 || cmd != nil {
		t.Fatalf("events from an old subscription must be dropped")
	}
}

func TestRealtime_ErrorsAreLoggedOnly(t *testing.T) {
	m, _ := newFixture(makePosts(5))
	m = loaded(m)

	m, cmd := m.Update(RealtimeErrorMsg{SubID: m.subID, Err: errors.New("socket closed")})
	if cmd == nil {
		t.Fatalf("listener must be re-armed after an error")
	}
	if len(m.Posts()) != 5 || m.Err() != nil {
		t.Fatalf("channel errors must not disturb the feed")
	}
}

func TestRealtime_UnmountClosesSubscription(t *testing.T) {
	m, _ := newFixture(nil)
	sub := &stubSub{}
	m, _ = m.Update(SubscribedMsg{SubID: m.subID, Sub: sub})

	m = m.Unmount()
	if sub.closed != 1 {
		t.Fatalf("unmount must close the channel, closed=%d", sub.closed)
	}

	late := &stubSub{}
	m, _ = m.Update(SubscribedMsg{SubID: 1, Sub: late})
	if late.closed != 1 {
		t.Fatalf("a join finishing after unmount must be released")
	}
	if m.sub != nil {
		t.Fatalf("no subscription should be held after unmount")
	}
}

type stubChanges struct {
	h   app.PostHandlers
	sub *stubSub
	err error
}

func (s *stubChanges) SubscribePosts(_ context.Context, h app.PostHandlers) (app.Subscription, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.h = h
	s.sub = &stubSub{}
	return s.sub, nil
}

func (s *stubChanges) SubscribeNotifications(context.Context, string, func(domain.Notification), func(error)) (app.Subscription, error) {
	return nil, errors.New("not used")
}

func TestRealtime_HandlersReachTheModelThroughInbox(t *testing.T) {
	m, _ := newFixture(makePosts(3))
	m = loaded(m)
	changes := &stubChanges{}
	m.deps.Changes = changes

	m, _ = run(m, m.subscribe(m.subID))
	if m.sub == nil {
		t.Fatalf("expected the subscription to be held")
	}

	go changes.h.OnInsert(makePost("fresh", baseTime.Add(time.Minute), "a2"))
	m, next := run(m, m.inbox.Next())
	if _, ok := next.(PostInsertedMsg); !ok {
		t.Fatalf("expected an insert message, got %T", next)
	}
	if m.NewPostCount() != 1 {
		t.Fatalf("insert not counted")
	}
}

func TestRealtime_SubscribeFailureShowsNotice(t *testing.T) {
	m, _ := newFixture(makePosts(3))
	m = loaded(m)
	m.deps.Changes = &stubChanges{err: errors.New("join timeout")}

	m, _ = run(m, m.subscribe(m.subID))
	if m.sub != nil || !strings.Contains(m.Notice(), "Live updates unavailable") {
		t.Fatalf("expected a notice, got %q", m.Notice())
	}
}
