package domain

import (
	"testing"
	"time"
)

func TestPostNewerThan_TiesBreakOnID(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a := Post{ID: "b", CreatedAt: at}
	b := Post{ID: "a", CreatedAt: at}
	older := Post{ID: "z", CreatedAt: at.Add(-time.Second)}

	if !a.NewerThan(b) || b.NewerThan(a) {
		t.Fatalf("equal timestamps must order by ID")
	}
	if !b.NewerThan(older) || older.NewerThan(a) {
		t.Fatalf("later timestamp must sort first")
	}
}

func TestPostWithCounters_KeepsViewerState(t *testing.T) {
	p := Post{ID: "1", LikesCount: 1, Liked: true, Content: "hi"}
	got := p.WithCounters(Counters{LikesCount: 7, CommentsCount: 2, Pinned: true})

	if got.LikesCount != 7 || got.CommentsCount != 2 || !got.Pinned {
		t.Fatalf("counters not applied: %+v", got)
	}
	if !got.Liked || got.Content != "hi" {
		t.Fatalf("viewer state lost: %+v", got)
	}
}

func TestPollWithVote(t *testing.T) {
	p := Poll{ID: "poll", Options: []PollOption{{ID: "o1", Votes: 1}, {ID: "o2"}}}
	got := p.WithVote("o2")

	if got.VotedOption != "o2" || got.Options[1].Votes != 1 || got.TotalVotes() != 2 {
		t.Fatalf("vote not applied: %+v", got)
	}
	if p.Options[1].Votes != 0 {
		t.Fatalf("WithVote mutated the original options")
	}
}

func TestPollClosed(t *testing.T) {
	now := time.Now()
	if (Poll{}).Closed(now) {
		t.Fatalf("poll without end must stay open")
	}
	if !(Poll{EndsAt: now.Add(-time.Minute)}).Closed(now) {
		t.Fatalf("expired poll must be closed")
	}
}
