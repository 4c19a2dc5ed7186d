package app

import (
	"context"
	"time"

	"github.com/thetruth/truthterm/domain"
)

// TimelineService fetches pages of a feed source.
type TimelineService interface {
	// FetchPage returns up to limit posts of src created strictly before
	// the given time, newest first. A zero time fetches the newest page.
	FetchPage(ctx context.Context, src domain.Source, before time.Time, limit int) ([]domain.Post, error)

	// Invalidate drops cached pages so the next fetch reaches the backend.
	Invalidate()
}
