package app

import (
	"context"

	"github.com/thetruth/truthterm/domain"
)

// ProfileService reads public profiles.
type ProfileService interface {
	// Profile returns the profile of userID with follow counts and whether
	// the viewer follows them, or domain.ErrNotFound.
	Profile(ctx context.Context, userID string) (domain.Profile, error)
}

// HashtagService reads the hashtag index.
type HashtagService interface {
	// Trending returns up to limit tags, highest trending score first.
	Trending(ctx context.Context, limit int) ([]domain.Hashtag, error)
}
