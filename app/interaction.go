package app

import (
	"context"

	"github.com/thetruth/truthterm/domain"
)

// Interaction is a two-state relation between the user and a target.
type Interaction int

const (
	InteractionLike Interaction = iota
	InteractionBookmark
	InteractionRepost
	InteractionFollow
)

func (i Interaction) String() string {
	switch i {
	case InteractionLike:
		return "like"
	case InteractionBookmark:
		return "bookmark"
	case InteractionRepost:
		return "repost"
	case InteractionFollow:
		return "follow"
	default:
		return "unknown"
	}
}

// InteractionService creates and deletes interaction rows keyed by
// (user, target). Both directions are idempotent at the data layer.
type InteractionService interface {
	// Set records the interaction. targetID is a post ID, or an author ID
	// for InteractionFollow.
	Set(ctx context.Context, kind Interaction, targetID string) error

	// Unset removes the interaction.
	Unset(ctx context.Context, kind Interaction, targetID string) error

	// Vote casts the user's single vote in a poll. Votes cannot be withdrawn.
	Vote(ctx context.Context, pollID, optionID string) error

	// Poll returns the poll attached to postID with the viewer's vote, or
	// domain.ErrNotFound.
	Poll(ctx context.Context, postID string) (domain.Poll, error)
}
