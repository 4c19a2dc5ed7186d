package backend

import (
	"context"
	"fmt"

	"github.com/thetruth/truthterm/app"
	"github.com/thetruth/truthterm/domain"
)

const (
	interactionLike     = app.InteractionLike
	interactionBookmark = app.InteractionBookmark
	interactionRepost   = app.InteractionRepost
	interactionFollow   = app.InteractionFollow
)

// tableFor maps an interaction to the table holding its rows.
var tableFor = map[app.Interaction]string{
	interactionLike:     "likes",
	interactionBookmark: "bookmarks",
	interactionRepost:   "reposts",
	interactionFollow:   "follows",
}

// interactionService implements app.InteractionService. Rows are keyed by
// (viewer, target), so setting twice or unsetting a missing row leaves the
// data unchanged.
type interactionService struct {
	client   *Client
	viewerID string
}

// NewInteractionService creates an InteractionService acting as viewerID.
func NewInteractionService(client *Client, viewerID string) *interactionService {
	return &interactionService{client: client, viewerID: viewerID}
}

// key returns the row identifying the interaction.
func (s *interactionService) key(kind app.Interaction, targetID string) (string, map[string]string, error) {
	table, ok := tableFor[kind]
	if !ok {
		return "", nil, fmt.Errorf("unknown interaction %d", kind)
	}
	if kind == interactionFollow {
		return table, map[string]string{"follower_id": s.viewerID, "following_id": targetID}, nil
	}
	return table, map[string]string{"post_id": targetID, "user_id": s.viewerID}, nil
}

func (s *interactionService) Set(ctx context.Context, kind app.Interaction, targetID string) error {
	if s.viewerID == "" {
		return domain.ErrNoSession
	}
	if kind == interactionFollow && targetID == s.viewerID {
		return fmt.Errorf("cannot follow yourself")
	}
	table, row, err := s.key(kind, targetID)
	if err != nil {
		return err
	}
	if err := s.client.Insert(ctx, table, row, nil); err != nil {
		if domain.IsConflict(err) {
			return nil
		}
		return fmt.Errorf("setting %s: %w", kind, err)
	}
	return nil
}

func (s *interactionService) Unset(ctx context.Context, kind app.Interaction, targetID string) error {
	if s.viewerID == "" {
		return domain.ErrNoSession
	}
	table, row, err := s.key(kind, targetID)
	if err != nil {
		return err
	}
	filters := make([]Filter, 0, len(row))
	for col, v := range row {
		filters = append(filters, Eq(col, v))
	}
	if err := s.client.Delete(ctx, table, filters); err != nil {
		return fmt.Errorf("unsetting %s: %w", kind, err)
	}
	return nil
}

func (s *interactionService) Vote(ctx context.Context, pollID, optionID string) error {
	if s.viewerID == "" {
		return domain.ErrNoSession
	}
	if pollID == "" || optionID == "" {
		return fmt.Errorf("poll vote: %w", domain.ErrMissingField)
	}
	row := map[string]string{
		"poll_id":   pollID,
		"option_id": optionID,
		"user_id":   s.viewerID,
	}
	if err := s.client.Insert(ctx, "poll_votes", row, nil); err != nil {
		if domain.IsConflict(err) {
			return domain.ErrAlreadyVoted
		}
		return fmt.Errorf("voting: %w", err)
	}
	return nil
}
