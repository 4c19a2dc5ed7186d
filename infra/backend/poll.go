package backend

import (
	"context"
	"fmt"
	"slices"

	"github.com/thetruth/truthterm/domain"
)

const pollSelect = "id,question,ends_at,post_id,poll_options(id,option_text,vote_count)"

type pollOptionRow struct {
	ID         string `json:"id"`
	OptionText string `json:"option_text"`
	VoteCount  *int   `json:"vote_count"`
}

type pollRow struct {
	ID       string          `json:"id"`
	Question string          `json:"question"`
	EndsAt   *string         `json:"ends_at"`
	PostID   string          `json:"post_id"`
	Options  []pollOptionRow `json:"poll_options"`
}

func (r pollRow) toDomain() domain.Poll {
	p := domain.Poll{
		ID:       r.ID,
		PostID:   r.PostID,
		Question: sanitizeText(r.Question),
	}
	if r.EndsAt != nil {
		p.EndsAt, _ = ParseTimestamp(*r.EndsAt)
	}
	for _, o := range r.Options {
		p.Options = append(p.Options, domain.PollOption{
			ID:    o.ID,
			Text:  sanitizeText(o.OptionText),
			Votes: derefInt(o.VoteCount),
		})
	}
	return p
}

// Poll loads the poll of a post. The embedded options come back in insertion
// order, which is the order the author listed them.
func (s *interactionService) Poll(ctx context.Context, postID string) (domain.Poll, error) {
	if postID == "" {
		return domain.Poll{}, fmt.Errorf("poll: %w", domain.ErrMissingField)
	}
	var rows []pollRow
	err := s.client.Select(ctx, "polls", Query{
		Select:  pollSelect,
		Filters: []Filter{Eq("post_id", postID)},
		Limit:   1,
	}, &rows)
	if err != nil {
		return domain.Poll{}, err
	}
	if len(rows) == 0 {
		return domain.Poll{}, fmt.Errorf("poll for post %s: %w", postID, domain.ErrNotFound)
	}
	poll := rows[0].toDomain()
	if s.viewerID == "" {
		return poll, nil
	}

	var votes []struct {
		OptionID string `json:"option_id"`
	}
	err = s.client.Select(ctx, "poll_votes", Query{
		Select:  "option_id",
		Filters: []Filter{Eq("poll_id", poll.ID), Eq("user_id", s.viewerID)},
		Limit:   1,
	}, &votes)
	if err != nil {
		return domain.Poll{}, err
	}
	if len(votes) > 0 && slices.ContainsFunc(poll.Options, func(o domain.PollOption) bool {
		return o.ID == votes[0].OptionID
	}) {
		poll.VotedOption = votes[0].OptionID
	}
	return poll, nil
}
