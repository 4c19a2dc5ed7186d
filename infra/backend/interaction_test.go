package backend

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thetruth/truthterm/app"
	"github.com/thetruth/truthterm/domain"
)

func TestInteractionService_SetInsertsKeyedRow(t *testing.T) {
	tests := []struct {
		kind  app.Interaction
		route string
		body  string
	}{
		{app.InteractionLike, "POST /rest/v1/likes", `{"post_id":"p1","user_id":"me"}`},
		{app.InteractionBookmark, "POST /rest/v1/bookmarks", `{"post_id":"p1","user_id":"me"}`},
		{app.InteractionRepost, "POST /rest/v1/reposts", `{"post_id":"p1","user_id":"me"}`},
		{app.InteractionFollow, "POST /rest/v1/follows", `{"follower_id":"me","following_id":"p1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			fake := newFakeREST()
			fake.handle(tt.route, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusCreated)
			})
			svc := NewInteractionService(newTestClient(fake), "me")

			require.NoError(t, svc.Set(context.Background(), tt.kind, "p1"))
			reqs := fake.requests(tt.route)
			require.Len(t, reqs, 1)
			assert.JSONEq(t, tt.body, reqs[0].Body)
			assert.Equal(t, "return=minimal", reqs[0].Header.Get("Prefer"))
		})
	}
}

func TestInteractionService_SetTreatsConflictAsDone(t *testing.T) {
	fake := newFakeREST()
	fake.json("POST /rest/v1/likes", http.StatusConflict, map[string]any{"code": "23505", "message": "duplicate"})
	svc := NewInteractionService(newTestClient(fake), "me")

	assert.NoError(t, svc.Set(context.Background(), app.InteractionLike, "p1"))
}

func TestInteractionService_SetSurfacesOtherErrors(t *testing.T) {
	fake := newFakeREST()
	fake.json("POST /rest/v1/likes", http.StatusForbidden, map[string]any{"code": "42501", "message": "permission denied"})
	svc := NewInteractionService(newTestClient(fake), "me")

	err := svc.Set(context.Background(), app.InteractionLike, "p1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setting like")
}

func TestInteractionService_UnsetDeletesByCompositeKey(t *testing.T) {
	fake := newFakeREST()
	fake.handle("DELETE /rest/v1/follows", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	svc := NewInteractionService(newTestClient(fake), "me")

	require.NoError(t, svc.Unset(context.Background(), app.InteractionFollow, "a1"))
	reqs := fake.requests("DELETE /rest/v1/follows")
	require.Len(t, reqs, 1)
	assert.Equal(t, []string{"eq.me"}, reqs[0].Query["follower_id"])
	assert.Equal(t, []string{"eq.a1"}, reqs[0].Query["following_id"])
}

func TestInteractionService_RejectsSelfFollowAndSignedOut(t *testing.T) {
	fake := newFakeREST()
	svc := NewInteractionService(newTestClient(fake), "me")
	assert.Error(t, svc.Set(context.Background(), app.InteractionFollow, "me"))

	signedOut := NewInteractionService(newTestClient(fake), "")
	assert.True(t, errors.Is(signedOut.Set(context.Background(), app.InteractionLike, "p1"), domain.ErrNoSession))
	assert.True(t, errors.Is(signedOut.Unset(context.Background(), app.InteractionLike, "p1"), domain.ErrNoSession))
	assert.Zero(t, fake.count())
}

func TestInteractionService_Vote(t *testing.T) {
	fake := newFakeREST()
	fake.handle("POST /rest/v1/poll_votes", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	svc := NewInteractionService(newTestClient(fake), "me")

	require.NoError(t, svc.Vote(context.Background(), "poll1", "opt2"))
	reqs := fake.requests("POST /rest/v1/poll_votes")
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"poll_id":"poll1","option_id":"opt2","user_id":"me"}`, reqs[0].Body)

	assert.True(t, errors.Is(svc.Vote(context.Background(), "", "opt2"), domain.ErrMissingField))
}

func TestInteractionService_SecondVoteIsRejected(t *testing.T) {
	fake := newFakeREST()
	fake.json("POST /rest/v1/poll_votes", http.StatusConflict, map[string]any{"code": "23505", "message": "duplicate"})
	svc := NewInteractionService(newTestClient(fake), "me")

	assert.True(t, errors.Is(svc.Vote(context.Background(), "poll1", "opt1"), domain.ErrAlreadyVoted))
}
