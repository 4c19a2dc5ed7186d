package backend

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thetruth/truthterm/app"
)

func TestModerationService_ParsesVerdict(t *testing.T) {
	fake := newFakeREST()
	fake.json("POST /functions/v1/moderate-content", http.StatusOK, map[string]any{
		"isApproved":        false,
		"flaggedCategories": []string{"harassment"},
		"confidence":        0.92,
		"suggestedAction":   "block",
		"reason":            "targets a person",
	})
	svc := NewModerationService(newTestClient(fake))

	v := svc.Check(context.Background(), "some text", app.ContentComment)
	assert.False(t, v.Approved)
	assert.Equal(t, app.ActionBlock, v.Action)
	assert.Equal(t, []string{"harassment"}, v.Categories)
	assert.InDelta(t, 0.92, v.Confidence, 1e-9)
	assert.Equal(t, "targets a person", v.Reason)

	reqs := fake.requests("POST /functions/v1/moderate-content")
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"content":"some text","contentType":"comment"}`, reqs[0].Body)
}

func TestModerationService_FailsOpen(t *testing.T) {
	fake := newFakeREST()
	fake.json("POST /functions/v1/moderate-content", http.StatusInternalServerError, map[string]any{"message": "down"})
	svc := NewModerationService(newTestClient(fake))

	v := svc.Check(context.Background(), "some text", app.ContentText)
	assert.True(t, v.Approved)
	assert.Equal(t, app.ActionAllow, v.Action)
}

func TestModerationService_UnknownActionFollowsApproval(t *testing.T) {
	fake := newFakeREST()
	fake.json("POST /functions/v1/moderate-content", http.StatusOK, map[string]any{
		"isApproved":      false,
		"suggestedAction": "escalate",
	})
	svc := NewModerationService(newTestClient(fake))

	assert.Equal(t, app.ActionBlock, svc.Check(context.Background(), "x", "").Action)
}

func TestModerationService_EmptyContentSkipsCall(t *testing.T) {
	fake := newFakeREST()
	svc := NewModerationService(newTestClient(fake))

	v := svc.Check(context.Background(), "  ", app.ContentText)
	assert.Equal(t, app.ActionAllow, v.Action)
	assert.Zero(t, fake.count())
}
