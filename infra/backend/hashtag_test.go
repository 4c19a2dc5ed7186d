package backend

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thetruth/truthterm/domain"
	"github.com/thetruth/truthterm/infra/query"
)

func TestHashtagService_TrendingShapeAndCache(t *testing.T) {
	fake := newFakeREST()
	fake.json("GET /rest/v1/hashtags", http.StatusOK, []map[string]any{
		{"tag": "Go", "use_count": 40, "trending_score": 72.5},
		{"tag": "", "use_count": 1, "trending_score": 1},
		{"tag": "#tui", "use_count": nil, "trending_score": nil},
	})
	svc := NewHashtagService(newTestClient(fake), query.New())

	tags, err := svc.Trending(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, []domain.Hashtag{
		{Tag: "go", UseCount: 40, TrendingScore: 72.5},
		{Tag: "tui"},
	}, tags)

	reqs := fake.requests("GET /rest/v1/hashtags")
	require.Len(t, reqs, 1)
	assert.Equal(t, []string{"trending_score.desc"}, reqs[0].Query["order"])
	assert.Equal(t, []string{"5"}, reqs[0].Query["limit"])

	_, err = svc.Trending(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, fake.requests("GET /rest/v1/hashtags"), 1)
}

func TestHashtagService_ErrorIsWrapped(t *testing.T) {
	fake := newFakeREST()
	fake.json("GET /rest/v1/hashtags", http.StatusInternalServerError, map[string]any{"message": "boom"})
	svc := NewHashtagService(newTestClient(fake), query.New())

	_, err := svc.Trending(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trending hashtags")
}
