package backend

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/thetruth/truthterm/domain"
	"github.com/thetruth/truthterm/infra/query"
)

type hashtagRow struct {
	Tag           string   `json:"tag"`
	UseCount      *int     `json:"use_count"`
	TrendingScore *float64 `json:"trending_score"`
}

// hashtagService implements app.HashtagService.
type hashtagService struct {
	client *Client
	cache  *query.Cache
}

// NewHashtagService creates a HashtagService. The trending list is cached.
func NewHashtagService(client *Client, cache *query.Cache) *hashtagService {
	if cache == nil {
		cache = query.New()
	}
	return &hashtagService{client: client, cache: cache}
}

func (s *hashtagService) Trending(ctx context.Context, limit int) ([]domain.Hashtag, error) {
	if limit <= 0 {
		limit = 10
	}
	tags, err := query.Fetch(ctx, s.cache, trendingPrefix+strconv.Itoa(limit), trendingStale, func(ctx context.Context) ([]domain.Hashtag, error) {
		var rows []hashtagRow
		err := s.client.Select(ctx, "hashtags", Query{
			Select: "tag,use_count,trending_score",
			Order:  []string{"trending_score.desc"},
			Limit:  limit,
		}, &rows)
		if err != nil {
			return nil, fmt.Errorf("fetching trending hashtags: %w", err)
		}
		out := make([]domain.Hashtag, 0, len(rows))
		for _, r := range rows {
			tag := domain.NormalizeTag(sanitizeForTerminal(r.Tag))
			if tag == "" {
				continue
			}
			h := domain.Hashtag{Tag: tag, UseCount: derefInt(r.UseCount)}
			if r.TrendingScore != nil {
				h.TrendingScore = *r.TrendingScore
			}
			out = append(out, h)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(tags), nil
}
