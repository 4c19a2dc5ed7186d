package backend

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/thetruth/truthterm/domain"
	"github.com/thetruth/truthterm/infra/query"
)

// pagePrefix namespaces feed pages in the query cache.
const pagePrefix = "posts:"

// timelineService implements app.TimelineService over the posts table.
// Hashtag feeds go through the post_hashtags index.
type timelineService struct {
	client    *Client
	viewerID  string // Marks own posts and resolves viewer flags.
	cache     *query.Cache
	staleTime time.Duration
	log       *zap.Logger
}

// NewTimelineService creates a TimelineService. Pages are cached in cache
// for staleTime; pass zero to always hit the backend.
func NewTimelineService(client *Client, viewerID string, cache *query.Cache, staleTime time.Duration) *timelineService {
	if cache == nil {
		cache = query.New()
	}
	return &timelineService{
		client:    client,
		viewerID:  viewerID,
		cache:     cache,
		staleTime: staleTime,
		log:       client.log,
	}
}

func pageKey(src domain.Source, before time.Time, limit int) string {
	key := pagePrefix + src.Key() + ":"
	if before.IsZero() {
		return key + "first:" + strconv.Itoa(limit)
	}
	return key + "before:" + FormatTimestamp(before) + ":" + strconv.Itoa(limit)
}

func (s *timelineService) FetchPage(ctx context.Context, src domain.Source, before time.Time, limit int) ([]domain.Post, error) {
	posts, err := query.Fetch(ctx, s.cache, pageKey(src, before, limit), s.staleTime, func(ctx context.Context) ([]domain.Post, error) {
		return s.fetchPage(ctx, src, before, limit)
	})
	if err != nil {
		return nil, err
	}
	// Callers own the returned slice; the cached copy stays untouched.
	return slices.Clone(posts), nil
}

func (s *timelineService) Invalidate() {
	s.cache.Invalidate(pagePrefix)
}

func (s *timelineService) fetchPage(ctx context.Context, src domain.Source, before time.Time, limit int) ([]domain.Post, error) {
	q := Query{
		Select: postSelect,
		Order:  []string{"created_at.desc", "id.desc"},
		Limit:  limit,
	}
	switch src.Kind {
	case domain.SourceUser:
		if src.ID == "" {
			return nil, fmt.Errorf("user feed: %w", domain.ErrMissingField)
		}
		q.Filters = append(q.Filters, Eq("user_id", src.ID))
	case domain.SourceHashtag:
		ids, err := s.taggedPostIDs(ctx, src.ID)
		if err != nil {
			return nil, fmt.Errorf("fetching #%s: %w", src.ID, err)
		}
		if len(ids) == 0 {
			return []domain.Post{}, nil
		}
		q.Filters = append(q.Filters, In("id", ids))
	}
	if !before.IsZero() {
		q.Filters = append(q.Filters, Before("created_at", before))
	}

	var rows []postRow
	if err := s.client.Select(ctx, "posts", q, &rows); err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	posts := mapPosts(rows, s.viewerID)

	if err := s.decorate(ctx, posts); err != nil {
		// Viewer flags are a convenience: toggles tolerate a wrong initial
		// state because set and unset are idempotent.
		s.log.Warn("resolving viewer state failed", zap.Error(err))
	}
	return posts, nil
}

// taggedPostIDs resolves a tag to the IDs of the posts carrying it. An
// unknown tag has no posts.
func (s *timelineService) taggedPostIDs(ctx context.Context, tag string) ([]string, error) {
	if tag == "" {
		return nil, domain.ErrMissingField
	}
	var tags []struct {
		ID string `json:"id"`
	}
	err := s.client.Select(ctx, "hashtags", Query{
		Select:  "id",
		Filters: []Filter{Eq("tag", tag)},
		Limit:   1,
	}, &tags)
	if err != nil || len(tags) == 0 {
		return nil, err
	}
	var refs []postRef
	err = s.client.Select(ctx, "post_hashtags", Query{
		Select:  "post_id",
		Filters: []Filter{Eq("hashtag_id", tags[0].ID)},
	}, &refs)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.PostID)
	}
	return ids, nil
}

type postRef struct {
	PostID string `json:"post_id"`
}

type followRef struct {
	FollowingID string `json:"following_id"`
}

// decorate fills the viewer flags of posts in place.
func (s *timelineService) decorate(ctx context.Context, posts []domain.Post) error {
	if s.viewerID == "" || len(posts) == 0 {
		return nil
	}

	postIDs := make([]string, 0, len(posts))
	authorIDs := make([]string, 0, len(posts))
	seenAuthor := make(map[string]struct{}, len(posts))
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
		if p.AuthorID == "" || p.IsOwn {
			continue
		}
		if _, ok := seenAuthor[p.AuthorID]; ok {
			continue
		}
		seenAuthor[p.AuthorID] = struct{}{}
		authorIDs = append(authorIDs, p.AuthorID)
	}

	var liked, bookmarked, reposted, following map[string]bool
	g, gctx := errgroup.WithContext(ctx)
	lookup := func(table string, dst *map[string]bool) {
		g.Go(func() error {
			var refs []postRef
			err := s.client.Select(gctx, table, Query{
				Select:  "post_id",
				Filters: []Filter{Eq("user_id", s.viewerID), In("post_id", postIDs)},
			}, &refs)
			if err != nil {
				return err
			}
			m := make(map[string]bool, len(refs))
			for _, r := range refs {
				m[r.PostID] = true
			}
			*dst = m
			return nil
		})
	}
	lookup(tableFor[interactionLike], &liked)
	lookup(tableFor[interactionBookmark], &bookmarked)
	lookup(tableFor[interactionRepost], &reposted)
	if len(authorIDs) > 0 {
		g.Go(func() error {
			var refs []followRef
			err := s.client.Select(gctx, "follows", Query{
				Select:  "following_id",
				Filters: []Filter{Eq("follower_id", s.viewerID), In("following_id", authorIDs)},
			}, &refs)
			if err != nil {
				return err
			}
			m := make(map[string]bool, len(refs))
			for _, r := range refs {
				m[r.FollowingID] = true
			}
			following = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i := range posts {
		posts[i].Liked = liked[posts[i].ID]
		posts[i].Bookmarked = bookmarked[posts[i].ID]
		posts[i].Reposted = reposted[posts[i].ID]
		posts[i].FollowingAuthor = following[posts[i].AuthorID]
	}
	return nil
}
