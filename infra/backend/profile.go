package backend

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/thetruth/truthterm/domain"
	"github.com/thetruth/truthterm/infra/query"
)

const (
	profilePrefix    = "profile:"
	profileStaleTime = 5 * time.Minute
	trendingPrefix   = "hashtags:trending:"
	trendingStale    = 5 * time.Minute
)

type fullProfileRow struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
	IsVerified  *bool   `json:"is_verified"`
	CreatedAt   *string `json:"created_at"`
}

func (r fullProfileRow) toDomain() domain.Profile {
	p := domain.Profile{
		ID:          r.ID,
		Username:    sanitizeForTerminal(r.Username),
		DisplayName: sanitizeForTerminal(deref(r.DisplayName)),
		Bio:         sanitizeText(deref(r.Bio)),
		Verified:    derefBool(r.IsVerified),
	}
	if r.CreatedAt != nil {
		p.CreatedAt, _ = ParseTimestamp(*r.CreatedAt)
	}
	return p
}

// profileService implements app.ProfileService. The profile row is cached;
// follow counts and the viewer's follow state are read fresh.
type profileService struct {
	client   *Client
	viewerID string
	cache    *query.Cache
}

// NewProfileService creates a ProfileService for the signed-in viewer.
func NewProfileService(client *Client, viewerID string, cache *query.Cache) *profileService {
	if cache == nil {
		cache = query.New()
	}
	return &profileService{client: client, viewerID: viewerID, cache: cache}
}

func (s *profileService) Profile(ctx context.Context, userID string) (domain.Profile, error) {
	if userID == "" {
		return domain.Profile{}, fmt.Errorf("profile: %w", domain.ErrMissingField)
	}
	p, err := query.Fetch(ctx, s.cache, profilePrefix+userID, profileStaleTime, func(ctx context.Context) (domain.Profile, error) {
		var rows []fullProfileRow
		err := s.client.Select(ctx, "profiles", Query{
			Select:  "id,username,display_name,bio,is_verified,created_at",
			Filters: []Filter{Eq("id", userID)},
			Limit:   1,
		}, &rows)
		if err != nil {
			return domain.Profile{}, err
		}
		if len(rows) == 0 {
			return domain.Profile{}, fmt.Errorf("profile %s: %w", userID, domain.ErrNotFound)
		}
		return rows[0].toDomain(), nil
	})
	if err != nil {
		return domain.Profile{}, err
	}
	p.IsMe = s.viewerID != "" && p.ID == s.viewerID

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.client.Count(gctx, "follows", []Filter{Eq("following_id", userID)})
		p.Followers = n
		return err
	})
	g.Go(func() error {
		n, err := s.client.Count(gctx, "follows", []Filter{Eq("follower_id", userID)})
		p.Following = n
		return err
	})
	if s.viewerID != "" && !p.IsMe {
		g.Go(func() error {
			var refs []followRef
			err := s.client.Select(gctx, "follows", Query{
				Select:  "following_id",
				Filters: []Filter{Eq("follower_id", s.viewerID), Eq("following_id", userID)},
				Limit:   1,
			}, &refs)
			p.FollowedByMe = len(refs) > 0
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Profile{}, fmt.Errorf("profile %s: %w", userID, err)
	}
	return p, nil
}
