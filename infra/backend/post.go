package backend

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/thetruth/truthterm/domain"
	"github.com/thetruth/truthterm/infra/query"
)

// postService implements app.PostService over the posts, comments and
// reports tables.
type postService struct {
	client   *Client
	viewerID string
	cache    *query.Cache
}

// NewPostService creates a PostService publishing as viewerID. Writes drop
// cached feed pages from cache.
func NewPostService(client *Client, viewerID string, cache *query.Cache) *postService {
	return &postService{client: client, viewerID: viewerID, cache: cache}
}

type newPostRow struct {
	UserID    string  `json:"user_id"`
	Content   string  `json:"content"`
	PostType  string  `json:"post_type"`
	MediaURL  *string `json:"media_url,omitempty"`
	MediaType *string `json:"media_type,omitempty"`
}

func validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", domain.ErrEmptyPost
	}
	if utf8.RuneCountInString(content) > domain.MaxPostLength {
		return "", domain.ErrPostTooLong
	}
	return content, nil
}

func (s *postService) Create(ctx context.Context, p domain.NewPost) (domain.Post, error) {
	if s.viewerID == "" {
		return domain.Post{}, domain.ErrNoSession
	}
	content, err := validateContent(p.Content)
	if err != nil {
		// A media post may go out without a caption.
		if !errors.Is(err, domain.ErrEmptyPost) || p.MediaURL == "" {
			return domain.Post{}, err
		}
	}

	row := newPostRow{
		UserID:   s.viewerID,
		Content:  content,
		PostType: p.PostType,
	}
	if row.PostType == "" {
		row.PostType = "text"
		if p.MediaType != "" {
			row.PostType = p.MediaType
		}
	}
	if p.MediaURL != "" {
		row.MediaURL = &p.MediaURL
		mt := p.MediaType
		row.MediaType = &mt
	}

	var created []postRow
	if err := s.client.Insert(ctx, "posts", row, &created); err != nil {
		return domain.Post{}, fmt.Errorf("creating post: %w", err)
	}
	s.invalidate()
	if len(created) == 0 {
		return domain.Post{}, errors.New("creating post: empty response")
	}
	return created[0].toDomain(s.viewerID), nil
}

func (s *postService) Delete(ctx context.Context, id string) error {
	if s.viewerID == "" {
		return domain.ErrNoSession
	}
	if id == "" {
		return fmt.Errorf("post id: %w", domain.ErrMissingField)
	}
	err := s.client.Delete(ctx, "posts", []Filter{Eq("id", id), Eq("user_id", s.viewerID)})
	if err != nil {
		return fmt.Errorf("deleting post: %w", err)
	}
	s.invalidate()
	return nil
}

func (s *postService) Comment(ctx context.Context, postID, content string) error {
	if s.viewerID == "" {
		return domain.ErrNoSession
	}
	content, err := validateContent(content)
	if err != nil {
		return err
	}
	row := map[string]string{
		"post_id": postID,
		"user_id": s.viewerID,
		"content": content,
	}
	if err := s.client.Insert(ctx, "comments", row, nil); err != nil {
		return fmt.Errorf("commenting: %w", err)
	}
	return nil
}

func (s *postService) Report(ctx context.Context, postID, reason string) error {
	if s.viewerID == "" {
		return domain.ErrNoSession
	}
	if !slices.Contains(domain.ReportReasons, reason) {
		return fmt.Errorf("report reason %q: %w", reason, domain.ErrMissingField)
	}
	row := map[string]string{
		"reporter_id": s.viewerID,
		"report_type": "post",
		"target_id":   postID,
		"reason":      reason,
	}
	if err := s.client.Insert(ctx, "reports", row, nil); err != nil {
		return fmt.Errorf("reporting post: %w", err)
	}
	return nil
}

func (s *postService) invalidate() {
	if s.cache != nil {
		s.cache.Invalidate(pagePrefix)
	}
}
