package backend

import (
	"github.com/thetruth/truthterm/domain"
)

// postSelect embeds the author snapshot next to each post.
const postSelect = "*,profiles(id,username,display_name,avatar_url,is_verified)"

type profileRow struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	DisplayName *string `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
	IsVerified  *bool   `json:"is_verified"`
}

// postRow is the subset of the posts table the client reads. Realtime
// payloads use the same shape without the profiles embed.
type postRow struct {
	ID            string      `json:"id"`
	UserID        string      `json:"user_id"`
	Content       string      `json:"content"`
	PostType      string      `json:"post_type"`
	MediaURL      *string     `json:"media_url"`
	MediaType     *string     `json:"media_type"`
	LikesCount    int         `json:"likes_count"`
	CommentsCount int         `json:"comments_count"`
	RepostCount   *int        `json:"repost_count"`
	IsPinned      *bool       `json:"is_pinned"`
	CreatedAt     string      `json:"created_at"`
	Profiles      *profileRow `json:"profiles"`
}

func (r postRow) toDomain(viewerID string) domain.Post {
	createdAt, _ := ParseTimestamp(r.CreatedAt)
	p := domain.Post{
		ID:            r.ID,
		AuthorID:      r.UserID,
		Content:       sanitizeText(r.Content),
		PostType:      r.PostType,
		MediaURL:      deref(r.MediaURL),
		MediaType:     deref(r.MediaType),
		CreatedAt:     createdAt,
		LikesCount:    r.LikesCount,
		CommentsCount: r.CommentsCount,
		RepostCount:   derefInt(r.RepostCount),
		Pinned:        derefBool(r.IsPinned),
		IsOwn:         viewerID != "" && r.UserID == viewerID,
	}
	if r.Profiles != nil {
		p.Author = domain.Author{
			ID:          r.Profiles.ID,
			Username:    sanitizeForTerminal(r.Profiles.Username),
			DisplayName: sanitizeForTerminal(deref(r.Profiles.DisplayName)),
			AvatarURL:   deref(r.Profiles.AvatarURL),
			Verified:    derefBool(r.Profiles.IsVerified),
		}
	}
	if p.Author.ID == "" {
		p.Author.ID = r.UserID
	}
	return p
}

func mapPosts(rows []postRow, viewerID string) []domain.Post {
	posts := make([]domain.Post, 0, len(rows))
	for _, r := range rows {
		posts = append(posts, r.toDomain(viewerID))
	}
	return posts
}

type notificationRow struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Title     string  `json:"title"`
	Message   *string `json:"message"`
	CreatedAt string  `json:"created_at"`
}

func (r notificationRow) toDomain() domain.Notification {
	createdAt, _ := ParseTimestamp(r.CreatedAt)
	return domain.Notification{
		ID:        r.ID,
		Type:      r.Type,
		Title:     sanitizeText(r.Title),
		Message:   sanitizeText(deref(r.Message)),
		CreatedAt: createdAt,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}

func derefBool(b *bool) bool {
	return b != nil && *b
}
