package app

import (
	"context"

	"github.com/thetruth/truthterm/domain"
)

// PostService publishes, deletes, comments on and reports posts.
type PostService interface {
	// Create publishes a new post authored by the signed-in user.
	Create(ctx context.Context, p domain.NewPost) (domain.Post, error)

	// Delete removes one of the user's own posts.
	Delete(ctx context.Context, id string) error

	// Comment adds a comment to a post.
	Comment(ctx context.Context, postID, content string) error

	// Report flags a post for moderator review.
	Report(ctx context.Context, postID, reason string) error
}
