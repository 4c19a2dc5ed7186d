package app

import (
	"context"

	"github.com/thetruth/truthterm/domain"
)

// Subscription is a live realtime channel. Close releases it server-side.
type Subscription interface {
	Close() error
}

// PostHandlers receive change events for the posts table. Update events only
// carry the row itself, so author and viewer fields are zero.
type PostHandlers struct {
	OnInsert func(domain.Post)
	OnUpdate func(domain.Post)
	OnError  func(error)
}

// ChangeFeed opens realtime subscriptions on backend tables.
type ChangeFeed interface {
	SubscribePosts(ctx context.Context, h PostHandlers) (Subscription, error)
	SubscribeNotifications(ctx context.Context, userID string, onInsert func(domain.Notification), onError func(error)) (Subscription, error)
}
