package backend

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/thetruth/truthterm/app"
	"github.com/thetruth/truthterm/domain"
	"github.com/thetruth/truthterm/infra/realtime"
)

// changeFeed implements app.ChangeFeed over the realtime client, decoding
// raw rows into domain values.
type changeFeed struct {
	rt       *realtime.Client
	viewerID string
	log      *zap.Logger
}

// NewChangeFeed creates a ChangeFeed. viewerID marks the viewer's own posts.
func NewChangeFeed(rt *realtime.Client, viewerID string, log *zap.Logger) *changeFeed {
	if log == nil {
		log = zap.NewNop()
	}
	return &changeFeed{rt: rt, viewerID: viewerID, log: log}
}

func (f *changeFeed) SubscribePosts(ctx context.Context, h app.PostHandlers) (app.Subscription, error) {
	post := func(fn func(domain.Post)) func(realtime.Change) {
		if fn == nil {
			return nil
		}
		return func(ch realtime.Change) {
			var row postRow
			if err := json.Unmarshal(ch.Record, &row); err != nil || row.ID == "" {
				f.log.Debug("dropping undecodable post change", zap.String("type", ch.Type), zap.Error(err))
				return
			}
			fn(row.toDomain(f.viewerID))
		}
	}

	sub, err := f.rt.Subscribe(ctx, realtime.Spec{Table: "posts"}, realtime.Handlers{
		OnInsert: post(h.OnInsert),
		OnUpdate: post(h.OnUpdate),
		OnError:  h.OnError,
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to posts: %w", err)
	}
	return sub, nil
}

func (f *changeFeed) SubscribeNotifications(ctx context.Context, userID string, onInsert func(domain.Notification), onError func(error)) (app.Subscription, error) {
	if userID == "" {
		return nil, domain.ErrNoSession
	}
	sub, err := f.rt.Subscribe(ctx, realtime.Spec{
		Table:  "notifications",
		Filter: "user_id=eq." + userID,
	}, realtime.Handlers{
		OnInsert: func(ch realtime.Change) {
			var row notificationRow
			if err := json.Unmarshal(ch.Record, &row); err != nil {
				f.log.Debug("dropping undecodable notification", zap.Error(err))
				return
			}
			if onInsert != nil {
				onInsert(row.toDomain())
			}
		},
		OnError: onError,
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to notifications: %w", err)
	}
	return sub, nil
}
