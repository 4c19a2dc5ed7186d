package backend

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/thetruth/truthterm/app"
)

// moderationFunction is the edge function screening user content.
const moderationFunction = "moderate-content"

type moderationRequest struct {
	Content     string `json:"content"`
	ContentType string `json:"contentType"`
}

type moderationResponse struct {
	IsApproved        bool     `json:"isApproved"`
	FlaggedCategories []string `json:"flaggedCategories"`
	Confidence        float64  `json:"confidence"`
	SuggestedAction   string   `json:"suggestedAction"`
	Reason            string   `json:"reason"`
}

// moderationService implements app.Moderator with the moderation function.
type moderationService struct {
	client *Client
	log    *zap.Logger
}

// NewModerationService creates a Moderator.
func NewModerationService(client *Client) *moderationService {
	return &moderationService{client: client, log: client.log}
}

func allow() app.Verdict {
	return app.Verdict{Approved: true, Action: app.ActionAllow}
}

func (s *moderationService) Check(ctx context.Context, content string, kind app.ContentKind) app.Verdict {
	if strings.TrimSpace(content) == "" {
		return allow()
	}
	if kind == "" {
		kind = app.ContentText
	}

	var resp moderationResponse
	err := s.client.Invoke(ctx, moderationFunction, moderationRequest{Content: content, ContentType: string(kind)}, &resp)
	if err != nil {
		s.log.Warn("moderation unavailable, allowing content", zap.Error(err))
		return allow()
	}

	v := app.Verdict{
		Approved:   resp.IsApproved,
		Categories: resp.FlaggedCategories,
		Confidence: resp.Confidence,
		Action:     app.Action(resp.SuggestedAction),
		Reason:     resp.Reason,
	}
	switch v.Action {
	case app.ActionAllow, app.ActionWarn, app.ActionBlock:
	default:
		if v.Approved {
			v.Action = app.ActionAllow
		} else {
			v.Action = app.ActionBlock
		}
	}
	return v
}
