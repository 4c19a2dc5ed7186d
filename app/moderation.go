package app

import "context"

// ContentKind tells the moderator what it is looking at.
type ContentKind string

const (
	ContentText    ContentKind = "text"
	ContentComment ContentKind = "comment"
	ContentMessage ContentKind = "message"
)

// Action is the moderator's suggestion.
type Action string

const (
	ActionAllow Action = "allow"
	ActionWarn  Action = "warn"
	ActionBlock Action = "block"
)

// Verdict is the result of a moderation check.
type Verdict struct {
	Approved   bool
	Categories []string
	Confidence float64
	Action     Action
	Reason     string
}

// Moderator screens user content before it is published.
type Moderator interface {
	// Check never fails closed: an unreachable moderator yields ActionAllow.
	Check(ctx context.Context, content string, kind ContentKind) Verdict
}
