package domain

import "time"

// Profile is a user's public profile with follow counts.
type Profile struct {
	ID          string
	Username    string
	DisplayName string
	Bio         string
	Verified    bool
	CreatedAt   time.Time
	Followers   int
	Following   int

	FollowedByMe bool
	IsMe         bool
}

// Name returns the display name, falling back to the username.
func (p Profile) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Username
}

// Hashtag is an entry of the trending list.
type Hashtag struct {
	Tag           string
	UseCount      int
	TrendingScore float64
}

// Trend is "up", "down" or "stable" depending on the trending score.
func (h Hashtag) Trend() string {
	switch {
	case h.TrendingScore > 50:
		return "up"
	case h.TrendingScore < 20:
		return "down"
	default:
		return "stable"
	}
}
