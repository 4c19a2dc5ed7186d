package domain

import "time"

// Author is the profile snapshot embedded in a post when it was fetched.
type Author struct {
	ID          string
	Username    string
	DisplayName string
	AvatarURL   string
	Verified    bool
}

// Name returns the display name, falling back to the username.
func (a Author) Name() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Username
}

// Post represents a single item of the feed.
type Post struct {
	ID            string
	AuthorID      string
	Author        Author
	Content       string // Plain text, HTML and escapes stripped
	PostType      string // text, image, short_video, long_video, music, poll
	MediaURL      string
	MediaType     string
	CreatedAt     time.Time
	LikesCount    int
	CommentsCount int
	RepostCount   int
	Pinned        bool

	// Viewer state, resolved for the signed-in user at fetch time.
	Liked           bool
	Bookmarked      bool
	Reposted        bool
	FollowingAuthor bool
	IsOwn           bool
}

// Counters are the fields of a post that change after it is created.
type Counters struct {
	LikesCount    int
	CommentsCount int
	RepostCount   int
	Pinned        bool
}

// Counters returns the mutable fields of p.
func (p Post) Counters() Counters {
	return Counters{
		LikesCount:    p.LikesCount,
		CommentsCount: p.CommentsCount,
		RepostCount:   p.RepostCount,
		Pinned:        p.Pinned,
	}
}

// WithCounters returns p with its mutable fields replaced by c.
func (p Post) WithCounters(c Counters) Post {
	p.LikesCount = c.LikesCount
	p.CommentsCount = c.CommentsCount
	p.RepostCount = c.RepostCount
	p.Pinned = c.Pinned
	return p
}

// NewerThan reports whether p sorts before q in a newest-first feed.
// Equal timestamps are ordered by ID so the order is total.
func (p Post) NewerThan(q Post) bool {
	if !p.CreatedAt.Equal(q.CreatedAt) {
		return p.CreatedAt.After(q.CreatedAt)
	}
	return p.ID > q.ID
}

// NewPost is the payload for publishing a post.
type NewPost struct {
	Content   string
	PostType  string
	MediaURL  string
	MediaType string
}

// ReportReasons are the reasons a post can be reported for.
var ReportReasons = []string{
	"spam",
	"harassment",
	"hate_speech",
	"violence",
	"adult_content",
	"misinformation",
	"copyright",
	"other",
}

// Notification is a row of the viewer's notifications table.
type Notification struct {
	ID        string
	Type      string
	Title     string
	Message   string
	CreatedAt time.Time
}

// User is the identity behind a session.
type User struct {
	ID    string
	Email string
}

// Poll is a question attached to a post of type "poll".
type Poll struct {
	ID          string
	PostID      string
	Question    string
	EndsAt      time.Time // zero when the poll never closes
	Options     []PollOption
	VotedOption string // option the viewer picked, empty if none
}

// PollOption is one answer of a poll.
type PollOption struct {
	ID    string
	Text  string
	Votes int
}

// Closed reports whether voting has ended at now.
func (p Poll) Closed(now time.Time) bool {
	return !p.EndsAt.IsZero() && !now.Before(p.EndsAt)
}

// TotalVotes sums the votes of all options.
func (p Poll) TotalVotes() int {
	n := 0
	for _, o := range p.Options {
		n += o.Votes
	}
	return n
}

// WithVote returns p after the viewer voted for optionID.
func (p Poll) WithVote(optionID string) Poll {
	opts := make([]PollOption, len(p.Options))
	copy(opts, p.Options)
	for i := range opts {
		if opts[i].ID == optionID {
			opts[i].Votes++
		}
	}
	p.Options = opts
	p.VotedOption = optionID
	return p
}
