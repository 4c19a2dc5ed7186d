package domain

import "strings"

// SourceKind selects which posts a feed shows.
type SourceKind int

const (
	SourceEveryone SourceKind = iota
	SourceUser
	SourceHashtag
)

// Source is a feed source. ID is the author's user ID for SourceUser and the
// lower-cased tag, without '#', for SourceHashtag. Name is the username
// shown for a user source.
type Source struct {
	Kind SourceKind
	ID   string
	Name string
}

// Everyone is the global feed.
func Everyone() Source { return Source{} }

// UserSource is the feed of one author.
func UserSource(userID, username string) Source {
	return Source{Kind: SourceUser, ID: userID, Name: username}
}

// HashtagSource is the feed of posts carrying tag.
func HashtagSource(tag string) Source {
	return Source{Kind: SourceHashtag, ID: NormalizeTag(tag)}
}

// NormalizeTag lower-cases tag and strips a leading '#'.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
}

// Key identifies the source in cache keys.
func (s Source) Key() string {
	switch s.Kind {
	case SourceUser:
		return "user:" + s.ID
	case SourceHashtag:
		return "tag:" + s.ID
	default:
		return "all"
	}
}

// Label is the source name shown in the feed header.
func (s Source) Label() string {
	switch s.Kind {
	case SourceUser:
		if s.Name != "" {
			return "@" + s.Name
		}
		return "user"
	case SourceHashtag:
		return "#" + s.ID
	default:
		return "everyone"
	}
}

// Matches reports whether a newly created post belongs to the source. For
// hashtags it checks the post body, which is what the tag index is built
// from.
func (s Source) Matches(p Post) bool {
	switch s.Kind {
	case SourceUser:
		return p.AuthorID == s.ID
	case SourceHashtag:
		for _, tag := range Hashtags(p.Content) {
			if tag == s.ID {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// Hashtags returns the normalized tags in text, in order of appearance.
func Hashtags(text string) []string {
	var tags []string
	for _, field := range strings.Fields(text) {
		if !strings.HasPrefix(field, "#") {
			continue
		}
		tag := NormalizeTag(strings.TrimRight(field, ".,;:!?)\"'"))
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
