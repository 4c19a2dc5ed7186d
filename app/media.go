package app

import "context"

// Media is an uploaded object with its public URL.
type Media struct {
	URL       string
	Path      string
	MediaType string // image, short_video, music
}

// MediaService uploads local files to object storage.
type MediaService interface {
	Upload(ctx context.Context, localPath string) (Media, error)
}
