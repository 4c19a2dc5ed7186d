package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/thetruth/truthterm/app"
	"github.com/thetruth/truthterm/domain"
)

// MediaBucket is the storage bucket post attachments are uploaded to.
const MediaBucket = "media"

// maxUploadSize is the largest file the client uploads.
const maxUploadSize = 50 << 20

// storageService implements app.MediaService over object storage.
type storageService struct {
	client   *Client
	viewerID string
	bucket   string
}

// NewStorageService creates a MediaService uploading into bucket under the
// viewer's folder.
func NewStorageService(client *Client, viewerID, bucket string) *storageService {
	if bucket == "" {
		bucket = MediaBucket
	}
	return &storageService{client: client, viewerID: viewerID, bucket: bucket}
}

// MediaType maps a MIME type to the post media type, or "" when the type
// cannot be attached to a post.
func MediaType(mime string) string {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return "image"
	case strings.HasPrefix(mime, "video/"):
		return "short_video"
	case strings.HasPrefix(mime, "audio/"):
		return "music"
	default:
		return ""
	}
}

// PublicURL returns the public address of an object.
func (s *storageService) PublicURL(path string) string {
	return s.client.baseURL + "/storage/v1/object/public/" + s.bucket + "/" + escapePath(path)
}

func escapePath(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func (s *storageService) Upload(ctx context.Context, localPath string) (app.Media, error) {
	if s.viewerID == "" {
		return app.Media{}, domain.ErrNoSession
	}
	localPath = strings.TrimSpace(localPath)
	if localPath == "" {
		return app.Media{}, fmt.Errorf("upload path: %w", domain.ErrMissingField)
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return app.Media{}, fmt.Errorf("reading %s: %w", localPath, err)
	}
	if info.IsDir() {
		return app.Media{}, fmt.Errorf("%s is a directory", localPath)
	}
	if info.Size() > maxUploadSize {
		return app.Media{}, fmt.Errorf("%s is larger than %d MB", filepath.Base(localPath), maxUploadSize>>20)
	}

	mtype, err := mimetype.DetectFile(localPath)
	if err != nil {
		return app.Media{}, fmt.Errorf("detecting type of %s: %w", localPath, err)
	}
	kind := MediaType(mtype.String())
	if kind == "" {
		return app.Media{}, fmt.Errorf("unsupported media type %s", mtype.String())
	}

	f, err := os.Open(localPath)
	if err != nil {
		return app.Media{}, fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer f.Close()

	ext := strings.TrimPrefix(filepath.Ext(localPath), ".")
	if ext == "" {
		ext = strings.TrimPrefix(mtype.Extension(), ".")
	}
	objectPath := s.viewerID + "/" + uuid.NewString()
	if ext != "" {
		objectPath += "." + strings.ToLower(ext)
	}

	_, err = s.client.do(ctx, request{
		method:      http.MethodPost,
		path:        "/storage/v1/object/" + s.bucket + "/" + escapePath(objectPath),
		body:        f,
		length:      info.Size(),
		contentType: mtype.String(),
		header:      http.Header{"X-Upsert": []string{"false"}, "Cache-Control": []string{"max-age=3600"}},
	})
	if err != nil {
		return app.Media{}, fmt.Errorf("uploading %s: %w", filepath.Base(localPath), err)
	}

	return app.Media{
		URL:       s.PublicURL(objectPath),
		Path:      objectPath,
		MediaType: kind,
	}, nil
}
