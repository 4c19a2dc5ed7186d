package compose

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/thetruth/truthterm/app"
	"github.com/thetruth/truthterm/domain"
)

const (
	checkTimeout   = 15 * time.Second
	publishTimeout = 2 * time.Minute
)

// draft returns the trimmed text and media path being submitted.
func (m Model) draft() (string, string) {
	if m.mode == EditorMode {
		return strings.TrimSpace(m.content), ""
	}
	return strings.TrimSpace(m.textarea.Value()), strings.TrimSpace(m.media.Value())
}

// validate runs the local checks that must pass before anything is sent.
func validate(content, mediaPath string, comment bool) error {
	if content == "" {
		if comment || mediaPath == "" {
			return domain.ErrEmptyPost
		}
	}
	if utf8.RuneCountInString(content) > domain.MaxPostLength {
		return domain.ErrPostTooLong
	}
	return nil
}

func (m Model) startSubmit() (Model, tea.Cmd) {
	content, mediaPath := m.draft()
	if err := validate(content, mediaPath, m.isComment()); err != nil {
		m.err = err
		return m, nil
	}
	m.err = nil
	m.warning = ""
	m.seq++

	// A caption-less media post has nothing to screen.
	if content == "" || m.deps.Moderator == nil {
		return m.publish()
	}

	m.stage = stageChecking
	m.status = "Checking content..."
	seq := m.seq
	moderator := m.deps.Moderator
	kind := app.ContentText
	if m.isComment() {
		kind = app.ContentComment
	}
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()
		return verdictMsg{seq: seq, verdict: moderator.Check(ctx, content, kind)}
	}
}

func (m Model) handleVerdict(v app.Verdict) (Model, tea.Cmd) {
	m.status = ""
	switch v.Action {
	case app.ActionBlock:
		m.deps.Log.Info("content blocked by moderation", zap.Strings("categories", v.Categories))
		m.stage = stageEditing
		m.err = blockedError(v)
		return m, nil

	case app.ActionWarn:
		m.stage = stageConfirmWarn
		m.warning = v.Reason
		if m.warning == "" {
			m.warning = "This content may be flagged."
		}
		return m, nil
	}
	return m.publish()
}

func blockedError(v app.Verdict) error {
	if v.Reason == "" {
		return domain.ErrContentBlocked
	}
	return fmt.Errorf("%w: %s", domain.ErrContentBlocked, v.Reason)
}

// publish uploads the attachment, if any, then creates the post or comment.
func (m Model) publish() (Model, tea.Cmd) {
	content, mediaPath := m.draft()
	m.stage = stageSubmitting
	m.warning = ""
	m.status = "Posting..."
	if mediaPath != "" {
		m.status = "Uploading media..."
	}

	seq := m.seq
	posts, media := m.deps.Posts, m.deps.Media
	replyTo := m.replyTo
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if replyTo != "" {
			return publishedMsg{seq: seq, err: posts.Comment(ctx, replyTo, content)}
		}

		np := domain.NewPost{Content: content, PostType: "text"}
		if mediaPath != "" {
			if media == nil {
				return publishedMsg{seq: seq, err: fmt.Errorf("media uploads are unavailable")}
			}
			up, err := media.Upload(ctx, mediaPath)
			if err != nil {
				return publishedMsg{seq: seq, err: err}
			}
			np.PostType = up.MediaType
			np.MediaURL = up.URL
			np.MediaType = up.MediaType
		}
		post, err := posts.Create(ctx, np)
		return publishedMsg{seq: seq, post: post, err: err}
	}
}
