package compose

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/thetruth/truthterm/app"
	"github.com/thetruth/truthterm/domain"
	"github.com/thetruth/truthterm/infra/editor"
)

type stubPosts struct {
	created  []domain.NewPost
	comments []string
	err      error
}

func (s *stubPosts) Create(_ context.Context, p domain.NewPost) (domain.Post, error) {
	s.created = append(s.created, p)
	if s.err != nil {
		return domain.Post{}, s.err
	}
	return domain.Post{ID: "new", Content: p.Content, MediaURL: p.MediaURL}, nil
}

func (s *stubPosts) Delete(context.Context, string) error { return nil }

func (s *stubPosts) Comment(_ context.Context, postID, content string) error {
	s.comments = append(s.comments, postID+":"+content)
	return s.err
}

func (s *stubPosts) Report(context.Context, string, string) error { return nil }

type stubMedia struct {
	uploads []string
	err     error
}

func (s *stubMedia) Upload(_ context.Context, path string) (app.Media, error) {
	s.uploads = append(s.uploads, path)
	if s.err != nil {
		return app.Media{}, s.err
	}
	return app.Media{URL: "https://cdn.example/u/1.png", Path: "u/1.png", MediaType: "image"}, nil
}

type stubModerator struct {
	verdict app.Verdict
	checked []app.ContentKind
}

func (s *stubModerator) Check(_ context.Context, _ string, kind app.ContentKind) app.Verdict {
	s.checked = append(s.checked, kind)
	if s.verdict.Action == "" {
		return app.Verdict{Approved: true, Action: app.ActionAllow}
	}
	return s.verdict
}

type fixture struct {
	posts     *stubPosts
	media     *stubMedia
	moderator *stubModerator
}

func newFixture() (Deps, *fixture) {
	f := &fixture{posts: &stubPosts{}, media: &stubMedia{}, moderator: &stubModerator{}}
	return Deps{Posts: f.posts, Media: f.media, Moderator: f.moderator, Editor: editor.NewEnvEditor()}, f
}

// settle runs cmd and feeds the results back until the chain stops or the
// compose view finishes.
func settle(m Model, cmd tea.Cmd) (Model, *DoneMsg) {
	for cmd != nil {
		msg := cmd()
		if d, ok := msg.(DoneMsg); ok {
			return m, &d
		}
		m, cmd = m.Update(msg)
	}
	return m, nil
}

var ctrlD = tea.KeyMsg{Type: tea.KeyCtrlD}

func submit(m Model) (Model, *DoneMsg) {
	m, cmd := m.Update(ctrlD)
	return settle(m, cmd)
}

func TestSubmit_EmptyDraftRejectedLocally(t *testing.T) {
	deps, f := newFixture()
	m := New(deps, InlineMode)
	m.textarea.SetValue("   \n ")

	m, d := submit(m)
	if d != nil || !errors.Is(m.err, domain.ErrEmptyPost) {
		t.Fatalf("expected empty post error, got done=%v err=%v", d, m.err)
	}
	if len(f.moderator.checked) != 0 || len(f.posts.created) != 0 {
		t.Fatalf("nothing may be sent for an empty draft")
	}
}

func TestValidate(t *testing.T) {
	long := strings.Repeat("a", domain.MaxPostLength+1)
	tests := []struct {
		name    string
		content string
		media   string
		comment bool
		want    error
	}{
		{"text", "hi", "", false, nil},
		{"media without caption", "", "/tmp/a.png", false, nil},
		{"empty", "", "", false, domain.ErrEmptyPost},
		{"empty comment", "", "", true, domain.ErrEmptyPost},
		{"too long", long, "", false, domain.ErrPostTooLong},
		{"exact limit", long[1:], "", false, nil},
	}
	for _, tt := range tests {
		if got := validate(tt.content, tt.media, tt.comment); !errors.Is(got, tt.want) {
			t.Fatalf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSubmit_AllowedPostIsCreated(t *testing.T) {
	deps, f := newFixture()
	m := New(deps, InlineMode)
	m.textarea.SetValue("  hello world  ")

	_, d := submit(m)
	if d == nil || d.Err != nil || d.Post.ID != "new" {
		t.Fatalf("expected a published post, got %+v", d)
	}
	if len(f.posts.created) != 1 || f.posts.created[0].Content != "hello world" || f.posts.created[0].PostType != "text" {
		t.Fatalf("unexpected create: %+v", f.posts.created)
	}
	if len(f.moderator.checked) != 1 || f.moderator.checked[0] != app.ContentText {
		t.Fatalf("post must be screened as text: %v", f.moderator.checked)
	}
}

func TestSubmit_BlockedContentStaysInEditor(t *testing.T) {
	deps, f := newFixture()
	f.moderator.verdict = app.Verdict{Action: app.ActionBlock, Reason: "hate speech"}
	m := New(deps, InlineMode)
	m.textarea.SetValue("bad words")

	m, d := submit(m)
	if d != nil || len(f.posts.created) != 0 {
		t.Fatalf("blocked content must not be published")
	}
	if !errors.Is(m.err, domain.ErrContentBlocked) || !strings.Contains(m.err.Error(), "hate speech") {
		t.Fatalf("expected the block reason, got %v", m.err)
	}
	if m.Busy() || m.textarea.Value() != "bad words" {
		t.Fatalf("draft must be kept for editing")
	}
}

func TestSubmit_WarningNeedsSecondConfirm(t *testing.T) {
	deps, f := newFixture()
	f.moderator.verdict = app.Verdict{Action: app.ActionWarn, Reason: "may be misleading"}
	m := New(deps, InlineMode)
	m.textarea.SetValue("borderline")

	m, d := submit(m)
	if d != nil || len(f.posts.created) != 0 {
		t.Fatalf("a warning must not publish on its own")
	}
	if !strings.Contains(m.View(), "may be misleading") {
		t.Fatalf("warning not shown:\n%s", m.View())
	}

	_, d = submit(m)
	if d == nil || d.Post.ID != "new" {
		t.Fatalf("second ctrl+d must publish, got %+v", d)
	}
	if len(f.moderator.checked) != 1 {
		t.Fatalf("confirming a warning must not re-check, got %d checks", len(f.moderator.checked))
	}
}

func TestSubmit_EditingAfterWarningChecksAgain(t *testing.T) {
	deps, f := newFixture()
	f.moderator.verdict = app.Verdict{Action: app.ActionWarn}
	m := New(deps, InlineMode)
	m.textarea.SetValue("borderline")

	m, _ = submit(m)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("!")})
	if m.stage != stageEditing || m.warning != "" {
		t.Fatalf("typing must drop the pending confirmation")
	}
	_, _ = submit(m)
	if len(f.moderator.checked) != 2 || len(f.posts.created) != 0 {
		t.Fatalf("edited draft must be screened again")
	}
}

func TestSubmit_MediaUploadedBeforeCreate(t *testing.T) {
	deps, f := newFixture()
	m := New(deps, InlineMode)
	m.media.SetValue(" /tmp/cat.png ")

	_, d := submit(m)
	if d == nil || d.Err != nil {
		t.Fatalf("expected a published post, got %+v", d)
	}
	if len(f.media.uploads) != 1 || f.media.uploads[0] != "/tmp/cat.png" {
		t.Fatalf("unexpected uploads: %v", f.media.uploads)
	}
	got := f.posts.created[0]
	if got.MediaURL != "https://cdn.example/u/1.png" || got.MediaType != "image" || got.PostType != "image" {
		t.Fatalf("media not attached: %+v", got)
	}
	if len(f.moderator.checked) != 0 {
		t.Fatalf("a caption-less post has nothing to screen")
	}
}

func TestSubmit_UploadFailureKeepsDraft(t *testing.T) {
	deps, f := newFixture()
	f.media.err = errors.New("unsupported media type text/plain")
	m := New(deps, InlineMode)
	m.textarea.SetValue("look")
	m.media.SetValue("/tmp/notes.txt")

	m, d := submit(m)
	if d != nil || len(f.posts.created) != 0 {
		t.Fatalf("post must not be created when the upload fails")
	}
	if m.err == nil || m.Busy() || m.textarea.Value() != "look" {
		t.Fatalf("expected the error with the draft kept, err=%v", m.err)
	}
}

func TestComment_ScreenedAsCommentAndSent(t *testing.T) {
	deps, f := newFixture()
	m := NewComment(deps, InlineMode, domain.Post{ID: "p1", Author: domain.Author{Username: "alice"}})
	m.textarea.SetValue("agreed")

	if !strings.Contains(m.View(), "Comment on @alice") {
		t.Fatalf("expected the comment header")
	}
	_, d := submit(m)
	if d == nil || d.CommentOn != "p1" {
		t.Fatalf("expected a comment result, got %+v", d)
	}
	if len(f.posts.comments) != 1 || f.posts.comments[0] != "p1:agreed" {
		t.Fatalf("unexpected comments: %v", f.posts.comments)
	}
	if f.moderator.checked[0] != app.ContentComment {
		t.Fatalf("comment must be screened as a comment")
	}
}

func TestUpdate_StaleVerdictIgnored(t *testing.T) {
	deps, f := newFixture()
	m := New(deps, InlineMode)
	m.textarea.SetValue("hi")

	m, cmd := m.Update(ctrlD)
	if !m.Busy() {
		t.Fatalf("expected a check in flight")
	}
	m, next := m.Update(verdictMsg{seq: m.seq - 1, verdict: app.Verdict{Action: app.ActionAllow}})
	if next != nil || len(f.posts.created) != 0 {
		t.Fatalf("an old verdict must be dropped")
	}
	_, d := settle(m, cmd)
	if d == nil || d.Post.ID == "" {
		t.Fatalf("current verdict must still publish")
	}
}

func TestUpdate_KeysIgnoredWhileBusy(t *testing.T) {
	deps, _ := newFixture()
	m := New(deps, InlineMode)
	m.textarea.SetValue("hi")

	m, _ = m.Update(ctrlD)
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd != nil {
		t.Fatalf("esc while posting must be ignored")
	}
	if _, again := m.Update(ctrlD); again != nil {
		t.Fatalf("a second submit must not start while busy")
	}
}

func TestUpdate_EscCancels(t *testing.T) {
	deps, f := newFixture()
	m := New(deps, InlineMode)
	m.textarea.SetValue("draft")

	_, d := settle(m.Update(tea.KeyMsg{Type: tea.KeyEsc}))
	if d == nil || !d.Cancelled || len(f.posts.created) != 0 {
		t.Fatalf("expected a cancelled result, got %+v", d)
	}
}

func TestUpdate_TabMovesToMediaField(t *testing.T) {
	deps, _ := newFixture()
	m := New(deps, InlineMode)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if !m.mediaFocus || m.textarea.Focused() {
		t.Fatalf("tab should focus the media path")
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if m.media.Value() != "x" || m.textarea.Value() != "" {
		t.Fatalf("typing should go to the media field")
	}
}

func writeDraft(t *testing.T, m *Model, body string) string {
	t.Helper()
	_, path, err := m.deps.Editor.Cmd(m.content, "")
	if err != nil {
		t.Fatalf("cmd failed: %v", err)
	}
	t.Cleanup(func() { os.Remove(path) })
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	return path
}

func TestEditorMode_PublishesSavedDraft(t *testing.T) {
	deps, f := newFixture()
	m := New(deps, EditorMode)
	path := writeDraft(t, &m, "<!--\nheader\n-->\n\nfrom vim")

	_, d := settle(m.Update(editorFinishedMsg{tmpPath: path}))
	if d == nil || d.Err != nil {
		t.Fatalf("expected a published post, got %+v", d)
	}
	if f.posts.created[0].Content != "from vim" {
		t.Fatalf("unexpected content %q", f.posts.created[0].Content)
	}
}

func TestEditorMode_EmptyDraftCancels(t *testing.T) {
	deps, f := newFixture()
	m := New(deps, EditorMode)
	path := writeDraft(t, &m, "<!--\nheader\n-->\n\n")

	_, d := settle(m.Update(editorFinishedMsg{tmpPath: path}))
	if d == nil || !d.Cancelled || len(f.moderator.checked) != 0 {
		t.Fatalf("an empty draft cancels without a check, got %+v", d)
	}
}

func TestEditorMode_EditorErrorIsReported(t *testing.T) {
	deps, _ := newFixture()
	m := New(deps, EditorMode)

	_, d := settle(m.Update(editorFinishedMsg{err: errors.New("exit status 1")}))
	if d == nil || d.Err == nil || !strings.Contains(d.Err.Error(), "exit status 1") {
		t.Fatalf("expected the editor error, got %+v", d)
	}
}

func TestParseMode(t *testing.T) {
	if ParseMode("editor") != EditorMode || ParseMode("") != InlineMode || ParseMode("bogus") != InlineMode {
		t.Fatalf("unexpected mode parsing")
	}
	if InlineMode.Other() != EditorMode || EditorMode.Other().String() != "inline" {
		t.Fatalf("unexpected Other")
	}
}
