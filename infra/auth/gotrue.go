package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/thetruth/truthterm/app"
	"github.com/thetruth/truthterm/domain"
)

// refreshMargin is how close to expiry a token is refreshed.
const refreshMargin = 60 * time.Second

// Service signs users in against the hosted auth endpoint and keeps the
// session fresh. It implements app.AccountService and TokenProvider.
type Service struct {
	baseURL string
	anonKey string
	store   *Store
	http    *http.Client
	log     *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	loaded  bool
	current *Session

	lmu       sync.Mutex
	nextID    int
	listeners map[int]func(app.AuthEvent, *domain.User)
}

// NewService creates an auth service for the project at baseURL.
func NewService(baseURL, anonKey string, store *Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		baseURL:   strings.TrimRight(baseURL, "/"),
		anonKey:   anonKey,
		store:     store,
		http:      &http.Client{Timeout: 15 * time.Second},
		log:       log,
		now:       time.Now,
		listeners: make(map[int]func(app.AuthEvent, *domain.User)),
	}
}

type authErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (b authErrorBody) text() string {
	for _, s := range []string{b.ErrorDescription, b.Msg, b.Message, b.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// SignIn exchanges email and password for a session and saves it.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password: %w", domain.ErrMissingField)
	}
	sess, err := s.token(ctx, "password", map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, fmt.Errorf("signing in: %w", err)
	}
	if err := s.store.Save(*sess); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.loaded = true
	s.current = sess
	s.mu.Unlock()

	s.log.Info("signed in", zap.String("user_id", sess.User.ID))
	s.emit(app.AuthSignedIn, sess)
	return sess, nil
}

// Session returns the current session, refreshing it when the access token
// is about to expire. It returns nil when the user is signed out.
func (s *Service) Session(ctx context.Context) (*Session, error) {
	s.mu.Lock()
	if !s.loaded {
		sess, err := s.store.Load()
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		s.current = sess
		s.loaded = true
	}
	sess := s.current
	if sess == nil {
		s.mu.Unlock()
		return nil, nil
	}

	expiry, err := sess.Expiry()
	if err == nil && expiry.Sub(s.now()) > refreshMargin {
		s.mu.Unlock()
		return sess, nil
	}

	refreshed, err := s.refreshLocked(ctx, sess)
	s.mu.Unlock()
	if err != nil {
		var rejected *rejectedError
		if errors.As(err, &rejected) {
			s.log.Warn("refresh token rejected, signing out", zap.Error(err))
			s.emit(app.AuthSignedOut, nil)
			return nil, nil
		}
		return nil, err
	}
	s.emit(app.AuthTokenRefreshed, refreshed)
	return refreshed, nil
}

// rejectedError marks a refresh the server refused, as opposed to a
// transport failure.
type rejectedError struct {
	msg string
}

func (e *rejectedError) Error() string { return e.msg }

func (s *Service) refreshLocked(ctx context.Context, sess *Session) (*Session, error) {
	if sess.RefreshToken == "" {
		s.current = nil
		_ = s.store.Clear()
		return nil, &rejectedError{msg: "session has no refresh token"}
	}
	next, err := s.token(ctx, "refresh_token", map[string]string{"refresh_token": sess.RefreshToken})
	if err != nil {
		var be *domain.BackendError
		if errors.As(err, &be) && be.Status >= 400 && be.Status < 500 {
			s.current = nil
			_ = s.store.Clear()
			return nil, &rejectedError{msg: be.Error()}
		}
		return nil, fmt.Errorf("refreshing session: %w", err)
	}
	if err := s.store.Save(*next); err != nil {
		return nil, err
	}
	s.current = next
	return next, nil
}

// CurrentUser returns the signed-in user or domain.ErrNoSession.
func (s *Service) CurrentUser(ctx context.Context) (domain.User, error) {
	sess, err := s.Session(ctx)
	if err != nil {
		return domain.User{}, err
	}
	if sess == nil {
		return domain.User{}, domain.ErrNoSession
	}
	return domain.User{ID: sess.User.ID, Email: sess.User.Email}, nil
}

// AccessToken returns the session token, or the anon key when signed out.
func (s *Service) AccessToken() (string, error) {
	sess, err := s.Session(context.Background())
	if err != nil {
		return "", err
	}
	if sess == nil {
		return s.anonKey, nil
	}
	return sess.AccessToken, nil
}

// SignOut revokes the session on the server and removes it locally. The
// local session is removed even when the server call fails.
func (s *Service) SignOut(ctx context.Context) error {
	s.mu.Lock()
	if !s.loaded {
		s.current, _ = s.store.Load()
		s.loaded = true
	}
	sess := s.current
	s.current = nil
	clearErr := s.store.Clear()
	s.mu.Unlock()

	var remoteErr error
	if sess != nil {
		remoteErr = s.logout(ctx, sess.AccessToken)
		if remoteErr != nil {
			s.log.Warn("remote sign out failed", zap.Error(remoteErr))
		}
	}
	s.emit(app.AuthSignedOut, nil)
	if clearErr != nil {
		return clearErr
	}
	return nil
}

// OnAuthStateChange registers fn for sign-in, sign-out and refresh events.
func (s *Service) OnAuthStateChange(fn func(app.AuthEvent, *domain.User)) func() {
	s.lmu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.lmu.Unlock()

	return func() {
		s.lmu.Lock()
		delete(s.listeners, id)
		s.lmu.Unlock()
	}
}

func (s *Service) emit(ev app.AuthEvent, sess *Session) {
	var user *domain.User
	if sess != nil {
		user = &domain.User{ID: sess.User.ID, Email: sess.User.Email}
	}
	s.lmu.Lock()
	fns := make([]func(app.AuthEvent, *domain.User), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.lmu.Unlock()

	for _, fn := range fns {
		fn(ev, user)
	}
}

func (s *Service) token(ctx context.Context, grant string, body map[string]string) (*Session, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding token request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/auth/v1/token?grant_type="+grant, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("apikey", s.anonKey)
	req.Header.Set("Content-Type", "application/json")

	data, err := s.send(req)
	if err != nil {
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parsing token response: %w", err)
	}
	if sess.AccessToken == "" {
		return nil, errors.New("token response has no access token")
	}
	if sess.ExpiresAt == 0 && sess.ExpiresIn > 0 {
		sess.ExpiresAt = s.now().Add(time.Duration(sess.ExpiresIn) * time.Second).Unix()
	}
	if sess.User.ID == "" {
		sess.User.ID = tokenSubject(sess.AccessToken)
	}
	return &sess, nil
}

func (s *Service) logout(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/auth/v1/logout", nil)
	if err != nil {
		return fmt.Errorf("creating logout request: %w", err)
	}
	req.Header.Set("apikey", s.anonKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	_, err = s.send(req)
	return err
}

func (s *Service) send(req *http.Request) ([]byte, error) {
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var body authErrorBody
		_ = json.Unmarshal(data, &body)
		msg := body.text()
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return nil, &domain.BackendError{Status: resp.StatusCode, Code: body.Error, Message: msg}
	}
	return data, nil
}
