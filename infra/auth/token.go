package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenProvider supplies an access token for API authentication.
type TokenProvider interface {
	AccessToken() (string, error)
}

// Session is the token pair issued by the auth endpoint.
type Session struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type,omitempty"`
	ExpiresIn    int         `json:"expires_in,omitempty"`
	ExpiresAt    int64       `json:"expires_at,omitempty"`
	User         SessionUser `json:"user"`
}

// SessionUser is the part of the auth user record the client keeps.
type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Expiry returns when the access token expires. It prefers expires_at and
// falls back to the token's own exp claim.
func (s Session) Expiry() (time.Time, error) {
	if s.ExpiresAt > 0 {
		return time.Unix(s.ExpiresAt, 0), nil
	}
	return tokenExpiry(s.AccessToken)
}

// tokenExpiry reads the exp claim without verifying the signature; the
// backend verifies tokens, the client only needs to know when to refresh.
func tokenExpiry(token string) (time.Time, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("parsing access token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errors.New("access token has no exp claim")
	}
	return claims.ExpiresAt.Time, nil
}

// tokenSubject returns the sub claim, which is the user ID.
func tokenSubject(token string) string {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return ""
	}
	return claims.Subject
}

// Store persists a session as JSON on disk.
type Store struct {
	path string
}

// NewStore creates a Store for the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the saved session, or nil when none is saved.
func (s *Store) Load() (*Session, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session from %s: %w", s.path, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parsing session %s: %w", s.path, err)
	}
	if strings.TrimSpace(sess.AccessToken) == "" {
		return nil, fmt.Errorf("session file %s has no access token", s.path)
	}
	if sess.User.ID == "" {
		sess.User.ID = tokenSubject(sess.AccessToken)
	}
	return &sess, nil
}

// Save writes the session with owner-only permissions.
func (s *Store) Save(sess Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

// Clear removes the saved session.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session: %w", err)
	}
	return nil
}
