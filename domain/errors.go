package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// MaxPostLength is the longest post body the backend accepts, in runes.
const MaxPostLength = 5000

var (
	// ErrUnauthorized indicates missing or invalid credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNoSession indicates the user is signed out.
	ErrNoSession = errors.New("not signed in")

	// ErrPostTooLong indicates the post exceeds MaxPostLength.
	ErrPostTooLong = errors.New("post exceeds character limit")

	// ErrEmptyPost indicates the user submitted an empty post.
	ErrEmptyPost = errors.New("post cannot be empty")

	// ErrMissingField indicates a required field was left blank.
	ErrMissingField = errors.New("required field missing")

	// ErrContentBlocked indicates moderation rejected the content.
	ErrContentBlocked = errors.New("content violates community guidelines")

	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPollClosed indicates voting has ended.
	ErrPollClosed = errors.New("poll has ended")

	// ErrAlreadyVoted indicates the user already voted in the poll.
	ErrAlreadyVoted = errors.New("already voted in this poll")
)

// BackendError is the error body returned by the hosted REST API.
type BackendError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *BackendError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

// Unwrap lets errors.Is match ErrUnauthorized for 401 responses.
func (e *BackendError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// IsConflict reports whether err is a unique-constraint violation, which a
// toggle treats as "already set".
func IsConflict(err error) bool {
	var be *BackendError
	if !errors.As(err, &be) {
		return false
	}
	return be.Status == http.StatusConflict || be.Code == "23505"
}
