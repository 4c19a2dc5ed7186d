package app

import (
	"context"

	"github.com/thetruth/truthterm/domain"
)

// AuthEvent is a change of the signed-in state.
type AuthEvent int

const (
	AuthSignedIn AuthEvent = iota
	AuthSignedOut
	AuthTokenRefreshed
)

// AccountService exposes the signed-in user.
type AccountService interface {
	// CurrentUser returns the session's user or domain.ErrNoSession.
	CurrentUser(ctx context.Context) (domain.User, error)

	// SignOut ends the session locally and on the backend.
	SignOut(ctx context.Context) error

	// OnAuthStateChange registers fn and returns a function removing it.
	OnAuthStateChange(fn func(AuthEvent, *domain.User)) (unsubscribe func())
}
