package user

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
	ErrEmailTaken    = errors.New("email already registered")
)

// CreateParams holds the fields needed to create an account.
type CreateParams struct {
	Username     string
	Email        string
	PasswordHash string
	Profile      Profile
}

// ProfileUpdate holds optional profile changes; nil fields are left untouched.
type ProfileUpdate struct {
	DisplayName *string
	Bio         *string
	Avatar      *string
}

// Store is the durable user store.
type Store interface {
	GetByID(ctx context.Context, id string) (Identity, error)
	GetByUsername(ctx context.Context, username string) (Identity, error)

	// GetByIdentifier looks an account up by email or username.
	GetByIdentifier(ctx context.Context, identifier string) (Identity, error)

	Create(ctx context.Context, params CreateParams) (Identity, error)

	// SetPresence records the durable online flag and last-seen time.
	SetPresence(ctx context.Context, id string, online bool, lastSeen time.Time) error

	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (Identity, error)
}
