package user

import (
	"context"
	"errors"

	"lobbychat/internal/pkg/auth/jwt"
	"lobbychat/internal/pkg/errs"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrTokenExpired    = errors.New("token expired")
	ErrTokenInvalid    = errors.New("token invalid")
	ErrServerError     = errors.New("identity lookup failed")
)

// Gate resolves a bearer token into the Identity it was issued for.
type Gate struct {
	store  Store
	secret string
}

// NewGate creates a Gate that verifies tokens signed with secret.
func NewGate(store Store, secret string) *Gate {
	return &Gate{store: store, secret: secret}
}

// Authenticate verifies token and loads the account it names. An unknown or
// deactivated account is reported as ErrUnauthenticated.
func (g *Gate) Authenticate(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}

	payload, err := jwt.ParseToken(token, g.secret)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, ErrTokenInvalid
	}

	id, err := g.store.GetByID(ctx, payload.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Identity{}, ErrUnauthenticated
		}
		return Identity{}, errors.Join(ErrServerError, err)
	}

	if !id.IsActive {
		return Identity{}, ErrUnauthenticated
	}

	return id, nil
}

// GateError maps an Authenticate failure to its client-facing error.
func GateError(err error) *errs.CustomError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTokenExpired):
		return errs.NewError(errs.ErrTokenExpired)
	case errors.Is(err, ErrTokenInvalid):
		return errs.NewError(errs.ErrTokenInvalid)
	case errors.Is(err, ErrUnauthenticated):
		return errs.NewError(errs.ErrUnauthenticated)
	default:
		return errs.NewError(errs.ErrServerError)
	}
}
