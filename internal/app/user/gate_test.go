package user

import (
	"context"
	"errors"
	"testing"

	"lobbychat/internal/pkg/auth/jwt"
	"lobbychat/internal/pkg/errs"
)

const gateSecret = "gate-test-secret"

type brokenStore struct{ *MemoryStore }

func (brokenStore) GetByID(context.Context, string) (Identity, error) {
	return Identity{}, errors.New("connection refused")
}

func TestGateAuthenticate(t *testing.T) {
	store := NewMemoryStore()
	alice, err := store.Create(context.Background(), CreateParams{Username: "alice", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	disabled, _ := store.Create(context.Background(), CreateParams{Username: "mallory", Email: "m@example.com"})
	disabled.IsActive = false
	store.Put(disabled)

	gate := NewGate(store, gateSecret)

	token := func(id, secret string) string {
		t.Helper()
		tok, err := jwt.GenerateToken(id, secret, 0)
		if err != nil {
			t.Fatalf("GenerateToken() error = %v", err)
		}
		return tok
	}

	got, err := gate.Authenticate(context.Background(), token(alice.ID, gateSecret))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if got.Username != "alice" {
		t.Fatalf("Authenticate() username = %q", got.Username)
	}

	tests := []struct {
		name  string
		token string
		want  error
		code  int
	}{
		{"missing", "", ErrUnauthenticated, errs.ErrUnauthenticated},
		{"garbage", "not.a.token", ErrTokenInvalid, errs.ErrTokenInvalid},
		{"wrong secret", token(alice.ID, "other"), ErrTokenInvalid, errs.ErrTokenInvalid},
		{"unknown user", token("ghost", gateSecret), ErrUnauthenticated, errs.ErrUnauthenticated},
		{"deactivated", token(disabled.ID, gateSecret), ErrUnauthenticated, errs.ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gate.Authenticate(context.Background(), tt.token)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Authenticate() error = %v, want %v", err, tt.want)
			}
			if ce := GateError(err); ce.Code != tt.code {
				t.Fatalf("GateError() code = %d, want %d", ce.Code, tt.code)
			}
		})
	}
}

func TestGateStoreFailure(t *testing.T) {
	gate := NewGate(brokenStore{NewMemoryStore()}, gateSecret)

	tok, err := jwt.GenerateToken("someone", gateSecret, 0)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	_, err = gate.Authenticate(context.Background(), tok)
	if !errors.Is(err, ErrServerError) {
		t.Fatalf("Authenticate() error = %v, want ErrServerError", err)
	}
	if ce := GateError(err); ce.Code != errs.ErrServerError {
		t.Fatalf("GateError() code = %d", ce.Code)
	}
}
