package pow

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

func solve(t *testing.T, nonce string, difficulty int) string {
	t.Helper()
	for i := 0; i < 1<<22; i++ {
		c := strconv.Itoa(i)
		if Satisfies(nonce, c, difficulty) {
			return c
		}
	}
	t.Fatal("no solution found")
	return ""
}

func TestChallengeRoundTrip(t *testing.T) {
	m := NewManager(2)
	defer m.Close()

	ch := m.NewChallenge()
	counter := solve(t, ch.Nonce, ch.Difficulty)

	token, err := m.Verify(ch.Nonce, counter)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if _, err := m.Verify(ch.Nonce, counter); !errors.Is(err, ErrNonceConsumed) {
		t.Fatalf("second Verify() error = %v, want ErrNonceConsumed", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(TokenHeaderKey, token)
	if !m.Consume(req) {
		t.Fatal("fresh proof token should be accepted")
	}
	if m.Consume(req) {
		t.Fatal("proof token must be single use")
	}
}

func TestRequireMiddleware(t *testing.T) {
	m := NewManager(1)
	defer m.Close()

	h := m.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("missing token status = %d, want 403", rec.Code)
	}

	ch := m.NewChallenge()
	token, err := m.Verify(ch.Nonce, solve(t, ch.Nonce, 1))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(TokenHeaderKey, token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("valid token status = %d, want 201", rec.Code)
	}
}
