package jwt

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testSecret = "test-secret"

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken("user-1", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	payload, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if payload.UserID != "user-1" {
		t.Fatalf("UserID = %q, want user-1", payload.UserID)
	}
}

func TestParseTokenClassifiesFailures(t *testing.T) {
	// GenerateToken never mints an expired token, so sign one by hand.
	past := &Payload{UserID: "user-1"}
	past.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	past.Issuer = TokenIssuer
	stale := signForTest(t, past)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"expired", stale, ErrExpired},
		{"garbage", "not.a.token", ErrInvalid},
		{"wrong secret", mustToken(t, "user-1", "other-secret"), ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token, testSecret); !errors.Is(err, tt.want) {
				t.Fatalf("ParseToken() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestIdentityExtractorMiddleware(t *testing.T) {
	var seen *Payload
	h := IdentityExtractorMiddleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetPayloadFromContext(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+mustToken(t, "user-9", testSecret))
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == nil || seen.UserID != "user-9" {
		t.Fatalf("expected payload for user-9, got %+v", seen)
	}

	seen = nil
	anon := httptest.NewRequest(http.MethodGet, "/", nil)
	anon.Header.Set("Authorization", "Bearer junk")
	h.ServeHTTP(httptest.NewRecorder(), anon)
	if seen != nil {
		t.Fatalf("invalid token must leave the request anonymous, got %+v", seen)
	}
}

func mustToken(t *testing.T, userID, secret string) string {
	t.Helper()
	token, err := GenerateToken(userID, secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	return token
}
