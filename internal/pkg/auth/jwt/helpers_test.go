package jwt

import (
	"testing"

	"github.com/golang-jwt/jwt"
)

func signForTest(t *testing.T, payload *Payload) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}
