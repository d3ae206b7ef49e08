package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	// DefaultExpiration is used when the configuration leaves the token lifetime unset.
	DefaultExpiration = 24 * time.Hour

	// TokenIssuer identifies tokens minted by this server.
	TokenIssuer = "LobbyChat-Server"
)

var (
	// ErrExpired is returned by ParseToken for a well-formed token past its exp claim.
	ErrExpired = errors.New("token expired")

	// ErrInvalid is returned by ParseToken for any other verification failure.
	ErrInvalid = errors.New("token invalid")
)

// GenerateToken signs an HS256 token for userID valid for duration.
func GenerateToken(userID, secretKey string, duration time.Duration) (string, error) {
	if duration <= 0 {
		duration = DefaultExpiration
	}

	now := time.Now()
	payload := &Payload{
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(duration).Unix(),
			IssuedAt:  now.Unix(),
			Issuer:    TokenIssuer,
		},
		UserID: userID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)

	return token.SignedString([]byte(secretKey))
}

// ParseToken verifies tokenString and returns its claims. Failures wrap ErrExpired or
// ErrInvalid so callers can tell a stale session from a forged one.
func ParseToken(tokenString, secretKey string) (*Payload, error) {
	claims := &Payload{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})

	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, fmt.Errorf("%w: %v", ErrExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if !token.Valid || claims.UserID == "" || claims.Issuer != TokenIssuer {
		return nil, fmt.Errorf("%w: missing or foreign claims", ErrInvalid)
	}

	return claims, nil
}
