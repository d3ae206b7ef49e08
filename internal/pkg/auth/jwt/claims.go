package jwt

import "github.com/golang-jwt/jwt"

// Payload is the claim set carried by Lobby Chat tokens.
type Payload struct {
	jwt.StandardClaims

	// UserID is the stable identity ID of the account the token was issued to.
	UserID string `json:"uid"`
}
