/*
Package randx generates identifiers: connection ids, solo room tokens, message ids
and generated avatar URLs.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/url"

	"github.com/google/uuid"
)

const (
	// Base62Chars is the alphabet used for short tokens.
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	base62Len = int64(len(Base62Chars))

	// SoloTokenLength is the length of the random part of a solo room key.
	SoloTokenLength = 10

	avatarServiceURL = "https://ui-avatars.com/api/"
)

// Base62 returns a cryptographically random Base62 string of length n.
func Base62(n int) (string, error) {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(base62Len))
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		out[i] = Base62Chars[num.Int64()]
	}
	return string(out), nil
}

// SoloRoomKey returns a fresh key for a solo room. It falls back to a UUID when the
// system random source fails, so the caller always gets a unique key.
func SoloRoomKey() string {
	token, err := Base62(SoloTokenLength)
	if err != nil {
		token = uuid.NewString()
	}
	return "solo-" + token
}

// ConnID returns a unique identifier for a live connection.
func ConnID() string {
	return uuid.NewString()
}

// MessageID returns a UUID v4 for a delivered message.
func MessageID() string {
	return uuid.NewString()
}

// AvatarURL returns the generated default avatar for a username.
func AvatarURL(username string) string {
	q := url.Values{}
	q.Set("name", username)
	q.Set("background", "667eea")
	q.Set("color", "fff")
	q.Set("size", "100")
	return avatarServiceURL + "?" + q.Encode()
}
