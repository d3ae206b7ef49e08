/*
Package user holds the account model shared by the REST API and the chat coordinator.

It defines the Identity record owned by the durable store, the public projections other
users are allowed to see, the validation rules applied on signup and profile edits, the
Store contract implemented by the database layer, and the Gate that resolves a bearer
token into an Identity before a WebSocket connection is admitted.
*/
package user

import (
	"time"
)

// Badge is the verification badge displayed next to a username.
type Badge string

const (
	BadgeNone     Badge = "none"
	BadgeVerified Badge = "verified"
	BadgePremium  Badge = "premium"
	BadgeAdmin    Badge = "admin"
)

// Valid reports whether b is one of the known badges.
func (b Badge) Valid() bool {
	switch b {
	case BadgeNone, BadgeVerified, BadgePremium, BadgeAdmin:
		return true
	}
	return false
}

// Profile is the user-editable part of an account.
type Profile struct {
	DisplayName string    `json:"displayName"`
	Bio         string    `json:"bio"`
	Avatar      string    `json:"avatar"`
	JoinedDate  time.Time `json:"joinedDate"`
}

// Verification carries the account's verification state.
type Verification struct {
	IsVerified bool  `json:"isVerified"`
	Badge      Badge `json:"verificationBadge"`
}

// Identity is a registered account as stored durably.
type Identity struct {
	ID           string       `json:"id"`
	Username     string       `json:"username"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"`
	Profile      Profile      `json:"profile"`
	Verification Verification `json:"verification"`
	IsActive     bool         `json:"-"`
	IsOnline     bool         `json:"isOnline"`
	LastLogin    *time.Time   `json:"lastLogin,omitempty"`
	LastSeen     time.Time    `json:"lastSeen"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// PublicProfile is what other users may see about an account.
type PublicProfile struct {
	ID           string       `json:"id"`
	Username     string       `json:"username"`
	Profile      Profile      `json:"profile"`
	Verification Verification `json:"verification"`
	IsOnline     bool         `json:"isOnline"`
	LastSeen     time.Time    `json:"lastSeen"`
}

// Member is the compact descriptor used in room member lists and chat descriptors.
type Member struct {
	ID           string       `json:"id"`
	Username     string       `json:"username"`
	Profile      Profile      `json:"profile"`
	Verification Verification `json:"verification"`
}

// Public returns the public projection of i.
func (i Identity) Public() PublicProfile {
	return PublicProfile{
		ID:           i.ID,
		Username:     i.Username,
		Profile:      i.Profile,
		Verification: i.Verification,
		IsOnline:     i.IsOnline,
		LastSeen:     i.LastSeen,
	}
}

// Member returns the member descriptor of i.
func (i Identity) Member() Member {
	return Member{
		ID:           i.ID,
		Username:     i.Username,
		Profile:      i.Profile,
		Verification: i.Verification,
	}
}
