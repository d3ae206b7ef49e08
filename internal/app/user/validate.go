package user

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"lobbychat/internal/pkg/errs"
	"lobbychat/internal/pkg/randx"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
	MinPasswordLength = 6
	MaxPasswordLength = 72
	MaxBioLength      = 150
	MaxDisplayName    = 50
)

var (
	usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)
	emailRegex    = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,}$`)
)

// ValidateUsername checks the 3-20 character alphanumeric-plus-underscore rule.
func ValidateUsername(username string) *errs.CustomError {
	if !usernameRegex.MatchString(username) {
		return errs.NewError(errs.ErrInvalidUsername)
	}
	return nil
}

// NormalizeEmail trims and lowercases email and validates its shape.
func NormalizeEmail(email string) (string, *errs.CustomError) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRegex.MatchString(email) {
		return "", errs.NewError(errs.ErrInvalidEmail)
	}
	return email, nil
}

// ValidatePassword checks the password length. bcrypt ignores bytes past 72.
func ValidatePassword(password string) *errs.CustomError {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength || len(password) > MaxPasswordLength {
		return errs.NewError(errs.ErrInvalidPassword)
	}
	return nil
}

// ValidateBio checks the bio length in characters.
func ValidateBio(bio string) *errs.CustomError {
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return errs.NewError(errs.ErrInvalidBio)
	}
	return nil
}

// ValidateDisplayName checks a display name is non-blank and reasonably short.
func ValidateDisplayName(name string) *errs.CustomError {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n == 0 || n > MaxDisplayName {
		return errs.NewError(errs.ErrInvalidParams)
	}
	return nil
}

// DefaultProfile returns the profile a new account starts with.
func DefaultProfile(username string) Profile {
	return Profile{
		DisplayName: username,
		Avatar:      randx.AvatarURL(username),
	}
}
