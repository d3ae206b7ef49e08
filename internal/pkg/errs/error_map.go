package errs

import "net/http"

// errorMap holds the client-facing message and HTTP status for every code.
// A zero Status means 200 with the code carried in the response envelope.
var errorMap = map[int]CustomError{
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Malformed JSON.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrUnknownEvent:         {Code: ErrUnknownEvent, Message: "Unknown event: %s."},
	ErrInvalidPayload:       {Code: ErrInvalidPayload, Message: "Invalid payload: %s."},

	ErrRoomTypeInvalid: {Code: ErrRoomTypeInvalid, Message: "Invalid chat type."},
	ErrRoomFull:        {Code: ErrRoomFull, Message: "This solo chat is already full."},
	ErrMessageTooLong:  {Code: ErrMessageTooLong, Message: "Message is too long."},

	ErrPowChallengeRequired: {Code: ErrPowChallengeRequired, Message: "Verification required. Please try again.", Status: http.StatusForbidden},
	ErrPowChallengeInvalid:  {Code: ErrPowChallengeInvalid, Message: "Verification failed. Please try again.", Status: http.StatusForbidden},
	ErrSessionReplaced:      {Code: ErrSessionReplaced, Message: "You were signed in from another tab or device."},
	ErrUnauthenticated:      {Code: ErrUnauthenticated, Message: "Authentication required.", Status: http.StatusUnauthorized},
	ErrTokenExpired:         {Code: ErrTokenExpired, Message: "Token expired.", Status: http.StatusUnauthorized},
	ErrTokenInvalid:         {Code: ErrTokenInvalid, Message: "Invalid token.", Status: http.StatusUnauthorized},
	ErrUnauthorized:         {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrAccountDisabled:      {Code: ErrAccountDisabled, Message: "Account is deactivated.", Status: http.StatusUnauthorized},
	ErrInvalidCredentials:   {Code: ErrInvalidCredentials, Message: "Invalid credentials.", Status: http.StatusUnauthorized},
	ErrInvalidUsername:      {Code: ErrInvalidUsername, Message: "Username must be 3-20 letters, numbers or underscores.", Status: http.StatusBadRequest},
	ErrInvalidEmail:         {Code: ErrInvalidEmail, Message: "Please enter a valid email.", Status: http.StatusBadRequest},
	ErrInvalidPassword:      {Code: ErrInvalidPassword, Message: "Password must be at least 6 characters long.", Status: http.StatusBadRequest},
	ErrPasswordMismatch:     {Code: ErrPasswordMismatch, Message: "Passwords do not match.", Status: http.StatusBadRequest},
	ErrUserAlreadyExists:    {Code: ErrUserAlreadyExists, Message: "Username already taken.", Status: http.StatusConflict},
	ErrEmailAlreadyUsed:     {Code: ErrEmailAlreadyUsed, Message: "Email already registered.", Status: http.StatusConflict},
	ErrUserNotFound:         {Code: ErrUserNotFound, Message: "Account not found.", Status: http.StatusNotFound},
	ErrInvalidBio:           {Code: ErrInvalidBio, Message: "Bio cannot exceed 150 characters.", Status: http.StatusBadRequest},

	ErrUnknown:           {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrServerError:       {Code: ErrServerError, Message: "Server error. Please try again later.", Status: http.StatusInternalServerError},
	ErrFileStorageFailed: {Code: ErrFileStorageFailed, Message: "File upload failed. Please try again.", Status: http.StatusBadGateway},
	ErrStorageDisabled:   {Code: ErrStorageDisabled, Message: "Avatar uploads are not available.", Status: http.StatusServiceUnavailable},
}
