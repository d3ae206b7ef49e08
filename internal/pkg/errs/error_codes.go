/*
Package errs defines the numeric business error codes shared by the REST API and the
WebSocket protocol, and the CustomError type that carries them.
*/
package errs

// 1xxx: request and protocol errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request Content-Type is not JSON.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates a malformed JSON body or frame.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing data after the JSON document.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates the caller exceeded its request budget.
	ErrRateLimitExceeded = 1007

	// ErrUnknownEvent indicates a WebSocket frame named an event the server does not handle.
	ErrUnknownEvent = 1101

	// ErrInvalidPayload indicates an event payload is missing required fields.
	ErrInvalidPayload = 1102
)

// 2xxx: chat errors
const (
	// ErrRoomTypeInvalid indicates a join-chat request with an unknown chat type.
	ErrRoomTypeInvalid = 2101

	// ErrRoomFull indicates a solo room could not take another member.
	ErrRoomFull = 2104

	// ErrMessageTooLong indicates message content exceeded the configured limit.
	ErrMessageTooLong = 2201
)

// 3xxx: identity and session errors
const (
	ErrPowChallengeRequired = 3001
	ErrPowChallengeInvalid  = 3002

	// ErrSessionReplaced is sent to a connection displaced by a newer login of the same user.
	ErrSessionReplaced = 3004

	ErrUnauthenticated    = 3101
	ErrTokenExpired       = 3102
	ErrTokenInvalid       = 3103
	ErrUnauthorized       = 3104
	ErrAccountDisabled    = 3105
	ErrInvalidCredentials = 3106

	ErrInvalidUsername   = 3201
	ErrInvalidEmail      = 3202
	ErrInvalidPassword   = 3203
	ErrPasswordMismatch  = 3204
	ErrUserAlreadyExists = 3205
	ErrEmailAlreadyUsed  = 3206
	ErrUserNotFound      = 3207
	ErrInvalidBio        = 3208
)

// 5xxx: internal errors
const (
	// ErrUnknown is an unclassified internal error.
	ErrUnknown = 5000

	// ErrServerError indicates a dependency (database) failed while serving the request.
	ErrServerError = 5001

	// ErrFileStorageFailed indicates the object storage backend rejected the request.
	ErrFileStorageFailed = 5002

	// ErrStorageDisabled indicates avatar uploads are not configured on this server.
	ErrStorageDisabled = 5003
)
