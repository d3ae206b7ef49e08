package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"lobbychat/internal/pkg/logx"
)

// CustomError carries a business code, a user-facing message and the HTTP status
// used when the error is returned from a REST handler.
type CustomError struct {
	Code    int
	Message string
	Status  int
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("error %d (http %d): %s", e.Code, e.Status, e.Message)
}

// NewError builds a CustomError from a registered code. details fill printf verbs in
// the message template; an unregistered code degrades to ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	tmpl, ok := errorMap[code]
	if !ok {
		logx.Warn("unknown error code requested", "requested_code", code)
		tmpl = errorMap[ErrUnknown]
	}

	e := tmpl
	if e.Status == 0 {
		e.Status = http.StatusOK
	}

	if len(details) > 0 && strings.Contains(e.Message, "%") {
		e.Message = fmt.Sprintf(e.Message, details...)
	}

	return &e
}

// From converts any error into a CustomError, keeping codes already attached.
func From(err error) *CustomError {
	if err == nil {
		return nil
	}

	var ce *CustomError
	if errors.As(err, &ce) {
		return ce
	}

	return NewError(ErrUnknown)
}
