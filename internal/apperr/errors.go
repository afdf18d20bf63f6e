package apperr

import (
	"errors"
	"fmt"
)

// ValidationError reports input rejected client-side before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// AuthError reports that the server rejected a credential or verification
// code. The message is the server's, passed through verbatim.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// StateError reports an operation invoked without its prerequisite state,
// such as completing registration with no user logged in.
type StateError struct {
	Message string
}

func (e *StateError) Error() string { return e.Message }

// NotFoundError reports a referenced resource the server does not know.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// RequestError reports a non-success HTTP response. Message carries the
// server-supplied error field when one was parsable, otherwise a generic
// status-based message.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string { return e.Message }

// IsNotFound reports whether err carries a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
