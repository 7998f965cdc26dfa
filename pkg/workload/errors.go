package workload

import (
	"emperror.dev/errors"
)

// APIError is the failure type the simulated service raises
type APIError struct {
	Message    string
	StatusCode int
	ErrorCode  string
}

func (e *APIError) Error() string {
	return e.Message
}

// ErrorSource produces the service's failure values. The two
// implementations return identical errors; they differ only in
// allocation pattern, which is the retention behavior the harness
// measures.
type ErrorSource interface {
	UserNotFound(details ...interface{}) error
	TokenInvalid(details ...interface{}) error
}

// SharedErrors hands out process-lifetime error values. Every raise
// wraps the stored value with a fresh stack trace and the request
// details, then stores the wrapped result back, so the chain and
// every payload attached to it stays reachable until the process
// exits. This is the retention pattern under study; do not fix it.
type SharedErrors struct {
	userNotFound error
	tokenInvalid error
}

// NewSharedErrors seeds the shared error values
func NewSharedErrors() *SharedErrors {
	return &SharedErrors{
		userNotFound: &APIError{
			Message:    "User was not found",
			StatusCode: 404,
			ErrorCode:  "USER_NOT_FOUND",
		},
		tokenInvalid: &APIError{
			Message:    "The provided token is invalid",
			StatusCode: 401,
			ErrorCode:  "TOKEN_INVALID",
		},
	}
}

// UserNotFound returns the shared value, grown by one wrap
func (s *SharedErrors) UserNotFound(details ...interface{}) error {
	s.userNotFound = errors.WithDetails(errors.WithStackDepth(s.userNotFound, 1), details...)
	return s.userNotFound
}

// TokenInvalid returns the shared value, grown by one wrap
func (s *SharedErrors) TokenInvalid(details ...interface{}) error {
	s.tokenInvalid = errors.WithDetails(errors.WithStackDepth(s.tokenInvalid, 1), details...)
	return s.tokenInvalid
}

// FreshErrors builds a new error value per raise. Once the handler
// turns it into a response, the value and its attached details become
// garbage.
type FreshErrors struct{}

// UserNotFound returns a fresh user-not-found error
func (FreshErrors) UserNotFound(details ...interface{}) error {
	err := &APIError{
		Message:    "User was not found",
		StatusCode: 404,
		ErrorCode:  "USER_NOT_FOUND",
	}
	return errors.WithDetails(errors.WithStackDepth(err, 1), details...)
}

// TokenInvalid returns a fresh token-invalid error
func (FreshErrors) TokenInvalid(details ...interface{}) error {
	err := &APIError{
		Message:    "The provided token is invalid",
		StatusCode: 401,
		ErrorCode:  "TOKEN_INVALID",
	}
	return errors.WithDetails(errors.WithStackDepth(err, 1), details...)
}
