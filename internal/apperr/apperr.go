// Package apperr is the error taxonomy shared by the services and the HTTP layer.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrValidation      = errors.New("validation")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidState    = errors.New("invalid state")
)

// Error carries a client-safe message and matches its kind with errors.Is.
type Error struct {
	Kind error
	Msg  string
	Err  error // underlying cause, never shown to clients
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

func New(kind error, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind error, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func Validation(msg string) error { return New(ErrValidation, msg) }
func NotFound(msg string) error   { return New(ErrNotFound, msg) }
func Forbidden(msg string) error  { return New(ErrUnauthorized, msg) }

// Status maps an error to its HTTP status code. Unknown errors are 500.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the text safe to send to a client; internal errors collapse to fallback.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return fallback
}
