package httperr

import (
	"errors"
	"net/http"
)

// Error carries the status a handler should answer with. Errors that are not
// *Error map to 500.
type Error struct {
	Status int
	Code   string
	msg    string
}

func (e *Error) Error() string { return e.msg }

func NewBadRequest(msg string) error {
	return &Error{Status: http.StatusBadRequest, Code: "bad_request", msg: msg}
}

func NewUnauthorized(msg string) error {
	return &Error{Status: http.StatusUnauthorized, Code: "unauthenticated", msg: msg}
}

func NewForbidden(msg string) error {
	return &Error{Status: http.StatusForbidden, Code: "forbidden", msg: msg}
}

func NewNotFound(msg string) error {
	return &Error{Status: http.StatusNotFound, Code: "not_found", msg: msg}
}

func IsBadRequest(err error) bool {
	return StatusCode(err) == http.StatusBadRequest
}

func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if e, ok := errors.AsType[*Error](err); ok {
		return e.Status
	}
	return http.StatusInternalServerError
}

// CodeOf returns the stable machine-readable code for err.
func CodeOf(err error) string {
	if e, ok := errors.AsType[*Error](err); ok {
		return e.Code
	}
	return "internal_error"
}
