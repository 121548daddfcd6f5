package httpx

import (
	"errors"
	"net/http"
)

// Sentinel classes deciding the response status of a domain error.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrDuplicate  = errors.New("duplicate entry")
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
)

type classified struct {
	err   error
	class error
}

func (c classified) Error() string { return c.err.Error() }

func (c classified) Unwrap() []error { return []error{c.err, c.class} }

// Classify tags err with one of the sentinel classes while keeping its message
// and its own error chain.
func Classify(err, class error) error {
	if err == nil {
		return nil
	}
	return classified{err: err, class: class}
}

// RespondError maps err to a problem response by its class. Unclassified
// errors become a 500 without detail.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, r, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, r, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, r, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, r, http.StatusForbidden, "Forbidden", err.Error())
	default:
		Problem(w, r, http.StatusInternalServerError, "Internal Error", "")
	}
}
