package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrCorruptData  = errors.New("corrupted payload")
	ErrIO           = errors.New("storage unavailable")

	// Both wrap ErrValidation but surface with their own status.
	ErrKeyMismatch = wrap("basketId mismatch", ErrValidation)
	ErrTooLarge    = wrap("request body too large", ErrValidation)
)

type wrapped struct {
	msg string
	err error
}

func wrap(msg string, err error) error { return &wrapped{msg: msg, err: err} }

func (w *wrapped) Error() string { return w.msg }
func (w *wrapped) Unwrap() error { return w.err }

// Status maps an error to the HTTP status it is reported with.
// Unknown errors are server errors.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrKeyMismatch):
		return http.StatusBadRequest
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Detail is the client-facing message for err. Server-side failures are
// reduced to a fixed string so storage internals never leak.
func Detail(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, ErrNotFound):
		return "Not found"
	case errors.Is(err, ErrCorruptData):
		return "Corrupted payload"
	case errors.Is(err, ErrValidation):
		return err.Error()
	default:
		return "internal server error"
	}
}
