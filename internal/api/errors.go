package api

import (
	"errors"
	"net/http"

	"github.com/DRGN-DRC/Melee-Modding-Wizard-sub000/pkg/dat"
)

var ErrInvalidRequest = errors.New("invalid_request")

type invalidRequestError struct {
	msg string
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func newInvalidRequest(msg string) error {
	return invalidRequestError{msg: msg}
}

// statusFor maps engine errors to an HTTP status and error type.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request_error"
	case errors.Is(err, dat.ErrOutOfRange), errors.Is(err, dat.ErrTypeMismatch):
		return http.StatusNotFound, "not_found_error"
	case errors.Is(err, dat.ErrResizeBounds),
		errors.Is(err, dat.ErrReadOnly),
		errors.Is(err, dat.ErrPointerOverlap),
		errors.Is(err, dat.ErrFieldRange),
		errors.Is(err, dat.ErrUnknownField),
		errors.Is(err, dat.ErrUnresolvedPointer):
		return http.StatusUnprocessableEntity, "edit_rejected_error"
	case errors.Is(err, dat.ErrStaleRecord):
		return http.StatusConflict, "conflict_error"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}
