package units

import (
	"errors"
	"net/http"
)

// Domain errors for unit operations.
var (
	ErrNotFound      = errors.New("unit not found")
	ErrDuplicate     = errors.New("unit already exists for external id")
	ErrStaleState    = errors.New("unit status changed concurrently")
	ErrIntegrity     = errors.New("unit checksum mismatch")
	ErrInvalidSource = errors.New("unknown channel source")
	ErrInvalidID     = errors.New("invalid unit id")
)

// MapHTTPStatus maps unit domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrStaleState):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidSource), errors.Is(err, ErrInvalidID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
