// Package apperr defines the failure kinds surfaced by the collection core.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned when the parent row or the sub-record is absent.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when a required field is missing or malformed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrCorruptData is returned when a stored column cannot be decoded.
	ErrCorruptData = errors.New("corrupt data")
	// ErrStorageUnavailable is returned when the row store errors or times out.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrConflict is returned when an optimistic write lost a race. Callers may retry.
	ErrConflict = errors.New("conflict")
)

// Code returns a stable machine-readable code for err.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrCorruptData):
		return "CORRUPT_DATA"
	case errors.Is(err, ErrStorageUnavailable):
		return "STORAGE_UNAVAILABLE"
	default:
		return "INTERNAL"
	}
}

// HTTPStatus maps err to the status code the HTTP layer responds with.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsKnown reports whether err already carries one of the kinds above.
func IsKnown(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrCorruptData) ||
		errors.Is(err, ErrStorageUnavailable) ||
		errors.Is(err, ErrConflict)
}

// Storage classifies an error coming back from a row store call. Errors that
// already carry a kind pass through; everything else, deadlines included,
// becomes ErrStorageUnavailable.
func Storage(err error) error {
	if err == nil || IsKnown(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: store call timed out: %w", ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}
