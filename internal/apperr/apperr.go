// Package apperr defines the small error taxonomy shared by the media store,
// the manifest stores and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"syscall"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrCorrupt          = errors.New("corrupt record")
	ErrStorageExhausted = errors.New("storage exhausted")
)

// Error codes as returned in API error bodies.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeCorrupt          = "CORRUPT_PROJECT"
	CodeStorageExhausted = "STORAGE_EXHAUSTED"
	CodeInternal         = "INTERNAL_ERROR"
)

// Invalid returns an ErrInvalidInput carrying a formatted reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Classify maps an underlying I/O error onto the taxonomy. Out-of-space
// conditions become ErrStorageExhausted and missing files become ErrNotFound;
// anything else is wrapped with op and stays in the Unknown bucket.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrCorrupt), errors.Is(err, ErrStorageExhausted):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, syscall.ENOSPC), errors.Is(err, syscall.EDQUOT):
		return fmt.Errorf("%s: %w: %v", op, ErrStorageExhausted, err)
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%s: %w: %v", op, ErrNotFound, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// IsUnknown reports whether err falls outside every known category.
func IsUnknown(err error) bool {
	return err != nil && Code(err) == CodeInternal
}

func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrCorrupt):
		return CodeCorrupt
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrStorageExhausted):
		return CodeStorageExhausted
	default:
		return CodeInternal
	}
}

func HTTPStatus(err error) int {
	switch Code(err) {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidInput, CodeCorrupt:
		return http.StatusBadRequest
	case CodeStorageExhausted:
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-facing text for err. Storage exhaustion gets an
// actionable message; unknown errors are not echoed verbatim.
func Message(err error) string {
	switch Code(err) {
	case CodeStorageExhausted:
		return "no space left on device, free up disk space and try again"
	case CodeInternal:
		return "something went wrong"
	default:
		return err.Error()
	}
}
