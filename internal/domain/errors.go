package domain

import "errors"

var (
	// ErrInvalidInput indicates an empty or malformed request field
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound indicates resource not found
	ErrNotFound = errors.New("resource not found")
	// ErrProviderUnavailable indicates the search provider could not be reached
	ErrProviderUnavailable = errors.New("search provider unavailable")
	// ErrModelUnavailable indicates the inference endpoint could not be reached
	ErrModelUnavailable = errors.New("model unavailable")
)

// ErrorKind maps a sentinel error to its wire-level kind tag.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrProviderUnavailable):
		return "provider_unavailable"
	case errors.Is(err, ErrModelUnavailable):
		return "model_unavailable"
	default:
		return "internal"
	}
}
