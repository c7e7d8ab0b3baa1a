package ocr

import (
	"errors"
	"fmt"
)

// ServiceErrorMessage is what users see when a backend call fails.
const ServiceErrorMessage = "Failed to communicate with the OCR service. Please check your connection and API key."

var (
	// ErrTesseractUnavailable is returned when the binary was built without cgo.
	ErrTesseractUnavailable = errors.New("tesseract backend not available in this build (requires cgo)")

	// ErrEmptyResponse is returned when a model answers with no choices.
	ErrEmptyResponse = errors.New("empty response from OCR backend")

	// ErrUnsupportedBackend is returned by New for an unknown backend or provider.
	ErrUnsupportedBackend = errors.New("unsupported OCR backend")

	// ErrMissingAPIKey is returned by New when a hosted provider has no key.
	ErrMissingAPIKey = errors.New("API key is not set")
)

// ServiceError wraps any failure that occurred while talking to a backend.
type ServiceError struct {
	// Backend names the failing backend, e.g. "openai" or "tesseract".
	Backend string
	Err     error
}

func (e *ServiceError) Error() string { return ServiceErrorMessage }

func (e *ServiceError) Unwrap() error { return e.Err }

// Detail describes the underlying cause for logs and diagnostics.
func (e *ServiceError) Detail() string {
	if e.Err == nil {
		return e.Backend
	}
	if e.Backend == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Backend, e.Err)
}

// WrapError returns err as a *ServiceError. Errors that already are one are
// returned unchanged, and nil stays nil.
func WrapError(backend string, err error) error {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return err
	}
	return &ServiceError{Backend: backend, Err: err}
}
