//go:build !cgo

package ocr

import "context"

// TesseractExtractor is unavailable without cgo.
type TesseractExtractor struct{}

// NewTesseractExtractor always fails with ErrTesseractUnavailable.
func NewTesseractExtractor(Config) (*TesseractExtractor, error) {
	return nil, ErrTesseractUnavailable
}

// Extract always fails with a ServiceError wrapping ErrTesseractUnavailable.
func (*TesseractExtractor) Extract(context.Context, Request) (string, error) {
	return "", &ServiceError{Backend: BackendTesseract, Err: ErrTesseractUnavailable}
}
