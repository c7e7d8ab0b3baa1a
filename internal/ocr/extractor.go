package ocr

import "context"

// DefaultPrompt asks a vision model for a plain transcription of a cropped
// document fragment.
const DefaultPrompt = "Extract all text from this image exactly as it appears. " +
	"Preserve the original line breaks. " +
	"Respond with the extracted text only, without commentary or formatting."

// Request is a single image handed to a backend.
type Request struct {
	// MimeType of Data, e.g. "image/jpeg".
	MimeType string
	Data     []byte
}

// Extractor recognizes the text in an image.
type Extractor interface {
	Extract(ctx context.Context, req Request) (string, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, req Request) (string, error)

// Extract calls f(ctx, req).
func (f ExtractorFunc) Extract(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
