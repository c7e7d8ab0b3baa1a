package imaging

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrUnsupportedFormat is returned when uploaded bytes are not a raster
// format this package can decode.
var ErrUnsupportedFormat = errors.New("unsupported image format")

var decodableTypes = []string{
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/bmp",
	"image/tiff",
	"image/webp",
}

// Sniff detects the content type of data and reports an error unless it is
// one of the formats Decode understands.
func Sniff(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty input", ErrUnsupportedFormat)
	}
	mt := mimetype.Detect(data)
	for _, t := range decodableTypes {
		if mt.Is(t) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mt.String())
}

// SplitDataURL strips a "data:<type>;base64," prefix if present and returns
// the declared type with the payload. Plain base64 is returned unchanged.
func SplitDataURL(s string) (mimeType, payload string) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return "", s
	}
	head, body, ok := strings.Cut(s, ",")
	if !ok {
		return "", s
	}
	head = strings.TrimPrefix(head, "data:")
	mimeType, _, _ = strings.Cut(head, ";")
	return mimeType, body
}
