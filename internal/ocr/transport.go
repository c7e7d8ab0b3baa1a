package ocr

import (
	"net/http"
	"strconv"
)

// headerTransport tags outgoing model requests with RequestMeta from the
// request context. Headers already set by the caller win.
type headerTransport struct {
	base http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	// RoundTrippers must not modify the caller's request.
	req = req.Clone(req.Context())
	meta := RequestMetaFromContext(req.Context())

	if req.Header.Get("X-Title") == "" {
		req.Header.Set("X-Title", "ocr-viewport")
	}
	if req.Header.Get("X-OCR-Generation") == "" && meta.Generation != 0 {
		req.Header.Set("X-OCR-Generation", strconv.FormatUint(meta.Generation, 10))
	}
	if req.Header.Get("X-OCR-Source") == "" && meta.Source != "" {
		req.Header.Set("X-OCR-Source", meta.Source)
	}
	if req.Header.Get("X-Request-ID") == "" && meta.RequestID != "" {
		req.Header.Set("X-Request-ID", meta.RequestID)
	}

	return base.RoundTrip(req)
}

func newInstrumentedHTTPClient(base *http.Client) *http.Client {
	if base == nil {
		return &http.Client{Transport: &headerTransport{base: http.DefaultTransport}}
	}
	c := *base
	c.Transport = &headerTransport{base: base.Transport}
	return &c
}
