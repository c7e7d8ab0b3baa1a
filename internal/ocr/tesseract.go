//go:build cgo

package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
	"github.com/sirupsen/logrus"
)

// maxPageSegMode is PSM_RAW_LINE, the last mode Tesseract accepts.
const maxPageSegMode = 13

// TesseractExtractor runs Tesseract in-process.
type TesseractExtractor struct {
	language    string
	pageSegMode int
	preprocess  bool
	contrast    float64
	log         logrus.FieldLogger
}

// NewTesseractExtractor creates a Tesseract backend. Language data is
// resolved by Tesseract at recognition time.
func NewTesseractExtractor(cfg Config) (*TesseractExtractor, error) {
	cfg = cfg.withDefaults()
	if cfg.PageSegMode < 0 || cfg.PageSegMode > maxPageSegMode {
		return nil, fmt.Errorf("invalid page segmentation mode %d", cfg.PageSegMode)
	}
	return &TesseractExtractor{
		language:    cfg.Language,
		pageSegMode: cfg.PageSegMode,
		preprocess:  cfg.Preprocess,
		contrast:    cfg.Contrast,
		log:         cfg.Logger.WithField("backend", BackendTesseract),
	}, nil
}

// Extract recognizes req.Data. Tesseract cannot be interrupted, so a
// cancelled context returns immediately while recognition finishes in the
// background.
func (t *TesseractExtractor) Extract(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &ServiceError{Backend: BackendTesseract, Err: err}
	}

	data := req.Data
	if t.preprocess {
		var err error
		if data, err = Preprocess(data, t.contrast); err != nil {
			return "", &ServiceError{Backend: BackendTesseract, Err: err}
		}
	}

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := t.recognize(data)
		done <- result{text, err}
	}()

	select {
	case <-ctx.Done():
		return "", &ServiceError{Backend: BackendTesseract, Err: ctx.Err()}
	case r := <-done:
		if r.err != nil {
			t.log.WithError(r.err).Error("Tesseract recognition failed")
			return "", &ServiceError{Backend: BackendTesseract, Err: r.err}
		}
		t.log.WithField("content_length", len(r.text)).Debug("Tesseract recognition done")
		return r.text, nil
	}
}

func (t *TesseractExtractor) recognize(data []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.language); err != nil {
		return "", fmt.Errorf("failed to set language: %w", err)
	}
	if t.pageSegMode > 0 {
		if err := client.SetPageSegMode(gosseract.PageSegMode(t.pageSegMode)); err != nil {
			return "", fmt.Errorf("failed to set page segmentation mode: %w", err)
		}
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}
	return text, nil
}
