package ocr

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// Backend names accepted by Config.Backend.
const (
	BackendLLM       = "llm"
	BackendTesseract = "tesseract"
)

// DefaultLanguage is the Tesseract language used when none is configured.
const DefaultLanguage = "eng"

// Config selects and configures an OCR backend.
type Config struct {
	// Backend is BackendLLM or BackendTesseract. Empty means BackendLLM.
	Backend string

	// LLM settings.
	Provider    string
	Model       string
	BaseURL     string
	APIKey      string
	Prompt      string
	MaxTokens   int
	Temperature *float64
	HTTPClient  *http.Client

	// Tesseract settings.
	Language    string
	PageSegMode int
	Preprocess  bool
	Contrast    float64

	Logger logrus.FieldLogger
}

func (c Config) withDefaults() Config {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = BackendLLM
	}
	c.Provider = normalizeProvider(c.Provider)
	if c.Provider == "" {
		c.Provider = "openai"
	}
	if c.Model == "" {
		c.Model = DefaultModels[c.Provider]
	}
	if c.Prompt == "" {
		c.Prompt = DefaultPrompt
	}
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.Contrast == 0 {
		c.Contrast = DefaultContrast
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	return c
}

// New builds the backend selected by cfg.Backend.
func New(cfg Config) (Extractor, error) {
	cfg = cfg.withDefaults()
	switch cfg.Backend {
	case BackendLLM:
		ex, err := NewLLMExtractor(cfg)
		if err != nil {
			return nil, err
		}
		return ex, nil
	case BackendTesseract:
		ex, err := NewTesseractExtractor(cfg)
		if err != nil {
			return nil, err
		}
		return ex, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, cfg.Backend)
	}
}
