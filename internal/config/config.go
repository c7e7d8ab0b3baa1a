// Package config holds runtime configuration.
//
// Values come from, in increasing precedence: built-in defaults, a JSON or
// YAML file, environment variables, and command-line flags (applied by the
// caller). An optional .env file can seed the environment first.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/ocr-viewport/internal/imaging"
	"github.com/ironsheep/ocr-viewport/internal/ocr"
)

// AppName is used for the config directory and environment prefix.
const AppName = "ocr-viewport"

// Config holds runtime configuration.
type Config struct {
	LogLevel  string `json:"log_level" yaml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format"`

	OCR     OCRConfig     `json:"ocr" yaml:"ocr"`
	Crop    CropConfig    `json:"crop" yaml:"crop"`
	Display DisplayConfig `json:"display" yaml:"display"`
	HTTP    HTTPConfig    `json:"http" yaml:"http"`

	// CacheSize is how many decoded images loaded by path are kept.
	CacheSize int `json:"cache_size" yaml:"cache_size"`
}

// OCRConfig selects the OCR backend.
type OCRConfig struct {
	Backend     string   `json:"backend" yaml:"backend"`
	Provider    string   `json:"provider" yaml:"provider"`
	Model       string   `json:"model,omitempty" yaml:"model,omitempty"`
	BaseURL     string   `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIKey      string   `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Prompt      string   `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`

	Language    string `json:"language" yaml:"language"`
	PageSegMode int    `json:"page_seg_mode,omitempty" yaml:"page_seg_mode,omitempty"`
	Preprocess  bool   `json:"preprocess" yaml:"preprocess"`
}

// CropConfig controls crop encoding.
type CropConfig struct {
	JPEGQuality int `json:"jpeg_quality" yaml:"jpeg_quality"`
	MaxPixels   int `json:"max_pixels" yaml:"max_pixels"`
}

// DisplayConfig bounds the layout used when a client loads an image without
// reporting its displayed size. Zero disables fitting on that axis.
type DisplayConfig struct {
	MaxWidth  float64 `json:"max_width" yaml:"max_width"`
	MaxHeight float64 `json:"max_height" yaml:"max_height"`
}

// HTTPConfig configures the HTTP API.
type HTTPConfig struct {
	Addr           string   `json:"addr" yaml:"addr"`
	MaxUploadBytes ByteSize `json:"max_upload_bytes" yaml:"max_upload_bytes"`
}

// Default returns a Config populated with standard defaults.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		OCR: OCRConfig{
			Backend:  ocr.BackendLLM,
			Provider: "openai",
			Language: ocr.DefaultLanguage,
		},
		Crop: CropConfig{
			JPEGQuality: imaging.DefaultJPEGQuality,
			MaxPixels:   imaging.DefaultMaxCropPixels,
		},
		Display: DisplayConfig{
			MaxWidth:  1280,
			MaxHeight: 960,
		},
		HTTP: HTTPConfig{
			Addr:           "127.0.0.1:8080",
			MaxUploadBytes: 10 << 20,
		},
		CacheSize: imaging.DefaultCacheSize,
	}
}

// DefaultPath returns the first config file found in the XDG config
// directories, or "" when there is none.
func DefaultPath() string {
	for _, name := range []string{"config.json", "config.yaml", "config.yml"} {
		if p, err := xdg.SearchConfigFile(filepath.Join(AppName, name)); err == nil {
			return p
		}
	}
	return ""
}

// Load reads configuration from path. An empty path or a missing file
// yields defaults. The format is chosen by extension: .yaml and .yml are
// YAML, anything else JSON.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path, as YAML or JSON by extension.
// The API key is never written.
func (c *Config) Save(path string) error {
	out := *c
	out.OCR.APIKey = ""

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(&out)
	default:
		data, err = json.MarshalIndent(&out, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate checks that values are usable and normalizes case.
func (c *Config) Validate() error {
	var errs []error

	c.OCR.Backend = strings.ToLower(strings.TrimSpace(c.OCR.Backend))
	c.OCR.Provider = strings.ToLower(strings.TrimSpace(c.OCR.Provider))

	switch c.OCR.Backend {
	case ocr.BackendLLM:
		if _, ok := ocr.DefaultModels[c.OCR.Provider]; !ok {
			errs = append(errs, fmt.Errorf("ocr.provider: unsupported provider %q", c.OCR.Provider))
		}
	case ocr.BackendTesseract:
	default:
		errs = append(errs, fmt.Errorf("ocr.backend: must be %q or %q, got %q", ocr.BackendLLM, ocr.BackendTesseract, c.OCR.Backend))
	}
	if c.OCR.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("ocr.max_tokens: must not be negative"))
	}
	if c.OCR.PageSegMode < 0 || c.OCR.PageSegMode > 13 {
		errs = append(errs, fmt.Errorf("ocr.page_seg_mode: must be between 0 and 13"))
	}
	if c.Crop.JPEGQuality < 1 || c.Crop.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("crop.jpeg_quality: must be between 1 and 100, got %d", c.Crop.JPEGQuality))
	}
	if c.Crop.MaxPixels <= 0 {
		errs = append(errs, fmt.Errorf("crop.max_pixels: must be positive"))
	}
	if c.Display.MaxWidth < 0 || c.Display.MaxHeight < 0 {
		errs = append(errs, fmt.Errorf("display: max size must not be negative"))
	}
	if c.HTTP.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("http.max_upload_bytes: must be positive"))
	}
	if c.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("cache_size: must not be negative"))
	}

	return errors.Join(errs...)
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	out := *c
	if out.OCR.APIKey != "" {
		out.OCR.APIKey = "********"
	}
	return &out
}

// OCROptions converts the OCR section for ocr.New.
func (c *Config) OCROptions(logger logrus.FieldLogger) ocr.Config {
	return ocr.Config{
		Backend:     c.OCR.Backend,
		Provider:    c.OCR.Provider,
		Model:       c.OCR.Model,
		BaseURL:     c.OCR.BaseURL,
		APIKey:      c.OCR.APIKey,
		Prompt:      c.OCR.Prompt,
		MaxTokens:   c.OCR.MaxTokens,
		Temperature: c.OCR.Temperature,
		Language:    c.OCR.Language,
		PageSegMode: c.OCR.PageSegMode,
		Preprocess:  c.OCR.Preprocess,
		Logger:      logger,
	}
}

// CropOptions converts the crop section for imaging.CropSelection.
func (c *Config) CropOptions() imaging.CropOptions {
	return imaging.CropOptions{Quality: c.Crop.JPEGQuality, MaxPixels: c.Crop.MaxPixels}
}
