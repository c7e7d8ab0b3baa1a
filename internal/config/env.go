package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every application environment variable.
const EnvPrefix = "OCR_VIEWPORT_"

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays environment variables on c.
//
// Provider credentials fall back to the conventional variables
// (OPENAI_API_KEY, ANTHROPIC_API_KEY, MISTRAL_API_KEY, OPENAI_BASE_URL,
// OLLAMA_HOST) when no application-specific value is set.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return "", false
		}
		return strings.TrimSpace(v), true
	}

	var errs []error
	str := func(name string, dst *string) {
		if v, ok := get(name); ok {
			*dst = v
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := get(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	float := func(name string, dst *float64) {
		if v, ok := get(name); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = f
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := get(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)

	str("OCR_BACKEND", &c.OCR.Backend)
	str("OCR_PROVIDER", &c.OCR.Provider)
	str("OCR_MODEL", &c.OCR.Model)
	str("OCR_BASE_URL", &c.OCR.BaseURL)
	str("OCR_API_KEY", &c.OCR.APIKey)
	str("OCR_PROMPT", &c.OCR.Prompt)
	integer("OCR_MAX_TOKENS", &c.OCR.MaxTokens)
	if v, ok := get("OCR_TEMPERATURE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sOCR_TEMPERATURE: %w", EnvPrefix, err))
		} else {
			c.OCR.Temperature = &f
		}
	}
	str("TESSERACT_LANG", &c.OCR.Language)
	integer("TESSERACT_PSM", &c.OCR.PageSegMode)
	boolean("TESSERACT_PREPROCESS", &c.OCR.Preprocess)

	integer("JPEG_QUALITY", &c.Crop.JPEGQuality)
	integer("MAX_CROP_PIXELS", &c.Crop.MaxPixels)
	float("DISPLAY_MAX_WIDTH", &c.Display.MaxWidth)
	float("DISPLAY_MAX_HEIGHT", &c.Display.MaxHeight)
	str("HTTP_ADDR", &c.HTTP.Addr)
	if v, ok := get("MAX_UPLOAD_BYTES"); ok {
		n, err := ParseByteSize(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_UPLOAD_BYTES: %w", EnvPrefix, err))
		} else {
			c.HTTP.MaxUploadBytes = n
		}
	}
	integer("CACHE_SIZE", &c.CacheSize)

	c.applyProviderEnv(lookup)
	return errors.Join(errs...)
}

func (c *Config) applyProviderEnv(lookup LookupFunc) {
	provider := strings.ToLower(strings.TrimSpace(c.OCR.Provider))

	if c.OCR.APIKey == "" {
		keyVar := map[string]string{
			"openai":    "OPENAI_API_KEY",
			"anthropic": "ANTHROPIC_API_KEY",
			"mistral":   "MISTRAL_API_KEY",
		}[provider]
		if keyVar != "" {
			if v, ok := lookup(keyVar); ok {
				c.OCR.APIKey = strings.TrimSpace(v)
			}
		}
	}

	if c.OCR.BaseURL == "" {
		urlVar := map[string]string{
			"openai": "OPENAI_BASE_URL",
			"ollama": "OLLAMA_HOST",
		}[provider]
		if urlVar != "" {
			if v, ok := lookup(urlVar); ok {
				c.OCR.BaseURL = strings.TrimSpace(v)
			}
		}
	}
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overwriting variables that are already set. A missing file is not
// an error. Blank lines and lines starting with # are ignored; values may be
// wrapped in single or double quotes.
func LoadDotEnv(path string) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		eq := strings.IndexByte(line, '=')
		if eq <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		val := unquote(strings.TrimSpace(line[eq+1:]))
		if _, exists := os.LookupEnv(key); !exists {
			if err := os.Setenv(key, val); err != nil {
				return fmt.Errorf("failed to set %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}
