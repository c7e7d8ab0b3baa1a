package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/mistral"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// DefaultOllamaHost is used when no base URL is configured for ollama.
const DefaultOllamaHost = "http://127.0.0.1:11434"

// DefaultModels maps each provider to the model used when none is configured.
var DefaultModels = map[string]string{
	"openai":    "gpt-4o-mini",
	"anthropic": "claude-3-5-sonnet-latest",
	"mistral":   "pixtral-12b-latest",
	"ollama":    "minicpm-v",
}

// LLMExtractor implements OCR with a vision language model.
type LLMExtractor struct {
	provider    string
	model       string
	prompt      string
	maxTokens   int
	temperature *float64
	llm         llms.Model
	log         logrus.FieldLogger
}

// NewLLMExtractor creates the langchaingo client for cfg.Provider.
func NewLLMExtractor(cfg Config) (*LLMExtractor, error) {
	cfg = cfg.withDefaults()
	logger := cfg.Logger.WithFields(logrus.Fields{
		"provider": cfg.Provider,
		"model":    cfg.Model,
	})
	logger.Info("Creating LLM OCR backend")

	var (
		model llms.Model
		err   error
	)
	switch cfg.Provider {
	case "openai":
		model, err = createOpenAIClient(cfg)
	case "ollama":
		model, err = createOllamaClient(cfg)
	case "mistral":
		model, err = createMistralClient(cfg)
	case "anthropic":
		model, err = createAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("%w: vision LLM provider %q", ErrUnsupportedBackend, cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("error creating %s client: %w", cfg.Provider, err)
	}

	return newLLMExtractor(cfg, model), nil
}

func newLLMExtractor(cfg Config, model llms.Model) *LLMExtractor {
	cfg = cfg.withDefaults()
	return &LLMExtractor{
		provider:    cfg.Provider,
		model:       cfg.Model,
		prompt:      cfg.Prompt,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		llm:         model,
		log:         cfg.Logger,
	}
}

// Extract sends the image followed by the prompt and returns the first
// choice verbatim.
func (p *LLMExtractor) Extract(ctx context.Context, req Request) (string, error) {
	logger := p.log.WithFields(logrus.Fields{
		"provider": p.provider,
		"model":    p.model,
		"bytes":    len(req.Data),
	})
	logger.Debug("Starting LLM OCR request")

	mime := req.MimeType
	if mime == "" {
		mime = "image/jpeg"
	}

	var imagePart llms.ContentPart
	if p.provider == "openai" || p.provider == "mistral" {
		imagePart = llms.ImageURLPart("data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(req.Data))
	} else {
		imagePart = llms.BinaryPart(mime, req.Data)
	}

	var callOpts []llms.CallOption
	if p.maxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(p.maxTokens))
	}
	if p.temperature != nil {
		callOpts = append(callOpts, llms.WithTemperature(*p.temperature))
	}

	completion, err := p.llm.GenerateContent(ctx, []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{imagePart, llms.TextPart(p.prompt)},
		},
	}, callOpts...)
	if err != nil {
		logger.WithError(err).Error("Failed to get response from vision model")
		return "", &ServiceError{Backend: p.provider, Err: err}
	}
	if completion == nil || len(completion.Choices) == 0 {
		logger.Error("Vision model returned no choices")
		return "", &ServiceError{Backend: p.provider, Err: ErrEmptyResponse}
	}

	text := completion.Choices[0].Content
	logger.WithField("content_length", len(text)).Info("Successfully processed image")
	return text, nil
}

func createOpenAIClient(cfg Config) (llms.Model, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI %w", ErrMissingAPIKey)
	}
	opts := []openai.Option{
		openai.WithModel(cfg.Model),
		openai.WithToken(cfg.APIKey),
		openai.WithHTTPClient(newInstrumentedHTTPClient(cfg.HTTPClient)),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	return openai.New(opts...)
}

func createOllamaClient(cfg Config) (llms.Model, error) {
	host := cfg.BaseURL
	if host == "" {
		host = DefaultOllamaHost
	}
	return ollama.New(
		ollama.WithModel(cfg.Model),
		ollama.WithServerURL(host),
	)
}

func createMistralClient(cfg Config) (llms.Model, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Mistral %w", ErrMissingAPIKey)
	}
	return mistral.New(
		mistral.WithModel(cfg.Model),
		mistral.WithAPIKey(cfg.APIKey),
	)
}

func createAnthropicClient(cfg Config) (llms.Model, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Anthropic %w", ErrMissingAPIKey)
	}
	opts := []anthropic.Option{
		anthropic.WithModel(cfg.Model),
		anthropic.WithToken(cfg.APIKey),
		anthropic.WithHTTPClient(newInstrumentedHTTPClient(cfg.HTTPClient)),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	return anthropic.New(opts...)
}

func normalizeProvider(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}
