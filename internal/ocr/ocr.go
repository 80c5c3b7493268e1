package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mgpai22/vidocr/internal/logging"
)

var (
	ErrSnapshotDirNotFound = errors.New("snapshot directory not found")
	ErrNoSnapshots         = errors.New("no snapshots found")
	ErrEngineUnavailable   = errors.New("ocr engine unavailable")
	ErrInvalidMode         = errors.New("invalid tesseract mode")
)

// image handed to an engine
type Image struct {
	Index    int    // position in the collation order
	Name     string // file name
	Path     string
	Data     []byte
	MIMEType string
}

// interface for text recognition
type Engine interface {
	// Recognize returns the text in img. lang is a Tesseract-style language
	// list such as "eng" or "eng+fra" and is passed through untouched.
	Recognize(ctx context.Context, img Image, lang string) (string, error)

	Close() error
}

// ocr engine provider
type Provider string

const (
	ProviderTesseract Provider = "tesseract"
	ProviderGosseract Provider = "gosseract"
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Providers lists every provider name accepted by Factory.
func Providers() []Provider {
	return []Provider{
		ProviderTesseract,
		ProviderGosseract,
		ProviderGemini,
		ProviderOpenAI,
		ProviderAnthropic,
	}
}

// ParseProvider normalizes a provider name.
func ParseProvider(name string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Providers() {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unsupported ocr engine %q", name)
}

// RequiresAPIKey reports whether the provider is a hosted vision model.
func (p Provider) RequiresAPIKey() bool {
	switch p {
	case ProviderGemini, ProviderOpenAI, ProviderAnthropic:
		return true
	default:
		return false
	}
}

// APIKeyEnv is the environment variable holding the provider's key.
func (p Provider) APIKeyEnv() string {
	switch p {
	case ProviderGemini:
		return "GEMINI_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	default:
		return ""
	}
}

// engine options
type Options struct {
	APIKey string // hosted providers
	Model  string // hosted providers, provider default when empty
	Prompt string // extra instructions for hosted providers

	Tesseract   string // binary name or path, tesseract provider
	TessdataDir string
	PSM         int // page segmentation mode, DefaultMode leaves it to tesseract
	OEM         int // engine mode, DefaultMode leaves it to tesseract

	Logger *logging.Logger
}

// creates engine based on provider
func Factory(ctx context.Context, provider Provider, opts Options) (Engine, error) {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	switch provider {
	case ProviderTesseract, "":
		return NewTesseractEngine(opts)
	case ProviderGosseract:
		return NewGosseractEngine(opts)
	case ProviderGemini:
		return NewGeminiEngine(ctx, opts)
	case ProviderOpenAI:
		return NewOpenAIEngine(ctx, opts)
	case ProviderAnthropic:
		return NewAnthropicEngine(ctx, opts)
	default:
		return nil, fmt.Errorf("unsupported ocr engine: %s", provider)
	}
}
