package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// implements Engine using Anthropic Claude vision
type AnthropicEngine struct {
	client  anthropic.Client
	model   anthropic.Model
	options Options
}

func NewAnthropicEngine(ctx context.Context, opts Options) (*AnthropicEngine, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(opts.APIKey))

	model := anthropic.Model(opts.Model)
	if opts.Model == "" {
		model = anthropic.ModelClaudeHaiku4_5
	}

	return &AnthropicEngine{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

func (e *AnthropicEngine) Recognize(ctx context.Context, img Image, lang string) (string, error) {
	message, err := e.client.Messages.New(
		ctx,
		anthropic.MessageNewParams{
			Model:     e.model,
			MaxTokens: 4096,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(
					anthropic.NewImageBlockBase64(
						img.MIMEType,
						base64.StdEncoding.EncodeToString(img.Data),
					),
					anthropic.NewTextBlock(buildVisionPrompt(lang, e.options.Prompt)),
				),
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("anthropic recognition failed: %w", err)
	}

	return parseAnthropicResponse(message)
}

func parseAnthropicResponse(message *anthropic.Message) (string, error) {
	if message == nil || len(message.Content) == 0 {
		return "", fmt.Errorf("empty response from Anthropic")
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return cleanTextResponse(sb.String()), nil
}

func (e *AnthropicEngine) Close() error {
	return nil
}
