package ocr

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// implements Engine using Google Gemini vision
type GeminiEngine struct {
	client  *genai.Client
	model   string
	options Options
}

func NewGeminiEngine(ctx context.Context, opts Options) (*GeminiEngine, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = defaultGeminiModel
	}

	return &GeminiEngine{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

func (e *GeminiEngine) Recognize(ctx context.Context, img Image, lang string) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(buildVisionPrompt(lang, e.options.Prompt)),
		genai.NewPartFromBytes(img.Data, img.MIMEType),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := e.client.Models.GenerateContent(ctx, e.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini recognition failed: %w", err)
	}

	return parseGeminiResponse(result)
}

func parseGeminiResponse(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 {
		return "", fmt.Errorf("empty response from Gemini")
	}

	var sb strings.Builder
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			sb.WriteString(part.Text)
		}
	}

	return cleanTextResponse(sb.String()), nil
}

// genai clients hold no resources that need releasing
func (e *GeminiEngine) Close() error {
	return nil
}
