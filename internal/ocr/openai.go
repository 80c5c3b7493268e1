package ocr

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAIModel = "gpt-5-mini"

// implements Engine using OpenAI Chat Completions with image input
type OpenAIEngine struct {
	client  openai.Client
	model   string
	options Options
}

func NewOpenAIEngine(ctx context.Context, opts Options) (*OpenAIEngine, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client := openai.NewClient(option.WithAPIKey(opts.APIKey))

	model := opts.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	return &OpenAIEngine{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

func (e *OpenAIEngine) Recognize(ctx context.Context, img Image, lang string) (string, error) {
	completion, err := e.client.Chat.Completions.New(
		ctx,
		openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
					openai.TextContentPart(buildVisionPrompt(lang, e.options.Prompt)),
					openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
						URL: dataURL(img),
					}),
				}),
			},
			Model: e.model,
		},
	)
	if err != nil {
		return "", fmt.Errorf("openai recognition failed: %w", err)
	}

	return parseOpenAIResponse(completion)
}

func parseOpenAIResponse(completion *openai.ChatCompletion) (string, error) {
	if completion == nil || len(completion.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenAI")
	}
	return cleanTextResponse(completion.Choices[0].Message.Content), nil
}

func dataURL(img Image) string {
	return "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

func (e *OpenAIEngine) Close() error {
	return nil
}
