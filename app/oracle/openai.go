package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const openAIRequestTimeout = 60 * time.Second

var _ Generator = (*OpenAIGenerator)(nil)

// OpenAIGenerator produces engagement comments through chat completions.
type OpenAIGenerator struct {
	client     *openai.Client
	model      string
	guidelines *Guidelines
}

type OpenAIOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	Guidelines *Guidelines
}

func NewOpenAIGenerator(opts OpenAIOptions) *OpenAIGenerator {
	config := openai.DefaultConfig(opts.APIKey)
	config.HTTPClient = &http.Client{Timeout: openAIRequestTimeout}
	if opts.BaseURL != "" {
		config.BaseURL = opts.BaseURL
	}

	slog.Info("OpenAI comment generator initialized", "model", opts.Model, "timeout", openAIRequestTimeout)

	return &OpenAIGenerator{
		client:     openai.NewClientWithConfig(config),
		model:      opts.Model,
		guidelines: opts.Guidelines,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	prompt, err := CommentPrompt(req, g.guidelines)
	if err != nil {
		return "", err
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate comments: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}

	return text, nil
}
