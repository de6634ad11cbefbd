package ai

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicChat backs a chatter with the Anthropic Messages API, for
// deployments whose review provider is Claude rather than an
// OpenAI-compatible gateway.
type AnthropicChat struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewAnthropicChat creates an Anthropic-backed chat client.
func NewAnthropicChat(apiKey, baseURL, model string) *AnthropicChat {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicChat{
		api:   &client,
		model: anthropic.Model(model),
	}
}

func (c *AnthropicChat) Name() string { return "anthropic:" + string(c.model) }

func (c *AnthropicChat) Chat(ctx context.Context, question, system string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 8192,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(question)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := c.api.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return "", fmt.Errorf("no text content in API response")
	}
	return text, nil
}
