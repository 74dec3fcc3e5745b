package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/RichardoC/chatbox/internal/models"
)

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int
	system    string
}

func NewAnthropic(apiKey, baseURL, model string, maxTokens int, system string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY or llm.api_key", ErrMissingAPIKey)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// Failed turns are reported, not retried.
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &AnthropicClient{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
		system:    system,
	}, nil
}

func (c *AnthropicClient) Complete(ctx context.Context, messages []models.Message) (Reply, error) {
	if len(messages) == 0 {
		return Reply{}, ErrNoMessages
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages:  make([]anthropic.MessageParam, 0, len(messages)),
	}
	if c.system != "" {
		params.System = []anthropic.TextBlockParam{{Text: c.system}}
	}
	for _, msg := range messages {
		block := anthropic.NewTextBlock(msg.Content)
		if msg.Role == models.RoleAssistant {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
		} else {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
		}
	}

	response, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to send message: %w", err)
	}

	if len(response.Content) == 0 || response.Content[0].Type != "text" {
		return Reply{}, nil
	}
	return Reply{Text: response.Content[0].Text, IsText: true}, nil
}
