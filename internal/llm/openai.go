package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/RichardoC/chatbox/internal/models"
)

// OpenAIClient talks to any OpenAI compatible chat endpoint, e.g. a local Ollama at
// http://localhost:11434/v1/.
type OpenAIClient struct {
	llm       llms.Model
	maxTokens int
	system    string
}

func NewOpenAI(baseURL, token, model string, maxTokens int, system string) (*OpenAIClient, error) {
	if token == "" {
		if baseURL == "" {
			return nil, fmt.Errorf("%w: set OPENAI_API_KEY or llm.api_key", ErrMissingAPIKey)
		}
		// Self-hosted endpoints ignore the token but the client insists on one.
		token = "unused"
	}

	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize openai client: %w", err)
	}
	return &OpenAIClient{llm: llm, maxTokens: maxTokens, system: system}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, messages []models.Message) (Reply, error) {
	if len(messages) == 0 {
		return Reply{}, ErrNoMessages
	}

	content := make([]llms.MessageContent, 0, len(messages)+1)
	if c.system != "" {
		content = append(content, llms.TextParts(llms.ChatMessageTypeSystem, c.system))
	}
	for _, msg := range messages {
		role := llms.ChatMessageTypeHuman
		if msg.Role == models.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		content = append(content, llms.TextParts(role, msg.Content))
	}

	resp, err := c.llm.GenerateContent(ctx, content, llms.WithMaxTokens(c.maxTokens))
	if err != nil {
		return Reply{}, fmt.Errorf("failed to generate completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Reply{}, nil
	}
	return Reply{Text: resp.Choices[0].Content, IsText: true}, nil
}
