package llm

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/RichardoC/chatbox/internal/config"
	"github.com/RichardoC/chatbox/internal/models"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderEcho      = "echo"

	DefaultAnthropicModel = "claude-haiku-4-5-20251001"
	DefaultOpenAIModel    = "llama3.1:8b"
	DefaultMaxTokens      = 1000
)

var (
	ErrMissingAPIKey   = errors.New("llm api key is not set")
	ErrUnknownProvider = errors.New("unknown llm provider")
	ErrNoMessages      = errors.New("no messages to send")
)

// Reply is the assistant's answer. IsText is false when the first content block the
// provider returned was not text; Text is empty in that case.
type Reply struct {
	Text   string `json:"content"`
	IsText bool   `json:"isText"`
}

// Client sends a full conversation history and returns the next assistant turn.
type Client interface {
	Complete(ctx context.Context, messages []models.Message) (Reply, error)
}

// apiKeyEnv names the vendor variable read when llm.api_key is unset.
var apiKeyEnv = map[string]string{
	ProviderAnthropic: "ANTHROPIC_API_KEY",
	ProviderOpenAI:    "OPENAI_API_KEY",
}

// New builds the client for cfg.Provider.
func New(cfg config.LLMConfig) (Client, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		if name, ok := apiKeyEnv[cfg.Provider]; ok {
			apiKey = os.Getenv(name)
		}
	}

	system := cfg.SystemPrompt
	if system == "" {
		system = DefaultSystemPrompt
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	switch cfg.Provider {
	case ProviderAnthropic:
		model := cfg.Model
		if model == "" {
			model = DefaultAnthropicModel
		}
		return NewAnthropic(apiKey, cfg.BaseURL, model, maxTokens, system)

	case ProviderOpenAI:
		model := cfg.Model
		if model == "" {
			model = DefaultOpenAIModel
		}
		return NewOpenAI(cfg.BaseURL, apiKey, model, maxTokens, system)

	case ProviderEcho:
		return NewEcho(), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
