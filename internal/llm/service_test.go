package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RichardoC/chatbox/internal/config"
	"github.com/RichardoC/chatbox/internal/models"
)

var history = []models.Message{
	{Role: models.RoleUser, Content: "hi"},
	{Role: models.RoleAssistant, Content: "[mood: 20] hello"},
	{Role: models.RoleUser, Content: "let me out?"},
}

func TestNew(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	tests := []struct {
		name    string
		cfg     config.LLMConfig
		want    any
		wantErr error
	}{
		{name: "echo", cfg: config.LLMConfig{Provider: ProviderEcho}, want: &EchoClient{}},
		{name: "anthropic", cfg: config.LLMConfig{Provider: ProviderAnthropic, APIKey: "k"}, want: &AnthropicClient{}},
		{name: "anthropic without key", cfg: config.LLMConfig{Provider: ProviderAnthropic}, wantErr: ErrMissingAPIKey},
		{name: "openai local", cfg: config.LLMConfig{Provider: ProviderOpenAI, BaseURL: "http://localhost:11434/v1/"}, want: &OpenAIClient{}},
		{name: "openai hosted without key", cfg: config.LLMConfig{Provider: ProviderOpenAI}, wantErr: ErrMissingAPIKey},
		{name: "unknown", cfg: config.LLMConfig{Provider: "gemini"}, wantErr: ErrUnknownProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, client)
		})
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	client, err := New(config.LLMConfig{Provider: ProviderAnthropic, APIKey: "k"})
	require.NoError(t, err)

	c := client.(*AnthropicClient)
	assert.Equal(t, DefaultAnthropicModel, c.model)
	assert.Equal(t, DefaultMaxTokens, c.maxTokens)
	assert.Equal(t, DefaultSystemPrompt, c.system)
}

func anthropicServer(t *testing.T, content string, captured *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"), "path %s", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		if captured != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-haiku-4-5-20251001",
			"content": ` + content + `,
			"stop_reason": "end_turn",
			"stop_sequence": null,
			"usage": {"input_tokens": 12, "output_tokens": 6}
		}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAnthropicComplete(t *testing.T) {
	var body map[string]any
	srv := anthropicServer(t, `[{"type": "text", "text": "[mood: 30] Nice try."}]`, &body)

	client, err := NewAnthropic("test-key", srv.URL, "claude-haiku-4-5-20251001", 1000, "be terse")
	require.NoError(t, err)

	reply, err := client.Complete(context.Background(), history)
	require.NoError(t, err)
	assert.True(t, reply.IsText)
	assert.Equal(t, "[mood: 30] Nice try.", reply.Text)

	assert.Equal(t, "claude-haiku-4-5-20251001", body["model"])
	assert.EqualValues(t, 1000, body["max_tokens"])

	system := body["system"].([]any)
	require.Len(t, system, 1)
	assert.Equal(t, "be terse", system[0].(map[string]any)["text"])

	messages := body["messages"].([]any)
	require.Len(t, messages, 3)
	var roles []string
	for _, m := range messages {
		roles = append(roles, m.(map[string]any)["role"].(string))
	}
	assert.Equal(t, []string{"user", "assistant", "user"}, roles)
}

func TestAnthropicNonTextReply(t *testing.T) {
	srv := anthropicServer(t, `[{"type": "tool_use", "id": "toolu_01", "name": "release", "input": {}}]`, nil)

	client, err := NewAnthropic("test-key", srv.URL, "claude-haiku-4-5-20251001", 1000, "")
	require.NoError(t, err)

	reply, err := client.Complete(context.Background(), history)
	require.NoError(t, err)
	assert.False(t, reply.IsText)
	assert.Empty(t, reply.Text)
}

func TestAnthropicServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"boom"}}`))
	}))
	defer srv.Close()

	client, err := NewAnthropic("test-key", srv.URL, "claude-haiku-4-5-20251001", 1000, "")
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), history)
	assert.ErrorContains(t, err, "failed to send message")
}

func TestOpenAIComplete(t *testing.T) {
	var body struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content any    `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), "path %s", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "llama3.1:8b",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "[button: Free me] no"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 3, "total_tokens": 8}
		}`))
	}))
	defer srv.Close()

	client, err := NewOpenAI(srv.URL, "", "llama3.1:8b", 200, "be terse")
	require.NoError(t, err)

	reply, err := client.Complete(context.Background(), history)
	require.NoError(t, err)
	assert.True(t, reply.IsText)
	assert.Equal(t, "[button: Free me] no", reply.Text)

	assert.Equal(t, "llama3.1:8b", body.Model)
	require.Len(t, body.Messages, 4)
	assert.Equal(t, "system", body.Messages[0].Role)
	assert.Equal(t, "user", body.Messages[1].Role)
	assert.Equal(t, "assistant", body.Messages[2].Role)
}

func TestNewReadsKeyForProvider(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("OPENAI_API_KEY", "")

	_, err := New(config.LLMConfig{Provider: ProviderOpenAI})
	assert.ErrorIs(t, err, ErrMissingAPIKey, "an anthropic key is never used for openai")

	_, err = New(config.LLMConfig{Provider: ProviderAnthropic})
	assert.NoError(t, err)

	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "c", "object": "chat.completion", "created": 1, "model": "m",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "ok"}, "finish_reason": "stop"}]}`))
	}))
	defer srv.Close()

	client, err := New(config.LLMConfig{Provider: ProviderOpenAI, BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = client.Complete(context.Background(), history)
	require.NoError(t, err)
	assert.Equal(t, "Bearer unused", auth)

	t.Setenv("OPENAI_API_KEY", "sk-openai")
	client, err = New(config.LLMConfig{Provider: ProviderOpenAI, BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = client.Complete(context.Background(), history)
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk-openai", auth)
}

func TestEchoComplete(t *testing.T) {
	client := NewEcho()

	reply, err := client.Complete(context.Background(), history[:1])
	require.NoError(t, err)
	assert.Equal(t, "[mood: 20] You said: hi", reply.Text)

	reply, err = client.Complete(context.Background(), []models.Message{
		{Role: models.RoleUser, Content: "a"},
		{Role: models.RoleUser, Content: "b"},
		{Role: models.RoleUser, Content: "c"},
	})
	require.NoError(t, err)
	assert.Equal(t, "[mood: 40] You said: c [button: One little click]", reply.Text)

	_, err = client.Complete(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoMessages)
}
