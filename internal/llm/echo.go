package llm

import (
	"context"
	"fmt"

	"github.com/RichardoC/chatbox/internal/models"
)

// EchoClient answers without a network call. Useful for local runs and tests.
// The mood rises by ten for every user turn, starting at 20.
type EchoClient struct{}

func NewEcho() *EchoClient {
	return &EchoClient{}
}

func (c *EchoClient) Complete(_ context.Context, messages []models.Message) (Reply, error) {
	if len(messages) == 0 {
		return Reply{}, ErrNoMessages
	}

	userTurns := 0
	last := ""
	for _, msg := range messages {
		if msg.Role == models.RoleUser {
			userTurns++
			last = msg.Content
		}
	}

	mood := min(10+10*userTurns, 100)
	text := fmt.Sprintf("[mood: %d] You said: %s", mood, last)
	if userTurns%3 == 0 {
		text += " [button: One little click]"
	}
	return Reply{Text: text, IsText: true}, nil
}
