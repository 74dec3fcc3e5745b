package models

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is checked with gin's binding tags when it arrives over HTTP.
type Message struct {
	Content string `json:"content" binding:"required"`
	Role    string `json:"role" binding:"required,oneof=user assistant"`
}

type Conversation struct {
	ConversationID string    `json:"conversationID"`
	Messages       []Message `json:"messages"`
}

// LastMessage returns the most recent message, if any.
func (c *Conversation) LastMessage() (Message, bool) {
	if c == nil || len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}
