package directive

import "github.com/RichardoC/chatbox/internal/models"

// View is a conversation as the chat page displays it: assistant messages cleaned of tags
// and the UI state left behind by the most recent tags.
type View struct {
	ConversationID string           `json:"conversationID"`
	Messages       []models.Message `json:"messages"`
	Button         *string          `json:"button,omitempty"`
	Mood           *int             `json:"mood,omitempty"`
	MoodLabel      string           `json:"moodLabel,omitempty"`
}

func Render(conv models.Conversation) View {
	view := View{
		ConversationID: conv.ConversationID,
		Messages:       make([]models.Message, 0, len(conv.Messages)),
	}

	for _, msg := range conv.Messages {
		if msg.Role != models.RoleAssistant {
			view.Messages = append(view.Messages, msg)
			continue
		}

		res := Parse(msg.Content)
		if res.Button != nil {
			view.Button = res.Button
		}
		if res.Mood != nil {
			view.Mood = res.Mood
		}
		view.Messages = append(view.Messages, models.Message{Role: msg.Role, Content: res.Text})
	}

	if view.Mood != nil {
		view.MoodLabel = MoodLabel(*view.Mood)
	}
	return view
}
