package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/RichardoC/chatbox/internal/auth"
	"github.com/RichardoC/chatbox/internal/directive"
	"github.com/RichardoC/chatbox/internal/llm"
	"github.com/RichardoC/chatbox/internal/models"
	"github.com/RichardoC/chatbox/internal/store/memory"
)

type stubLLM struct {
	reply llm.Reply
	err   error
	calls [][]models.Message
}

func (s *stubLLM) Complete(_ context.Context, messages []models.Message) (llm.Reply, error) {
	s.calls = append(s.calls, append([]models.Message(nil), messages...))
	return s.reply, s.err
}

func newService(t *testing.T, client llm.Client) (*Service, *memory.Store) {
	t.Helper()
	st := memory.New()
	return NewService(st, client, zaptest.NewLogger(t)), st
}

func TestSendMessage(t *testing.T) {
	ctx := context.Background()
	stub := &stubLLM{reply: llm.Reply{Text: "[mood: 40] hello", IsText: true}}
	svc, _ := newService(t, stub)

	id, err := svc.CreateConversation(ctx, "")
	require.NoError(t, err)

	conv, found, err := svc.SendMessage(ctx, "", id, models.Message{Role: models.RoleUser, Content: "hi"})
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, []models.Message{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "[mood: 40] hello"},
	}, conv.Messages)

	require.Len(t, stub.calls, 1)
	assert.Equal(t, []models.Message{{Role: models.RoleUser, Content: "hi"}}, stub.calls[0])

	last, _ := conv.LastMessage()
	res := directive.Parse(last.Content)
	assert.Equal(t, "hello", res.Text)
	assert.Equal(t, 40, *res.Mood)
}

func TestSendMessageForwardsFullHistory(t *testing.T) {
	ctx := context.Background()
	stub := &stubLLM{reply: llm.Reply{Text: "ok", IsText: true}}
	svc, _ := newService(t, stub)

	id, err := svc.CreateConversation(ctx, "")
	require.NoError(t, err)

	for _, text := range []string{"one", "two", "three"} {
		_, _, err := svc.SendMessage(ctx, "", id, models.Message{Role: models.RoleUser, Content: text})
		require.NoError(t, err)
	}

	require.Len(t, stub.calls, 3)
	assert.Len(t, stub.calls[2], 5)
	assert.Equal(t, "three", stub.calls[2][4].Content)
}

func TestSendMessageUnknownConversation(t *testing.T) {
	ctx := context.Background()
	stub := &stubLLM{reply: llm.Reply{Text: "x", IsText: true}}
	svc, st := newService(t, stub)

	conv, found, err := svc.SendMessage(ctx, "", "missing", models.Message{Role: models.RoleUser, Content: "hi"})
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, conv)
	assert.Empty(t, stub.calls)

	all, err := st.GetConversations(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSendMessageSkipsNonTextReply(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, &stubLLM{reply: llm.Reply{IsText: false}})

	id, err := svc.CreateConversation(ctx, "")
	require.NoError(t, err)

	conv, found, err := svc.SendMessage(ctx, "", id, models.Message{Role: models.RoleUser, Content: "hi"})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []models.Message{{Role: models.RoleUser, Content: "hi"}}, conv.Messages)
}

func TestSendMessageLLMFailureKeepsUserTurn(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	svc, st := newService(t, &stubLLM{err: boom})

	id, err := svc.CreateConversation(ctx, "")
	require.NoError(t, err)

	_, found, err := svc.SendMessage(ctx, "", id, models.Message{Role: models.RoleUser, Content: "hi"})
	assert.ErrorIs(t, err, boom)
	assert.True(t, found)

	conv, _, err := st.GetConversation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []models.Message{{Role: models.RoleUser, Content: "hi"}}, conv.Messages)
}

func TestChat(t *testing.T) {
	ctx := context.Background()
	stub := &stubLLM{reply: llm.Reply{Text: "hey", IsText: true}}
	svc, st := newService(t, stub)

	reply, err := svc.Chat(ctx, []models.Message{{Role: models.RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "hey", reply.Text)

	all, err := st.GetConversations(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "stateless chat must not persist anything")
}

func TestConversationsAreScopedToOwner(t *testing.T) {
	ctx := context.Background()
	stub := &stubLLM{reply: llm.Reply{Text: "ok", IsText: true}}
	svc := NewService(memory.New(), stub, zaptest.NewLogger(t), WithOwners(auth.NewMemoryStore()))

	mine, err := svc.CreateConversation(ctx, "alice")
	require.NoError(t, err)
	theirs, err := svc.CreateConversation(ctx, "bob")
	require.NoError(t, err)

	all, err := svc.GetConversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, mine, all[0].ConversationID)

	_, found, err := svc.GetConversation(ctx, "alice", theirs)
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = svc.SendMessage(ctx, "alice", theirs, models.Message{Role: models.RoleUser, Content: "hi"})
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, stub.calls, "no reply is generated for someone else's conversation")

	conv, found, err := svc.GetConversation(ctx, "bob", theirs)
	require.NoError(t, err)
	require.True(t, found)
	assert.Empty(t, conv.Messages)

	_, found, err = svc.SendMessage(ctx, "alice", mine, models.Message{Role: models.RoleUser, Content: "hi"})
	require.NoError(t, err)
	assert.True(t, found)
}
