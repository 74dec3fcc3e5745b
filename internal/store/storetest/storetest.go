// Package storetest runs the same behavioural checks against every store backend.
package storetest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RichardoC/chatbox/internal/directive"
	"github.com/RichardoC/chatbox/internal/models"
	"github.com/RichardoC/chatbox/internal/store"
)

// Factory returns an empty store. Cleanup should be registered on t.
type Factory func(t *testing.T) store.Store

// Run executes the conformance suite.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("created conversation is empty", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		id, err := s.CreateConversation(ctx)
		require.NoError(t, err)
		assert.Len(t, id, 36)

		conv, found, err := s.GetConversation(ctx, id)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, id, conv.ConversationID)
		assert.NotNil(t, conv.Messages)
		assert.Empty(t, conv.Messages)
	})

	t.Run("ids are distinct", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		seen := make(map[string]bool)
		for i := 0; i < 20; i++ {
			id, err := s.CreateConversation(ctx)
			require.NoError(t, err)
			assert.False(t, seen[id], "duplicate id %s", id)
			seen[id] = true
		}
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		conv, found, err := s.GetConversation(ctx, "00000000-0000-4000-8000-000000000000")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, conv)
	})

	t.Run("messages keep append order", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		id, err := s.CreateConversation(ctx)
		require.NoError(t, err)

		want := make([]models.Message, 0, 10)
		for i := 0; i < 10; i++ {
			role := models.RoleUser
			if i%2 == 1 {
				role = models.RoleAssistant
			}
			msg := models.Message{Role: role, Content: fmt.Sprintf("message %d", i)}
			require.NoError(t, s.AddMessageToConversation(ctx, id, msg))
			want = append(want, msg)
		}

		conv, found, err := s.GetConversation(ctx, id)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, want, conv.Messages)
	})

	t.Run("messages stay in their conversation", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		id1, err := s.CreateConversation(ctx)
		require.NoError(t, err)
		id2, err := s.CreateConversation(ctx)
		require.NoError(t, err)

		require.NoError(t, s.AddMessageToConversation(ctx, id1, models.Message{Role: models.RoleUser, Content: "hi"}))

		conv1, _, err := s.GetConversation(ctx, id1)
		require.NoError(t, err)
		conv2, _, err := s.GetConversation(ctx, id2)
		require.NoError(t, err)
		assert.Len(t, conv1.Messages, 1)
		assert.Empty(t, conv2.Messages)
	})

	t.Run("append to unknown id is a no-op", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		_, err := s.CreateConversation(ctx)
		require.NoError(t, err)
		before, err := s.GetConversations(ctx)
		require.NoError(t, err)

		unknown := "11111111-1111-4111-8111-111111111111"
		err = s.AddMessageToConversation(ctx, unknown, models.Message{Role: models.RoleUser, Content: "hi"})
		require.NoError(t, err)

		after, err := s.GetConversations(ctx)
		require.NoError(t, err)
		assert.Len(t, after, len(before))

		_, found, err := s.GetConversation(ctx, unknown)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("list is ordered by creation with messages loaded", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		empty, err := s.GetConversations(ctx)
		require.NoError(t, err)
		assert.Empty(t, empty)

		var ids []string
		for i := 0; i < 3; i++ {
			id, err := s.CreateConversation(ctx)
			require.NoError(t, err)
			ids = append(ids, id)
		}
		require.NoError(t, s.AddMessageToConversation(ctx, ids[1], models.Message{Role: models.RoleUser, Content: "a"}))
		require.NoError(t, s.AddMessageToConversation(ctx, ids[1], models.Message{Role: models.RoleAssistant, Content: "b"}))

		all, err := s.GetConversations(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		for i, conv := range all {
			assert.Equal(t, ids[i], conv.ConversationID)
		}
		assert.Empty(t, all[0].Messages)
		assert.Equal(t, []models.Message{
			{Role: models.RoleUser, Content: "a"},
			{Role: models.RoleAssistant, Content: "b"},
		}, all[1].Messages)
		assert.Empty(t, all[2].Messages)
	})

	t.Run("directives survive a round trip", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		id, err := s.CreateConversation(ctx)
		require.NoError(t, err)
		require.NoError(t, s.AddMessageToConversation(ctx, id, models.Message{Role: models.RoleUser, Content: "hi"}))
		require.NoError(t, s.AddMessageToConversation(ctx, id, models.Message{Role: models.RoleAssistant, Content: "[mood: 40] hello"}))

		conv, found, err := s.GetConversation(ctx, id)
		require.NoError(t, err)
		require.True(t, found)

		last, ok := conv.LastMessage()
		require.True(t, ok)
		result := directive.Parse(last.Content)
		assert.Equal(t, "hello", result.Text)
		require.NotNil(t, result.Mood)
		assert.Equal(t, 40, *result.Mood)
		assert.Nil(t, result.Button)
	})
}
