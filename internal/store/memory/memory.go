// Package memory keeps conversations in process memory. Nothing survives a restart.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/RichardoC/chatbox/internal/models"
)

type Store struct {
	mu            sync.RWMutex
	conversations []*models.Conversation
	byID          map[string]*models.Conversation
}

func New() *Store {
	return &Store{
		byID: make(map[string]*models.Conversation),
	}
}

func (s *Store) CreateConversation(_ context.Context) (string, error) {
	conv := &models.Conversation{
		ConversationID: uuid.NewString(),
		Messages:       []models.Message{},
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations = append(s.conversations, conv)
	s.byID[conv.ConversationID] = conv
	return conv.ConversationID, nil
}

func (s *Store) GetConversation(_ context.Context, id string) (*models.Conversation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.byID[id]
	if !ok {
		return nil, false, nil
	}
	c := clone(conv)
	return &c, true, nil
}

func (s *Store) GetConversations(_ context.Context) ([]models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conversations := make([]models.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		conversations = append(conversations, clone(conv))
	}
	return conversations, nil
}

func (s *Store) AddMessageToConversation(_ context.Context, id string, msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Unknown ids are ignored; the conversation is not created.
	if conv, ok := s.byID[id]; ok {
		conv.Messages = append(conv.Messages, msg)
	}
	return nil
}

func (s *Store) Close() error { return nil }

func clone(conv *models.Conversation) models.Conversation {
	messages := make([]models.Message, len(conv.Messages))
	copy(messages, conv.Messages)
	return models.Conversation{
		ConversationID: conv.ConversationID,
		Messages:       messages,
	}
}
