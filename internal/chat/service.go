// Package chat relays a user turn through the conversation store and the LLM.
package chat

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/RichardoC/chatbox/internal/llm"
	"github.com/RichardoC/chatbox/internal/models"
	"github.com/RichardoC/chatbox/internal/store"
)

// Owners records which user created each conversation.
type Owners interface {
	SetConversationOwner(ctx context.Context, conversationID, userID string) error
	ConversationOwner(ctx context.Context, conversationID string) (string, bool, error)
	OwnedConversations(ctx context.Context, userID string) ([]string, error)
}

type Service struct {
	store  store.Store
	llm    llm.Client
	owners Owners
	logger *zap.Logger
}

type Option func(*Service)

// WithOwners scopes every conversation to the user that created it. Without it the
// owner arguments are ignored and all conversations are shared.
func WithOwners(owners Owners) Option {
	return func(s *Service) { s.owners = owners }
}

func NewService(st store.Store, client llm.Client, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{store: st, llm: client, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// owns reports whether owner may see conversation id. Conversations of other users look
// the same as missing ones.
func (s *Service) owns(ctx context.Context, owner, id string) (bool, error) {
	if s.owners == nil {
		return true, nil
	}
	got, found, err := s.owners.ConversationOwner(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to look up conversation owner: %w", err)
	}
	return found && got == owner, nil
}

// SendMessage appends msg to the conversation, forwards the full history to the LLM and
// appends the reply. found is false when the conversation does not exist or belongs to another user, in which case
// nothing is stored and the LLM is not called.
//
// The steps are not transactional. If the LLM call fails the user message stays stored
// without a reply.
func (s *Service) SendMessage(ctx context.Context, owner, id string, msg models.Message) (*models.Conversation, bool, error) {
	if ok, err := s.owns(ctx, owner, id); err != nil || !ok {
		return nil, false, err
	}

	if err := s.store.AddMessageToConversation(ctx, id, msg); err != nil {
		return nil, false, fmt.Errorf("failed to save user message: %w", err)
	}

	history, found, err := s.store.GetConversation(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get conversation history: %w", err)
	}
	if !found {
		return nil, false, nil
	}

	reply, err := s.llm.Complete(ctx, history.Messages)
	if err != nil {
		return nil, true, fmt.Errorf("failed to generate reply: %w", err)
	}

	if reply.IsText {
		assistant := models.Message{Role: models.RoleAssistant, Content: reply.Text}
		if err := s.store.AddMessageToConversation(ctx, id, assistant); err != nil {
			return nil, true, fmt.Errorf("failed to save assistant message: %w", err)
		}
	} else {
		s.logger.Warn("LLM reply has no text block; skipping assistant message",
			zap.String("conversationID", id))
	}

	conv, found, err := s.store.GetConversation(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("failed to reload conversation: %w", err)
	}
	return conv, found, nil
}

// Chat relays a client-held history without touching the store.
func (s *Service) Chat(ctx context.Context, messages []models.Message) (llm.Reply, error) {
	reply, err := s.llm.Complete(ctx, messages)
	if err != nil {
		return llm.Reply{}, fmt.Errorf("failed to generate reply: %w", err)
	}
	return reply, nil
}

func (s *Service) CreateConversation(ctx context.Context, owner string) (string, error) {
	id, err := s.store.CreateConversation(ctx)
	if err != nil {
		return "", err
	}
	if s.owners != nil {
		if err := s.owners.SetConversationOwner(ctx, id, owner); err != nil {
			return "", err
		}
	}
	return id, nil
}

func (s *Service) GetConversation(ctx context.Context, owner, id string) (*models.Conversation, bool, error) {
	if ok, err := s.owns(ctx, owner, id); err != nil || !ok {
		return nil, false, err
	}
	return s.store.GetConversation(ctx, id)
}

// GetConversations lists the conversations visible to owner in creation order.
func (s *Service) GetConversations(ctx context.Context, owner string) ([]models.Conversation, error) {
	all, err := s.store.GetConversations(ctx)
	if err != nil || s.owners == nil {
		return all, err
	}

	ids, err := s.owners.OwnedConversations(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list owned conversations: %w", err)
	}
	owned := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		owned[id] = struct{}{}
	}

	visible := make([]models.Conversation, 0, len(ids))
	for _, conv := range all {
		if _, ok := owned[conv.ConversationID]; ok {
			visible = append(visible, conv)
		}
	}
	return visible, nil
}
