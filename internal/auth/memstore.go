package auth

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]User
	byEmail  map[string]string
	sessions map[string]Session
	owners   map[string]string // conversation id -> user id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]User),
		byEmail:  make(map[string]string),
		sessions: make(map[string]Session),
		owners:   make(map[string]string),
	}
}

func (m *MemoryStore) CreateUser(_ context.Context, user User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byEmail[user.Email]; exists {
		return ErrEmailTaken
	}
	m.users[user.ID] = user
	m.byEmail[user.Email] = user.ID
	return nil
}

func (m *MemoryStore) GetUser(_ context.Context, id string) (*User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, false, nil
	}
	return &user, true, nil
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*User, bool, error) {
	m.mu.RLock()
	id, ok := m.byEmail[email]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return m.GetUser(ctx, id)
}

func (m *MemoryStore) CreateSession(_ context.Context, session Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[session.Token] = session
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, token string) (*Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[token]
	if !ok {
		return nil, false, nil
	}
	return &session, true, nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, token)
	return nil
}

func (m *MemoryStore) SetConversationOwner(_ context.Context, conversationID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.owners[conversationID] = userID
	return nil
}

func (m *MemoryStore) ConversationOwner(_ context.Context, conversationID string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	userID, ok := m.owners[conversationID]
	return userID, ok, nil
}

func (m *MemoryStore) OwnedConversations(_ context.Context, userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for convID, owner := range m.owners {
		if owner == userID {
			ids = append(ids, convID)
		}
	}
	return ids, nil
}
