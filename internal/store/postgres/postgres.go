// Package postgres stores conversations in a hosted PostgreSQL database.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/RichardoC/chatbox/internal/models"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		seq BIGINT GENERATED ALWAYS AS IDENTITY,
		created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
	)`,
	`ALTER TABLE conversations ADD COLUMN IF NOT EXISTS seq BIGINT GENERATED ALWAYS AS IDENTITY`,
	`CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		seq BIGINT GENERATED ALWAYS AS IDENTITY,
		conversation_id TEXT NOT NULL REFERENCES conversations(id),
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at, seq)`,
}

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the tables if they are missing.
func (s *Store) Migrate(ctx context.Context) error {
	for _, migration := range migrations {
		if _, err := s.pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (s *Store) CreateConversation(ctx context.Context) (string, error) {
	id := uuid.NewString()
	if _, err := s.pool.Exec(ctx, `INSERT INTO conversations (id) VALUES ($1)`, id); err != nil {
		return "", fmt.Errorf("failed to insert conversation: %w", err)
	}
	return id, nil
}

func (s *Store) GetConversation(ctx context.Context, id string) (*models.Conversation, bool, error) {
	var convID string
	err := s.pool.QueryRow(ctx, `SELECT id FROM conversations WHERE id = $1`, id).Scan(&convID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query conversation: %w", err)
	}

	messages, err := s.messages(ctx, convID)
	if err != nil {
		return nil, false, err
	}
	return &models.Conversation{ConversationID: convID, Messages: messages}, true, nil
}

// GetConversations loads the conversation list, then each conversation's messages in a
// separate round trip.
func (s *Store) GetConversations(ctx context.Context) ([]models.Conversation, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM conversations ORDER BY created_at, seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to read conversations: %w", err)
	}

	conversations := make([]models.Conversation, 0, len(ids))
	for _, id := range ids {
		messages, err := s.messages(ctx, id)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, models.Conversation{ConversationID: id, Messages: messages})
	}
	return conversations, nil
}

func (s *Store) messages(ctx context.Context, convID string) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT role, content
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at, seq`, convID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages for %s: %w", convID, err)
	}
	messages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Message, error) {
		var msg models.Message
		err := row.Scan(&msg.Role, &msg.Content)
		return msg, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read messages for %s: %w", convID, err)
	}
	return messages, nil
}

func (s *Store) AddMessageToConversation(ctx context.Context, id string, msg models.Message) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, role, content)
		SELECT $1, $2, $3, $4
		WHERE EXISTS (SELECT 1 FROM conversations WHERE id = $2)`,
		uuid.NewString(), id, msg.Role, msg.Content)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
