package postgres

import (
	"context"
	"time"
)

func (s *Store) Truncate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE messages, conversations`)
	return err
}

// InsertConversationAt creates an empty conversation with a fixed creation time.
func (s *Store) InsertConversationAt(ctx context.Context, id string, createdAt time.Time) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO conversations (id, created_at) VALUES ($1, $2)`, id, createdAt)
	return err
}
