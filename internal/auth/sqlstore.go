package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/RichardoC/chatbox/internal/store/sqlite"
)

const sqlSchema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    passwordHash BLOB NOT NULL,
    createdAt INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
    token TEXT PRIMARY KEY,
    userID TEXT NOT NULL REFERENCES users(id),
    expiresAt INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS conversationOwners (
    conversationID TEXT PRIMARY KEY,
    userID TEXT NOT NULL REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_conversation_owners_user ON conversationOwners(userID);`

// SQLStore keeps users and sessions in a SQLite database, usually the same file as the
// conversations.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) (*SQLStore, error) {
	if _, err := db.Exec(sqlSchema); err != nil {
		return nil, fmt.Errorf("failed to create auth schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, passwordHash, createdAt) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Name, user.PasswordHash, user.CreatedAt.UnixNano())
	if sqlite.IsUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *SQLStore) getUser(ctx context.Context, where string, arg any) (*User, bool, error) {
	var (
		user      User
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, passwordHash, createdAt FROM users WHERE `+where+` = ?`, arg).
		Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query user: %w", err)
	}
	user.CreatedAt = time.Unix(0, createdAt).UTC()
	return &user, true, nil
}

func (s *SQLStore) GetUser(ctx context.Context, id string) (*User, bool, error) {
	return s.getUser(ctx, "id", id)
}

func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (*User, bool, error) {
	return s.getUser(ctx, "email", email)
}

func (s *SQLStore) CreateSession(ctx context.Context, session Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token, userID, expiresAt) VALUES (?, ?, ?)`,
		session.Token, session.UserID, session.ExpiresAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (s *SQLStore) GetSession(ctx context.Context, token string) (*Session, bool, error) {
	var (
		session   Session
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT token, userID, expiresAt FROM sessions WHERE token = ?`, token).
		Scan(&session.Token, &session.UserID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query session: %w", err)
	}
	session.ExpiresAt = time.Unix(0, expiresAt).UTC()
	return &session, true, nil
}

func (s *SQLStore) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *SQLStore) SetConversationOwner(ctx context.Context, conversationID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversationOwners (conversationID, userID) VALUES (?, ?)`,
		conversationID, userID)
	if err != nil {
		return fmt.Errorf("failed to record conversation owner: %w", err)
	}
	return nil
}

func (s *SQLStore) ConversationOwner(ctx context.Context, conversationID string) (string, bool, error) {
	var userID string
	err := s.db.QueryRowContext(ctx,
		`SELECT userID FROM conversationOwners WHERE conversationID = ?`, conversationID).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query conversation owner: %w", err)
	}
	return userID, true, nil
}

func (s *SQLStore) OwnedConversations(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT conversationID FROM conversationOwners WHERE userID = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query owned conversations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan conversation id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read owned conversations: %w", err)
	}
	return ids, nil
}
