package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"
	puresqlite "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/RichardoC/chatbox/internal/models"
)

const (
	// DriverCGO is mattn/go-sqlite3.
	DriverCGO = "sqlite3"
	// DriverPure is modernc.org/sqlite.
	DriverPure = "sqlite"

	// Fixed width so that lexical order of createdAt matches time order.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
    id TEXT PRIMARY KEY,
    createdAt TEXT
);

CREATE TABLE IF NOT EXISTS messages (
    id TEXT PRIMARY KEY,
    conversationID TEXT REFERENCES conversations(id),
    role TEXT,
    content TEXT,
    createdAt TEXT
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversationID, createdAt);`

var ErrUnsupportedDriver = errors.New("unsupported sqlite driver")

// Open opens a SQLite database with WAL journaling and foreign keys enforced.
// path may be ":memory:".
func Open(driver, path string) (*sql.DB, error) {
	if driver != DriverCGO && driver != DriverPure {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create db directory %s: %w", dir, err)
			}
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db at %s: %w", path, err)
	}

	// One connection: pragmas are per connection and ":memory:" is per connection too.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return db, nil
}

// IsUniqueViolation reports whether err is a UNIQUE constraint failure from either driver.
func IsUniqueViolation(err error) bool {
	var cgoErr sqlite3.Error
	if errors.As(err, &cgoErr) {
		return cgoErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pureErr *puresqlite.Error
	if errors.As(err, &pureErr) {
		return pureErr.Code() == sqlitelib.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(driver, path string) (*Store, error) {
	db, err := Open(driver, path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// DB exposes the handle so other tables (sessions, users) can share the file.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

func (s *Store) CreateConversation(ctx context.Context) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, createdAt) VALUES (?, ?)`,
		id, s.timestamp())
	if err != nil {
		return "", fmt.Errorf("failed to insert conversation: %w", err)
	}
	return id, nil
}

func (s *Store) GetConversation(ctx context.Context, id string) (*models.Conversation, bool, error) {
	var convID string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM conversations WHERE id = ?`, id).Scan(&convID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query conversation: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
        SELECT role, content
        FROM messages
        WHERE conversationID = ?
        ORDER BY createdAt, rowid`, id)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	conv := &models.Conversation{ConversationID: convID, Messages: []models.Message{}}
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.Role, &msg.Content); err != nil {
			return nil, false, fmt.Errorf("failed to scan message: %w", err)
		}
		conv.Messages = append(conv.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("failed to read messages: %w", err)
	}

	return conv, true, nil
}

func (s *Store) GetConversations(ctx context.Context) ([]models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT c.id, m.role, m.content
        FROM conversations c
        LEFT JOIN messages m ON m.conversationID = c.id
        ORDER BY c.createdAt, c.rowid, m.createdAt, m.rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	conversations := make([]models.Conversation, 0)
	for rows.Next() {
		var (
			convID        string
			role, content sql.NullString
		)
		if err := rows.Scan(&convID, &role, &content); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}

		n := len(conversations)
		if n == 0 || conversations[n-1].ConversationID != convID {
			conversations = append(conversations, models.Conversation{
				ConversationID: convID,
				Messages:       []models.Message{},
			})
			n++
		}
		if role.Valid {
			conversations[n-1].Messages = append(conversations[n-1].Messages, models.Message{
				Role:    role.String,
				Content: content.String,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read conversations: %w", err)
	}

	return conversations, nil
}

func (s *Store) AddMessageToConversation(ctx context.Context, id string, msg models.Message) error {
	// Inserts nothing when the conversation does not exist.
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO messages (id, conversationID, role, content, createdAt)
        SELECT ?, ?, ?, ?, ?
        WHERE EXISTS (SELECT 1 FROM conversations WHERE id = ?)`,
		uuid.NewString(), id, msg.Role, msg.Content, s.timestamp(), id)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
