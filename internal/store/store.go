// Package store defines the conversation storage contract shared by every backend.
package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/RichardoC/chatbox/internal/config"
	"github.com/RichardoC/chatbox/internal/models"
	"github.com/RichardoC/chatbox/internal/store/memory"
	"github.com/RichardoC/chatbox/internal/store/postgres"
	"github.com/RichardoC/chatbox/internal/store/redis"
	"github.com/RichardoC/chatbox/internal/store/sqlite"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

var ErrUnknownBackend = errors.New("unknown storage backend")

// Store persists conversations and their messages.
//
// A lookup of an unknown id reports found == false with a nil error. Appending to an
// unknown id is a no-op and returns nil. Any non-nil error is an I/O failure.
type Store interface {
	CreateConversation(ctx context.Context) (string, error)
	GetConversation(ctx context.Context, id string) (*models.Conversation, bool, error)
	GetConversations(ctx context.Context) ([]models.Conversation, error)
	AddMessageToConversation(ctx context.Context, id string, msg models.Message) error
	Close() error
}

var (
	_ Store = (*memory.Store)(nil)
	_ Store = (*sqlite.Store)(nil)
	_ Store = (*postgres.Store)(nil)
	_ Store = (*redis.Store)(nil)
)

// Open builds the backend named by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case BackendMemory:
		logger.Info("using in-memory conversation store; history is lost on restart")
		return memory.New(), nil

	case BackendSQLite:
		s, err := sqlite.New(cfg.SQLite.Driver, cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		logger.Info("using sqlite conversation store",
			zap.String("driver", cfg.SQLite.Driver),
			zap.String("path", cfg.SQLite.Path))
		return s, nil

	case BackendPostgres:
		s, err := postgres.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		logger.Info("using postgres conversation store")
		return s, nil

	case BackendRedis:
		s, err := redis.New(ctx, cfg.Redis.URL, cfg.Redis.Prefix)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis store: %w", err)
		}
		logger.Info("using redis conversation store", zap.String("prefix", cfg.Redis.Prefix))
		return s, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
