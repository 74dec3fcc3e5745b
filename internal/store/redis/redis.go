// Package redis stores conversations in Redis.
//
// Layout under a configurable prefix:
//
//	<prefix>:seq                          creation counter
//	<prefix>:conversations                sorted set of ids, scored by creation counter
//	<prefix>:conversation:<id>            hash holding createdAt
//	<prefix>:conversation:<id>:messages   list of JSON encoded messages
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/RichardoC/chatbox/internal/models"
)

// appendScript pushes onto the message list only if the conversation hash exists.
var appendScript = goredis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return redis.call("RPUSH", KEYS[2], ARGV[1])
end
return 0
`)

type Store struct {
	client goredis.UniversalClient
	prefix string
}

func New(ctx context.Context, url, prefix string) (*Store, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return NewWithClient(client, prefix), nil
}

// NewWithClient wraps an existing client. The store takes ownership of it.
func NewWithClient(client goredis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "chatbox"
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) seqKey() string           { return s.prefix + ":seq" }
func (s *Store) indexKey() string         { return s.prefix + ":conversations" }
func (s *Store) convKey(id string) string { return s.prefix + ":conversation:" + id }
func (s *Store) msgsKey(id string) string { return s.prefix + ":conversation:" + id + ":messages" }

func (s *Store) CreateConversation(ctx context.Context) (string, error) {
	seq, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return "", fmt.Errorf("failed to allocate conversation sequence: %w", err)
	}

	id := uuid.NewString()
	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, s.convKey(id), "createdAt", time.Now().UTC().Format(time.RFC3339Nano))
		pipe.ZAdd(ctx, s.indexKey(), goredis.Z{Score: float64(seq), Member: id})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to store conversation: %w", err)
	}
	return id, nil
}

func (s *Store) GetConversation(ctx context.Context, id string) (*models.Conversation, bool, error) {
	n, err := s.client.Exists(ctx, s.convKey(id)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up conversation: %w", err)
	}
	if n == 0 {
		return nil, false, nil
	}

	raw, err := s.client.LRange(ctx, s.msgsKey(id), 0, -1).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to load messages: %w", err)
	}
	messages, err := decodeMessages(raw)
	if err != nil {
		return nil, false, err
	}
	return &models.Conversation{ConversationID: id, Messages: messages}, true, nil
}

func (s *Store) GetConversations(ctx context.Context) ([]models.Conversation, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	cmds := make([]*goredis.StringSliceCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.LRange(ctx, s.msgsKey(id), 0, -1)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	conversations := make([]models.Conversation, 0, len(ids))
	for i, id := range ids {
		messages, err := decodeMessages(cmds[i].Val())
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, models.Conversation{ConversationID: id, Messages: messages})
	}
	return conversations, nil
}

func (s *Store) AddMessageToConversation(ctx context.Context, id string, msg models.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	keys := []string{s.convKey(id), s.msgsKey(id)}
	if err := appendScript.Run(ctx, s.client, keys, payload).Err(); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func decodeMessages(raw []string) ([]models.Message, error) {
	messages := make([]models.Message, 0, len(raw))
	for _, item := range raw {
		var msg models.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("failed to decode message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
