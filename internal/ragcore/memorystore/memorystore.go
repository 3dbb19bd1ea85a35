// Package memorystore implements the Memory Store Gateway: a single
// JSON blob per conversation, held in Redis with a sliding TTL refreshed on
// every write. The conversation memory component is the only caller;
// this package knows nothing about token limits or summarization.
package memorystore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coursewise/ragcore/internal/errors"
	"github.com/coursewise/ragcore/internal/ragcore/domain"
	"github.com/redis/go-redis/v9"
)

// Config configures a Store.
type Config struct {
	Address  string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// Store persists one JSON blob per conversation key.
type Store interface {
	// Load returns the conversation's memory, or the zero-value memory (ok
	// == false) if no record exists yet.
	Load(ctx context.Context, conversationID string) (mem domain.ConversationMemory, ok bool, err error)
	// Overwrite replaces the stored record wholesale and refreshes the TTL.
	Overwrite(ctx context.Context, mem domain.ConversationMemory) error
	// Delete removes a conversation's record. Deleting an absent key is not
	// an error.
	Delete(ctx context.Context, conversationID string) error
}

// RedisStore implements Store against Redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// New builds a RedisStore and verifies connectivity with a Ping.
func New(cfg Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, errors.NewStoreUnavailableError(fmt.Sprintf("memorystore: connect to redis: %v", err))
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = time.Hour
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "convmem:"
	}

	return &RedisStore{client: client, ttl: ttl, prefix: prefix}, nil
}

// Close releases the underlying Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) buildKey(conversationID string) string {
	return s.prefix + conversationID
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, conversationID string) (domain.ConversationMemory, bool, error) {
	key := s.buildKey(conversationID)

	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return domain.ConversationMemory{}, false, nil
		}
		return domain.ConversationMemory{}, false, errors.NewStoreUnavailableError(fmt.Sprintf("memorystore: get %s: %v", conversationID, err))
	}

	var mem domain.ConversationMemory
	if err := json.Unmarshal(data, &mem); err != nil {
		return domain.ConversationMemory{}, false, errors.NewStoreUnavailableError(fmt.Sprintf("memorystore: unmarshal %s: %v", conversationID, err))
	}
	return mem, true, nil
}

// Overwrite implements Store.
func (s *RedisStore) Overwrite(ctx context.Context, mem domain.ConversationMemory) error {
	data, err := json.Marshal(mem)
	if err != nil {
		return errors.NewStoreUnavailableError(fmt.Sprintf("memorystore: marshal %s: %v", mem.ConversationID, err))
	}

	key := s.buildKey(mem.ConversationID)
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return errors.NewStoreUnavailableError(fmt.Sprintf("memorystore: set %s: %v", mem.ConversationID, err))
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, conversationID string) error {
	key := s.buildKey(conversationID)
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return errors.NewStoreUnavailableError(fmt.Sprintf("memorystore: delete %s: %v", conversationID, err))
	}
	return nil
}
