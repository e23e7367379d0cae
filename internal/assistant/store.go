package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned for an unknown or expired chat session.
var ErrSessionNotFound = errors.New("chat session not found")

const (
	// defaultSessionTTL applies when a store is built with a zero TTL.
	defaultSessionTTL = 2 * time.Hour
	// defaultMaxSessions caps live sessions held by a MemoryStore.
	defaultMaxSessions = 10000
)

// SessionStore keeps chat history between requests.
type SessionStore interface {
	Create(ctx context.Context, id string, seed []Message) error
	Load(ctx context.Context, id string) ([]Message, error)
	Append(ctx context.Context, id string, msgs ...Message) error
}

type memorySession struct {
	messages []Message
	expires  time.Time
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	limit int
	items map[string]*memorySession
	now   func() time.Time
}

// NewMemoryStore constructs a MemoryStore whose sessions expire after ttl of inactivity.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &MemoryStore{ttl: ttl, limit: defaultMaxSessions, items: make(map[string]*memorySession), now: time.Now}
}

// WithLimit sets how many live sessions the store holds before evicting the
// one closest to expiry. Non-positive values keep the default.
func (s *MemoryStore) WithLimit(limit int) *MemoryStore {
	if limit > 0 {
		s.mu.Lock()
		s.limit = limit
		s.mu.Unlock()
	}
	return s
}

// Create implements SessionStore.
func (s *MemoryStore) Create(_ context.Context, id string, seed []Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	if _, exists := s.items[id]; !exists {
		for len(s.items) >= s.limit {
			s.evictOldestLocked()
		}
	}
	copied := make([]Message, len(seed))
	copy(copied, seed)
	s.items[id] = &memorySession{messages: copied, expires: s.now().Add(s.ttl)}
	return nil
}

// Load implements SessionStore.
func (s *MemoryStore) Load(_ context.Context, id string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.items[id]
	if !ok || s.now().After(session.expires) {
		delete(s.items, id)
		return nil, ErrSessionNotFound
	}
	out := make([]Message, len(session.messages))
	copy(out, session.messages)
	return out, nil
}

// Append implements SessionStore.
func (s *MemoryStore) Append(_ context.Context, id string, msgs ...Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.items[id]
	if !ok || s.now().After(session.expires) {
		delete(s.items, id)
		return ErrSessionNotFound
	}
	session.messages = append(session.messages, msgs...)
	session.expires = s.now().Add(s.ttl)
	return nil
}

// sweepLocked drops expired sessions. Callers hold s.mu.
func (s *MemoryStore) sweepLocked() {
	now := s.now()
	for id, session := range s.items {
		if now.After(session.expires) {
			delete(s.items, id)
		}
	}
}

// evictOldestLocked drops the session closest to expiry. Callers hold s.mu.
func (s *MemoryStore) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, session := range s.items {
		if oldestID == "" || session.expires.Before(oldest) {
			oldestID, oldest = id, session.expires
		}
	}
	delete(s.items, oldestID)
}

// RedisStore keeps each session as a Redis list of JSON messages.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore constructs a RedisStore.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if prefix == "" {
		prefix = "loyalty"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + ":chat:" + id
}

// Create implements SessionStore.
func (s *RedisStore) Create(ctx context.Context, id string, seed []Message) error {
	values, err := encodeMessages(seed)
	if err != nil {
		return err
	}
	key := s.key(id)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(values) > 0 {
		pipe.RPush(ctx, key, values...)
	}
	pipe.Expire(ctx, key, s.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// Load implements SessionStore.
func (s *RedisStore) Load(ctx context.Context, id string) ([]Message, error) {
	raw, err := s.client.LRange(ctx, s.key(id), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, ErrSessionNotFound
	}
	out := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if errUnmarshal := json.Unmarshal([]byte(item), &msg); errUnmarshal != nil {
			return nil, fmt.Errorf("assistant: decode message: %w", errUnmarshal)
		}
		out = append(out, msg)
	}
	return out, nil
}

// Append implements SessionStore.
func (s *RedisStore) Append(ctx context.Context, id string, msgs ...Message) error {
	key := s.key(id)
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrSessionNotFound
	}
	values, err := encodeMessages(msgs)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, values...)
	pipe.Expire(ctx, key, s.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func encodeMessages(msgs []Message) ([]any, error) {
	out := make([]any, 0, len(msgs))
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("assistant: encode message: %w", err)
		}
		out = append(out, string(data))
	}
	return out, nil
}
