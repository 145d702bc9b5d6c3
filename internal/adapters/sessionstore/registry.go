// Package sessionstore keeps per-browser guard sessions between requests.
package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/peereval/internal/domain/session"
)

const keyPrefix = "peereval:session:"

// Registry loads and stores sessions by opaque id. An unknown id loads as the
// zero (Anonymous) session.
type Registry interface {
	Load(ctx context.Context, id string) (session.Session, error)
	Save(ctx context.Context, id string, s session.Session) error
	Delete(ctx context.Context, id string) error
}

// MemoryRegistry is a process-local Registry.
type MemoryRegistry struct {
	mu       sync.RWMutex
	sessions map[string]session.Session
}

// NewMemoryRegistry returns an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{sessions: make(map[string]session.Session)}
}

func (m *MemoryRegistry) Load(_ context.Context, id string) (session.Session, error) {
	if id == "" {
		return session.Session{}, ErrEmptyID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id], nil
}

func (m *MemoryRegistry) Save(_ context.Context, id string, s session.Session) error {
	if id == "" {
		return ErrEmptyID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.State() == session.Anonymous {
		delete(m.sessions, id)
		return nil
	}
	m.sessions[id] = s
	return nil
}

func (m *MemoryRegistry) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len returns the number of non-anonymous sessions held.
func (m *MemoryRegistry) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// RedisRegistry stores sessions as JSON values that expire after ttl.
type RedisRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRegistry wraps an existing client. ttl <= 0 stores without expiry.
func NewRedisRegistry(client *redis.Client, ttl time.Duration) *RedisRegistry {
	return &RedisRegistry{client: client, ttl: ttl}
}

// Dial parses url, connects and pings.
func Dial(ctx context.Context, url string, ttl time.Duration) (*RedisRegistry, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %w", ErrBackend, err)
	}
	return NewRedisRegistry(client, ttl), nil
}

func (r *RedisRegistry) Load(ctx context.Context, id string) (session.Session, error) {
	if id == "" {
		return session.Session{}, ErrEmptyID
	}
	raw, err := r.client.Get(ctx, Key(id)).Bytes()
	if err == redis.Nil {
		return session.Session{}, nil
	}
	if err != nil {
		return session.Session{}, fmt.Errorf("%w: %w", ErrBackend, err)
	}
	return Decode(raw)
}

func (r *RedisRegistry) Save(ctx context.Context, id string, s session.Session) error {
	if id == "" {
		return ErrEmptyID
	}
	if s.State() == session.Anonymous {
		return r.Delete(ctx, id)
	}
	raw, err := Encode(s)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, Key(id), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrBackend, err)
	}
	return nil
}

func (r *RedisRegistry) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, Key(id)).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrBackend, err)
	}
	return nil
}

// Close releases the underlying client.
func (r *RedisRegistry) Close() error {
	return r.client.Close()
}

// Key returns the redis key for a session id.
func Key(id string) string { return keyPrefix + id }

// Encode serializes a session for storage.
func Encode(s session.Session) ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return raw, nil
}

// Decode parses a stored session.
func Decode(raw []byte) (session.Session, error) {
	var s session.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return session.Session{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return s, nil
}
