package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyStore is the small key/value surface shared by captcha challenges, the token
// blacklist and reminder idempotency keys. Redis backs it in production; a process-local
// map is used when no redis client is configured.
type KeyStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX stores value only when key is absent and reports whether it did
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Get returns ok=false when the key is missing or expired
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Delete(ctx context.Context, key string) error
}

// NewKeyStore returns a redis-backed store when rc is non-nil, otherwise an in-memory one
func NewKeyStore(rc *redis.Client, prefix string) KeyStore {
	if rc == nil {
		return NewMemoryKeyStore(time.Now)
	}
	return &RedisKeyStore{rc: rc, prefix: prefix}
}

// RedisKeyStore implements KeyStore on top of go-redis
type RedisKeyStore struct {
	rc     *redis.Client
	prefix string
}

func (s *RedisKeyStore) key(k string) string {
	return s.prefix + k
}

func (s *RedisKeyStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.rc.Set(ctx, s.key(key), value, ttl).Err()
}

func (s *RedisKeyStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return s.rc.SetNX(ctx, s.key(key), value, ttl).Result()
}

func (s *RedisKeyStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rc.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisKeyStore) Delete(ctx context.Context, key string) error {
	return s.rc.Del(ctx, s.key(key)).Err()
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// MemoryKeyStore is a process-local KeyStore. Expired entries are dropped lazily on access.
type MemoryKeyStore struct {
	mu  sync.Mutex
	m   map[string]memoryEntry
	now func() time.Time
}

func NewMemoryKeyStore(now func() time.Time) *MemoryKeyStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryKeyStore{m: make(map[string]memoryEntry), now: now}
}

func (s *MemoryKeyStore) entry(ttl time.Duration, value string) memoryEntry {
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	return e
}

// live must be called with mu held
func (s *MemoryKeyStore) live(key string) (memoryEntry, bool) {
	e, ok := s.m[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.m, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (s *MemoryKeyStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = s.entry(ttl, value)
	return nil
}

func (s *MemoryKeyStore) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(key); ok {
		return false, nil
	}
	s.m[key] = s.entry(ttl, value)
	return true, nil
}

func (s *MemoryKeyStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	return e.value, ok, nil
}

func (s *MemoryKeyStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}
