package stub

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const codeKeyPrefix = "verification:code:"

// CodeStore holds bcrypt-hashed verification codes until they expire or
// are consumed. One code per phone number; a resend overwrites.
type CodeStore interface {
	Put(ctx context.Context, phone, hash string, ttl time.Duration) error
	// Get returns the stored hash, or ErrNotFound when absent or expired.
	Get(ctx context.Context, phone string) (string, error)
	Delete(ctx context.Context, phone string) error
}

// RedisCodeStore keeps codes in Redis with a native TTL.
type RedisCodeStore struct {
	client *redis.Client
}

// NewRedisCodeStore builds a Redis-backed code store.
func NewRedisCodeStore(client *redis.Client) *RedisCodeStore {
	return &RedisCodeStore{client: client}
}

// Put stores the hash under the phone's key with the given TTL.
func (s *RedisCodeStore) Put(ctx context.Context, phone, hash string, ttl time.Duration) error {
	return s.client.Set(ctx, codeKeyPrefix+phone, hash, ttl).Err()
}

// Get fetches the hash for the phone.
func (s *RedisCodeStore) Get(ctx context.Context, phone string) (string, error) {
	hash, err := s.client.Get(ctx, codeKeyPrefix+phone).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return hash, nil
}

// Delete consumes the code.
func (s *RedisCodeStore) Delete(ctx context.Context, phone string) error {
	return s.client.Del(ctx, codeKeyPrefix+phone).Err()
}

type codeEntry struct {
	hash      string
	expiresAt time.Time
}

type memoryCodeStore struct {
	mu    sync.Mutex
	codes map[string]codeEntry
	now   func() time.Time
}

// NewMemoryCodeStore builds the in-memory fallback code store. Expiry is
// checked lazily on read.
func NewMemoryCodeStore() CodeStore {
	return &memoryCodeStore{codes: make(map[string]codeEntry), now: time.Now}
}

func (s *memoryCodeStore) Put(_ context.Context, phone, hash string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[phone] = codeEntry{hash: hash, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *memoryCodeStore) Get(_ context.Context, phone string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.codes[phone]
	if !ok {
		return "", ErrNotFound
	}
	if s.now().After(entry.expiresAt) {
		delete(s.codes, phone)
		return "", ErrNotFound
	}
	return entry.hash, nil
}

func (s *memoryCodeStore) Delete(_ context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, phone)
	return nil
}
