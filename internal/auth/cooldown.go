package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CooldownStore tracks password-reset attempts per email inside a rolling
// window. Hit must be an atomic increment so two concurrent requests cannot
// both slip under the threshold; Status is side-effect-free.
type CooldownStore interface {
	Hit(ctx context.Context, email string) (count int64, err error)
	Status(ctx context.Context, email string) (count int64, remaining time.Duration, err error)
}

const cooldownKeyPrefix = "reset-cooldown:"

func cooldownKey(email string) string {
	return cooldownKeyPrefix + strings.ToLower(strings.TrimSpace(email))
}

// RedisCooldownStore keys counters by email with a TTL equal to the window.
type RedisCooldownStore struct {
	client *redis.Client
	window time.Duration
}

func NewRedisCooldownStore(client *redis.Client, window time.Duration) *RedisCooldownStore {
	return &RedisCooldownStore{client: client, window: window}
}

func (s *RedisCooldownStore) Hit(ctx context.Context, email string) (int64, error) {
	key := cooldownKey(email)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	// NX keeps the window anchored at the first attempt.
	pipe.ExpireNX(ctx, key, s.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (s *RedisCooldownStore) Status(ctx context.Context, email string) (int64, time.Duration, error) {
	key := cooldownKey(email)

	count, err := s.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}

	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if ttl < 0 {
		ttl = 0
	}
	return count, ttl, nil
}

// MemoryCooldownStore is the single-instance fallback and the test double.
// The clock is injectable so window expiry is testable without sleeping.
type MemoryCooldownStore struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string]*cooldownEntry
	now     func() time.Time
}

type cooldownEntry struct {
	count     int64
	expiresAt time.Time
}

func NewMemoryCooldownStore(window time.Duration) *MemoryCooldownStore {
	return &MemoryCooldownStore{
		window:  window,
		entries: make(map[string]*cooldownEntry),
		now:     time.Now,
	}
}

// WithClock overrides the store's clock; tests only.
func (s *MemoryCooldownStore) WithClock(now func() time.Time) *MemoryCooldownStore {
	s.now = now
	return s
}

func (s *MemoryCooldownStore) Hit(ctx context.Context, email string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := cooldownKey(email)
	now := s.now()

	entry, ok := s.entries[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &cooldownEntry{expiresAt: now.Add(s.window)}
		s.entries[key] = entry
	}
	entry.count++
	return entry.count, nil
}

func (s *MemoryCooldownStore) Status(ctx context.Context, email string) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := cooldownKey(email)
	now := s.now()

	entry, ok := s.entries[key]
	if !ok || now.After(entry.expiresAt) {
		return 0, 0, nil
	}
	return entry.count, entry.expiresAt.Sub(now), nil
}
