package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Blacklist records revoked tokens until they expire.
type Blacklist interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
	Close() error
}

// MemoryBlacklist is the in-process Blacklist used when Redis is not
// configured. Expired entries linger until PurgeExpired runs; the
// hourly cleanup job calls it.
type MemoryBlacklist struct {
	mu      sync.RWMutex
	revoked map[string]time.Time // token -> expiry
}

// NewMemoryBlacklist creates an empty in-memory blacklist.
func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{revoked: make(map[string]time.Time)}
}

func (b *MemoryBlacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[token] = time.Now().Add(ttl)
	return nil
}

func (b *MemoryBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	expiry, ok := b.revoked[token]
	if !ok {
		return false, nil
	}
	return time.Now().Before(expiry), nil
}

// PurgeExpired drops entries whose backing tokens have expired and
// returns how many were removed.
func (b *MemoryBlacklist) PurgeExpired() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	removed := 0
	for token, expiry := range b.revoked {
		if now.After(expiry) {
			delete(b.revoked, token)
			removed++
		}
	}
	return removed
}

func (b *MemoryBlacklist) Close() error { return nil }

// RedisBlacklist stores revocations in Redis with per-key TTL, so no
// cleanup job is needed and revocations survive restarts.
type RedisBlacklist struct {
	rdb    *redis.Client
	prefix string
}

// RedisBlacklistConfig holds Redis connection settings.
type RedisBlacklistConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisBlacklist connects to Redis and validates the connection.
func NewRedisBlacklist(cfg RedisBlacklistConfig) (*RedisBlacklist, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisBlacklist{rdb: rdb, prefix: "taskdeck:revoked:"}, nil
}

func (b *RedisBlacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := b.rdb.Set(ctx, b.prefix+token, 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (b *RedisBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := b.rdb.Exists(ctx, b.prefix+token).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token: %w", err)
	}
	return n > 0, nil
}

func (b *RedisBlacklist) Close() error {
	return b.rdb.Close()
}
