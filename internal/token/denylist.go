package token

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Denylist records explicitly revoked token IDs. Tokens are otherwise
// stateless; the denylist only serves logout, it is not a liveness check
// against current holdings.
type Denylist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

const denylistKeyPrefix = "denylist:"

// RedisDenylist stores revoked IDs in Redis, expiring with the token.
type RedisDenylist struct {
	client *redis.Client
}

func NewRedisDenylist(client *redis.Client) *RedisDenylist {
	return &RedisDenylist{client: client}
}

func (d *RedisDenylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		// Tokens without expiry stay revoked for two days.
		ttl = 48 * time.Hour
	}
	return d.client.Set(ctx, denylistKeyPrefix+jti, "1", ttl).Err()
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := d.client.Exists(ctx, denylistKeyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemoryDenylist is the single-process fallback when Redis is not
// configured. Expired entries are removed by Sweep, scheduled from the
// gateway.
type MemoryDenylist struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (d *MemoryDenylist) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	d.mu.Lock()
	d.entries[jti] = d.now().Add(ttl)
	d.mu.Unlock()
	return nil
}

func (d *MemoryDenylist) IsRevoked(_ context.Context, jti string) (bool, error) {
	d.mu.RLock()
	expiry, ok := d.entries[jti]
	d.mu.RUnlock()
	return ok && d.now().Before(expiry), nil
}

// Sweep drops expired entries and returns how many were removed.
func (d *MemoryDenylist) Sweep() int {
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for jti, expiry := range d.entries {
		if !now.Before(expiry) {
			delete(d.entries, jti)
			removed++
		}
	}
	return removed
}
