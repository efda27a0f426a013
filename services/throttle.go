package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRefreshThrottle is the minimum gap between full refreshes of one session.
const DefaultRefreshThrottle = 10 * time.Second

// RefreshThrottle decides whether a session may run a full refresh now.
type RefreshThrottle interface {
	// Allow reports true and starts a new window when the previous one expired.
	Allow(ctx context.Context, key string) (bool, error)
	// Reset forgets the window so the next refresh runs in full.
	Reset(ctx context.Context, key string) error
}

// MemoryThrottle keeps windows in process memory.
type MemoryThrottle struct {
	Window time.Duration
	Now    func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

func NewMemoryThrottle(window time.Duration) *MemoryThrottle {
	if window <= 0 {
		window = DefaultRefreshThrottle
	}
	return &MemoryThrottle{Window: window, Now: time.Now, last: make(map[string]time.Time)}
}

func (t *MemoryThrottle) Allow(_ context.Context, key string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.Now()
	if last, ok := t.last[key]; ok && now.Sub(last) < t.Window {
		return false, nil
	}
	t.last[key] = now
	return true, nil
}

func (t *MemoryThrottle) Reset(_ context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.last, key)
	return nil
}

// RedisThrottle uses SETNX with a TTL so windows survive restarts.
type RedisThrottle struct {
	Client *redis.Client
	Window time.Duration
}

func NewRedisThrottle(client *redis.Client, window time.Duration) *RedisThrottle {
	if window <= 0 {
		window = DefaultRefreshThrottle
	}
	return &RedisThrottle{Client: client, Window: window}
}

func (t *RedisThrottle) key(key string) string {
	return fmt.Sprintf("ecoecho:refresh_throttle:%s", key)
}

func (t *RedisThrottle) Allow(ctx context.Context, key string) (bool, error) {
	if t.Client == nil {
		return true, nil
	}
	wasSet, err := t.Client.SetNX(ctx, t.key(key), "locked", t.Window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check refresh throttle in redis: %w", err)
	}
	return wasSet, nil
}

func (t *RedisThrottle) Reset(ctx context.Context, key string) error {
	if t.Client == nil {
		return nil
	}
	return t.Client.Del(ctx, t.key(key)).Err()
}
