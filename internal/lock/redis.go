package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Lua scripts so release and extend only act on locks we own.
var (
	releaseScript = goredis.NewScript(`
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		end
		return 0
	`)

	extendScript = goredis.NewScript(`
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("PEXPIRE", KEYS[1], ARGV[2])
		end
		return 0
	`)
)

// RedisLocker implements Locker using Redis SET NX with per-key ownership
// tokens. Safe across multiple server instances sharing one Redis.
type RedisLocker struct {
	client *goredis.Client

	mu     sync.Mutex
	tokens map[string]string
}

// NewRedisLocker creates a new Redis-backed locker.
func NewRedisLocker(client *goredis.Client) *RedisLocker {
	return &RedisLocker{
		client: client,
		tokens: make(map[string]string),
	}
}

// randomToken returns a fresh ownership token.
func randomToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate lock token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Acquire attempts to acquire a lock.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token, err := randomToken()
	if err != nil {
		return false, err
	}

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return false, nil
	}

	l.mu.Lock()
	l.tokens[key] = token
	l.mu.Unlock()

	return true, nil
}

// AcquireWithRetry attempts to acquire a lock with retries.
func (l *RedisLocker) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error) {
	for i := 0; i <= maxRetries; i++ {
		acquired, err := l.Acquire(ctx, key, ttl)
		if err != nil {
			return false, err
		}
		if acquired {
			return true, nil
		}

		// Don't sleep on the last attempt.
		if i < maxRetries {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	return false, nil
}

// Release releases a lock if we still own it.
func (l *RedisLocker) Release(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	token, ok := l.tokens[key]
	delete(l.tokens, key)
	l.mu.Unlock()

	if !ok {
		return false, nil
	}

	n, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to release lock: %w", err)
	}
	return n > 0, nil
}

// Extend extends the TTL of a held lock.
func (l *RedisLocker) Extend(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	token, ok := l.tokens[key]
	l.mu.Unlock()

	if !ok {
		return false, nil
	}

	n, err := extendScript.Run(ctx, l.client, []string{key}, token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to extend lock: %w", err)
	}
	if n == 0 {
		l.mu.Lock()
		delete(l.tokens, key)
		l.mu.Unlock()
		return false, nil
	}
	return true, nil
}

// IsHeld checks if the lock is currently held by anyone.
func (l *RedisLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check lock: %w", err)
	}
	return n > 0, nil
}

// Ensure RedisLocker implements Locker
var _ Locker = (*RedisLocker)(nil)
