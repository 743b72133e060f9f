package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker implements Locker with process-local locks. Suitable for
// single-node deployments; locks do not survive restarts and are invisible
// to other instances.
//
// Expired entries are reaped lazily on access, so no background goroutine
// is needed.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]time.Time
}

// NewMemoryLocker creates a new in-memory locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		locks: make(map[string]time.Time),
	}
}

// held reports whether key is locked, dropping the entry if it expired.
// Caller must hold m.mu.
func (m *MemoryLocker) held(key string) bool {
	expiresAt, ok := m.locks[key]
	if !ok {
		return false
	}
	if time.Now().After(expiresAt) {
		delete(m.locks, key)
		return false
	}
	return true
}

// Acquire attempts to acquire a lock.
func (m *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.held(key) {
		return false, nil
	}
	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

// AcquireWithRetry attempts to acquire a lock, retrying up to maxRetries
// times with retryDelay between attempts.
func (m *MemoryLocker) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error) {
	for attempt := 0; ; attempt++ {
		acquired, err := m.Acquire(ctx, key, ttl)
		if err != nil || acquired {
			return acquired, err
		}
		if attempt >= maxRetries {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
}

// Release releases a lock.
func (m *MemoryLocker) Release(ctx context.Context, key string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.held(key) {
		return false, nil
	}
	delete(m.locks, key)
	return true, nil
}

// Extend extends the TTL of a held lock.
func (m *MemoryLocker) Extend(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.held(key) {
		return false, nil
	}
	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

// IsHeld checks if a lock is currently held.
func (m *MemoryLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.held(key), nil
}

// Ensure MemoryLocker implements Locker.
var _ Locker = (*MemoryLocker)(nil)
