package repository

import "errors"

// Cache errors. Repositories report missing rows with the matching domain
// sentinel (domain.ErrUserNotFound and friends); only the cache layer has
// errors of its own.
var (
	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable indicates the cache is unavailable.
	ErrCacheUnavailable = errors.New("cache unavailable")
)
