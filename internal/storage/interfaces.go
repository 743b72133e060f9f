// Package storage defines interfaces for recipe media storage backends.
// The storage layer persists and retrieves raw image data; which recipe an
// image belongs to lives in the database.
package storage

import (
	"context"
	"errors"
	"io"
)

// Storage errors
var (
	// ErrMediaNotFound indicates the stored object doesn't exist.
	ErrMediaNotFound = errors.New("media not found")
)

// IsNotFound reports whether an error means the object doesn't exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMediaNotFound)
}

// MediaStore defines the interface for media storage backends.
// Implementations include the local filesystem and S3-compatible services.
type MediaStore interface {
	// Save stores content under the given key, replacing any existing
	// object. Keys come from RecipeImageKey and are always safe relative paths.
	Save(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Open retrieves stored content by key.
	// Returns a ReadCloser that must be closed after use, plus the
	// object's size and content type.
	Open(ctx context.Context, key string) (io.ReadCloser, *MediaInfo, error)

	// Delete removes stored content by key.
	// Returns ErrMediaNotFound if the object doesn't exist.
	Delete(ctx context.Context, key string) error

	// Exists checks if an object with the given key exists.
	Exists(ctx context.Context, key string) (bool, error)
}

// MediaInfo describes a stored object.
type MediaInfo struct {
	// Size is the object size in bytes.
	Size int64

	// ContentType is the stored MIME type, if the backend tracks one.
	ContentType string
}
