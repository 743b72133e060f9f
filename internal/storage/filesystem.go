package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// FilesystemStore implements MediaStore on a local directory.
// Suitable for single-node deployments.
type FilesystemStore struct {
	root   string
	logger zerolog.Logger
}

// NewFilesystemStore creates a filesystem-backed media store rooted at dir.
func NewFilesystemStore(dir string, logger zerolog.Logger) (*FilesystemStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}

	logger.Info().Str("dir", dir).Msg("filesystem media store ready")

	return &FilesystemStore{
		root:   dir,
		logger: logger,
	}, nil
}

// resolve maps a key to an absolute path, rejecting traversal outside root.
func (s *FilesystemStore) resolve(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid media key %q", key)
	}
	return filepath.Join(s.root, cleaned), nil
}

// Save stores content under the given key, replacing any existing object.
// Writes go to a temp file first so readers never see partial content.
func (s *FilesystemStore) Save(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	target, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create media subdirectory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write media: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to finalize media: %w", err)
	}

	s.logger.Debug().Str("key", key).Int64("size", size).Msg("media saved")
	return nil
}

// Open retrieves stored content by key.
func (s *FilesystemStore) Open(ctx context.Context, key string) (io.ReadCloser, *MediaInfo, error) {
	target, err := s.resolve(key)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrMediaNotFound
		}
		return nil, nil, fmt.Errorf("failed to open media: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to stat media: %w", err)
	}

	info := &MediaInfo{
		Size:        stat.Size(),
		ContentType: mime.TypeByExtension(filepath.Ext(target)),
	}

	return f, info, nil
}

// Delete removes stored content by key.
func (s *FilesystemStore) Delete(ctx context.Context, key string) error {
	target, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(target); err != nil {
		if os.IsNotExist(err) {
			return ErrMediaNotFound
		}
		return fmt.Errorf("failed to delete media: %w", err)
	}

	s.logger.Debug().Str("key", key).Msg("media deleted")
	return nil
}

// Exists checks if an object with the given key exists.
func (s *FilesystemStore) Exists(ctx context.Context, key string) (bool, error) {
	target, err := s.resolve(key)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(target); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat media: %w", err)
	}
	return true, nil
}

// Ensure FilesystemStore implements MediaStore.
var _ MediaStore = (*FilesystemStore)(nil)
