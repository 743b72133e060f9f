package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newTestStore(t *testing.T) *FilesystemStore {
	t.Helper()
	store, err := NewFilesystemStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return store
}

func TestFilesystemStore_Roundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	content := []byte("image bytes")

	key := "uploads/recipe/test.jpg"
	if err := store.Save(ctx, key, bytes.NewReader(content), int64(len(content)), "image/jpeg"); err != nil {
		t.Fatalf("save: %v", err)
	}

	exists, err := store.Exists(ctx, key)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Error("saved object reported as absent")
	}

	rc, info, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("content mismatch: got %q", got)
	}
	if info.Size != int64(len(content)) {
		t.Errorf("expected size %d, got %d", len(content), info.Size)
	}
	if info.ContentType != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %q", info.ContentType)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := store.Open(ctx, key); !errors.Is(err, ErrMediaNotFound) {
		t.Errorf("expected ErrMediaNotFound after delete, got %v", err)
	}
}

func TestFilesystemStore_SaveReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := "uploads/recipe/test.png"

	for _, content := range []string{"first", "second"} {
		if err := store.Save(ctx, key, strings.NewReader(content), int64(len(content)), "image/png"); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	rc, _, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "second" {
		t.Errorf("expected second write to win, got %q", got)
	}
}

func TestFilesystemStore_RejectsTraversal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	keys := []string{
		"../outside.txt",
		"uploads/../../outside.txt",
		"/etc/passwd",
		".",
		"",
	}

	for _, key := range keys {
		if err := store.Save(ctx, key, strings.NewReader("x"), 1, "text/plain"); err == nil {
			t.Errorf("key %q accepted by Save", key)
		}
		if _, _, err := store.Open(ctx, key); err == nil {
			t.Errorf("key %q accepted by Open", key)
		}
		if err := store.Delete(ctx, key); err == nil {
			t.Errorf("key %q accepted by Delete", key)
		}
	}
}

func TestFilesystemStore_MissingObject(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, _, err := store.Open(ctx, "uploads/recipe/nope.jpg"); !errors.Is(err, ErrMediaNotFound) {
		t.Errorf("expected ErrMediaNotFound, got %v", err)
	}
	if err := store.Delete(ctx, "uploads/recipe/nope.jpg"); !errors.Is(err, ErrMediaNotFound) {
		t.Errorf("expected ErrMediaNotFound, got %v", err)
	}
	exists, err := store.Exists(ctx, "uploads/recipe/nope.jpg")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Error("missing object reported as present")
	}
}

func TestRecipeImageKey(t *testing.T) {
	key := RecipeImageKey("My Photo.JPG")
	if !strings.HasPrefix(key, "uploads/recipe/") {
		t.Errorf("unexpected prefix: %q", key)
	}
	if !strings.HasSuffix(key, ".jpg") {
		t.Errorf("extension not lowered: %q", key)
	}
	if strings.Contains(key, "My Photo") {
		t.Errorf("client filename leaked into key: %q", key)
	}
	if RecipeImageKey("a.png") == RecipeImageKey("a.png") {
		t.Error("keys must be unique per upload")
	}
}
