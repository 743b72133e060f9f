package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(context.Background(), DefaultConfig(filepath.Join(t.TempDir(), "test.db")), zerolog.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// The connection string must actually reach the engine; a silently dropped
// foreign_keys pragma would disable every ON DELETE CASCADE in the schema.
func TestNewDB_PragmasApplied(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	var fk int
	if err := db.DB().QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("pragma foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Fatalf("foreign_keys = %d, want 1", fk)
	}

	var busy int
	if err := db.DB().QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&busy); err != nil {
		t.Fatalf("pragma busy_timeout: %v", err)
	}
	if busy != DefaultConfig("x").BusyTimeout {
		t.Errorf("busy_timeout = %d, want %d", busy, DefaultConfig("x").BusyTimeout)
	}
}

func TestDeleteRecipeCascadesLinkRows(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	exec := func(query string, args ...interface{}) {
		t.Helper()
		if _, err := db.ExecContext(ctx, query, args...); err != nil {
			t.Fatalf("exec %q: %v", query, err)
		}
	}

	exec(`INSERT INTO users (id, email, password_hash, created_at, updated_at)
	      VALUES (1, 'u@example.com', 'x', '2026-01-01', '2026-01-01')`)
	exec(`INSERT INTO recipes (id, user_id, title, time_minutes, price_cents, created_at, updated_at)
	      VALUES (10, 1, 'Soup', 5, 100, '2026-01-01', '2026-01-01')`)
	exec(`INSERT INTO tags (id, user_id, name, created_at) VALUES (20, 1, 'Vegan', '2026-01-01')`)
	exec(`INSERT INTO recipe_tags (recipe_id, tag_id) VALUES (10, 20)`)

	exec(`DELETE FROM recipes WHERE id = 10`)

	var links int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipe_tags WHERE recipe_id = 10`).Scan(&links); err != nil {
		t.Fatalf("count links: %v", err)
	}
	if links != 0 {
		t.Fatalf("recipe deleted but %d link row(s) remain", links)
	}
}
