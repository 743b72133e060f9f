package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/galley-app/galley/internal/domain"
	"github.com/galley-app/galley/internal/repository"
)

// catalogTable describes the tables backing one catalog kind. Table and
// column names come from these fixed descriptors, never from input, so
// interpolating them into SQL is safe.
type catalogTable struct {
	kind      domain.CatalogKind
	table     string
	linkTable string
	linkCol   string
}

var (
	tagTable = catalogTable{
		kind:      domain.KindTag,
		table:     "tags",
		linkTable: "recipe_tags",
		linkCol:   "tag_id",
	}

	ingredientTable = catalogTable{
		kind:      domain.KindIngredient,
		table:     "ingredients",
		linkTable: "recipe_ingredients",
		linkCol:   "ingredient_id",
	}
)

// catalogRepository implements repository.CatalogRepository for SQLite.
// The same implementation serves tags and ingredients, pointed at the
// respective tables.
type catalogRepository struct {
	db *DB
	t  catalogTable
}

// NewTagRepository creates the SQLite repository for tags.
func NewTagRepository(db *DB) repository.CatalogRepository {
	return &catalogRepository{db: db, t: tagTable}
}

// NewIngredientRepository creates the SQLite repository for ingredients.
func NewIngredientRepository(db *DB) repository.CatalogRepository {
	return &catalogRepository{db: db, t: ingredientTable}
}

// Kind reports which catalog this repository serves.
func (r *catalogRepository) Kind() domain.CatalogKind {
	return r.t.kind
}

// Create creates a new catalog item.
func (r *catalogRepository) Create(ctx context.Context, item *domain.CatalogItem) error {
	query := fmt.Sprintf(
		`INSERT INTO %s (user_id, name, created_at) VALUES (?, ?, ?)`,
		r.t.table,
	)

	result, err := r.db.ExecContext(ctx, query,
		item.UserID,
		item.Name,
		item.CreatedAt.Format(time.RFC3339),
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s %q", domain.ErrCatalogItemExists, r.t.kind, item.Name)
		}
		return fmt.Errorf("failed to create %s: %w", r.t.kind, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	item.ID = id

	return nil
}

// GetByID retrieves an item by ID, scoped to the owner.
func (r *catalogRepository) GetByID(ctx context.Context, userID, id int64) (*domain.CatalogItem, error) {
	query := fmt.Sprintf(
		`SELECT id, user_id, name, created_at FROM %s WHERE id = ? AND user_id = ?`,
		r.t.table,
	)
	return r.scanItem(r.db.QueryRowContext(ctx, query, id, userID))
}

// GetByName retrieves an item by name, scoped to the owner.
func (r *catalogRepository) GetByName(ctx context.Context, userID int64, name string) (*domain.CatalogItem, error) {
	query := fmt.Sprintf(
		`SELECT id, user_id, name, created_at FROM %s WHERE user_id = ? AND name = ?`,
		r.t.table,
	)
	return r.scanItem(r.db.QueryRowContext(ctx, query, userID, name))
}

// GetOrCreate resolves a name to an item, creating it if absent.
// INSERT OR IGNORE followed by a SELECT converges under the (user_id, name)
// uniqueness constraint even when two transactions race on the same name.
func (r *catalogRepository) GetOrCreate(ctx context.Context, userID int64, name string) (*domain.CatalogItem, error) {
	insert := fmt.Sprintf(
		`INSERT INTO %s (user_id, name, created_at) VALUES (?, ?, ?) ON CONFLICT (user_id, name) DO NOTHING`,
		r.t.table,
	)

	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, insert, userID, name, now.Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("failed to upsert %s: %w", r.t.kind, err)
	}

	return r.GetByName(ctx, userID, name)
}

// ListByUser returns the owner's items, reverse alphabetical by name.
func (r *catalogRepository) ListByUser(ctx context.Context, userID int64, opts repository.CatalogListOptions) ([]*domain.CatalogItem, error) {
	query := fmt.Sprintf(
		`SELECT id, user_id, name, created_at FROM %s WHERE user_id = ? ORDER BY name DESC`,
		r.t.table,
	)
	if opts.AssignedOnly {
		// DISTINCT collapses items linked to several recipes into one row.
		query = fmt.Sprintf(`
			SELECT DISTINCT c.id, c.user_id, c.name, c.created_at
			FROM %s c
			JOIN %s l ON l.%s = c.id
			WHERE c.user_id = ?
			ORDER BY c.name DESC`,
			r.t.table, r.t.linkTable, r.t.linkCol,
		)
	}

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %ss: %w", r.t.kind, err)
	}
	defer rows.Close()

	var items []*domain.CatalogItem
	for rows.Next() {
		item, err := r.scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %ss: %w", r.t.kind, err)
	}

	return items, nil
}

// Rename updates an item's name, scoped to the owner.
func (r *catalogRepository) Rename(ctx context.Context, userID, id int64, name string) error {
	query := fmt.Sprintf(
		`UPDATE %s SET name = ? WHERE id = ? AND user_id = ?`,
		r.t.table,
	)

	result, err := r.db.ExecContext(ctx, query, name, id, userID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s %q", domain.ErrCatalogItemExists, r.t.kind, name)
		}
		return fmt.Errorf("failed to rename %s: %w", r.t.kind, err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrCatalogItemNotFound
	}

	return nil
}

// Delete removes an item and its recipe associations, scoped to the owner.
func (r *catalogRepository) Delete(ctx context.Context, userID, id int64) error {
	// Link rows go via ON DELETE CASCADE.
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ? AND user_id = ?`, r.t.table)

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", r.t.kind, err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrCatalogItemNotFound
	}

	return nil
}

func (r *catalogRepository) scanItem(row rowScanner) (*domain.CatalogItem, error) {
	item := &domain.CatalogItem{}
	var createdAt string

	err := row.Scan(&item.ID, &item.UserID, &item.Name, &createdAt)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrCatalogItemNotFound
		}
		return nil, fmt.Errorf("failed to scan %s: %w", r.t.kind, err)
	}

	item.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return item, nil
}

// Ensure catalogRepository implements repository.CatalogRepository.
var _ repository.CatalogRepository = (*catalogRepository)(nil)
