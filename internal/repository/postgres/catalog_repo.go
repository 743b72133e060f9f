package postgres

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

// catalogRepository implements repository.CatalogRepository for PostgreSQL.
// The same implementation serves tags and ingredients, pointed at the
// respective tables.
type catalogRepository struct {
	db *DB
	t  catalogTable
}

// NewTagRepository creates the PostgreSQL repository for tags.
func NewTagRepository(db *DB) repository.CatalogRepository {
	return &catalogRepository{db: db, t: tagTable}
}

// NewIngredientRepository creates the PostgreSQL repository for ingredients.
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
		`INSERT INTO %s (user_id, name, created_at) VALUES ($1, $2, $3) RETURNING id`,
		r.t.table,
	)

	err := r.db.conn(ctx).QueryRow(ctx, query, item.UserID, item.Name, item.CreatedAt).Scan(&item.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s %q", domain.ErrCatalogItemExists, r.t.kind, item.Name)
		}
		return fmt.Errorf("failed to create %s: %w", r.t.kind, err)
	}

	return nil
}

// GetByID retrieves an item by ID, scoped to the owner.
func (r *catalogRepository) GetByID(ctx context.Context, userID, id int64) (*domain.CatalogItem, error) {
	query := fmt.Sprintf(
		`SELECT id, user_id, name, created_at FROM %s WHERE id = $1 AND user_id = $2`,
		r.t.table,
	)

	item := &domain.CatalogItem{}
	err := r.db.conn(ctx).QueryRow(ctx, query, id, userID).Scan(&item.ID, &item.UserID, &item.Name, &item.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrCatalogItemNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", r.t.kind, err)
	}

	return item, nil
}

// GetByName retrieves an item by name, scoped to the owner.
func (r *catalogRepository) GetByName(ctx context.Context, userID int64, name string) (*domain.CatalogItem, error) {
	query := fmt.Sprintf(
		`SELECT id, user_id, name, created_at FROM %s WHERE user_id = $1 AND name = $2`,
		r.t.table,
	)

	item := &domain.CatalogItem{}
	err := r.db.conn(ctx).QueryRow(ctx, query, userID, name).Scan(&item.ID, &item.UserID, &item.Name, &item.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrCatalogItemNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", r.t.kind, err)
	}

	return item, nil
}

// GetOrCreate resolves a name to an item, creating it if absent.
// ON CONFLICT DO NOTHING followed by a SELECT converges under the
// (user_id, name) uniqueness constraint even when two transactions race on
// the same name.
func (r *catalogRepository) GetOrCreate(ctx context.Context, userID int64, name string) (*domain.CatalogItem, error) {
	insert := fmt.Sprintf(
		`INSERT INTO %s (user_id, name, created_at) VALUES ($1, $2, $3) ON CONFLICT (user_id, name) DO NOTHING`,
		r.t.table,
	)

	if _, err := r.db.conn(ctx).Exec(ctx, insert, userID, name, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to upsert %s: %w", r.t.kind, err)
	}

	return r.GetByName(ctx, userID, name)
}

// ListByUser returns the owner's items, reverse alphabetical by name.
func (r *catalogRepository) ListByUser(ctx context.Context, userID int64, opts repository.CatalogListOptions) ([]*domain.CatalogItem, error) {
	query := fmt.Sprintf(
		`SELECT id, user_id, name, created_at FROM %s WHERE user_id = $1 ORDER BY name DESC`,
		r.t.table,
	)
	if opts.AssignedOnly {
		// DISTINCT collapses items linked to several recipes into one row.
		query = fmt.Sprintf(`
			SELECT DISTINCT c.id, c.user_id, c.name, c.created_at
			FROM %s c
			JOIN %s l ON l.%s = c.id
			WHERE c.user_id = $1
			ORDER BY c.name DESC`,
			r.t.table, r.t.linkTable, r.t.linkCol,
		)
	}

	rows, err := r.db.conn(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %ss: %w", r.t.kind, err)
	}
	defer rows.Close()

	var items []*domain.CatalogItem
	for rows.Next() {
		item := &domain.CatalogItem{}
		if err := rows.Scan(&item.ID, &item.UserID, &item.Name, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", r.t.kind, err)
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
		`UPDATE %s SET name = $1 WHERE id = $2 AND user_id = $3`,
		r.t.table,
	)

	tag, err := r.db.conn(ctx).Exec(ctx, query, name, id, userID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s %q", domain.ErrCatalogItemExists, r.t.kind, name)
		}
		return fmt.Errorf("failed to rename %s: %w", r.t.kind, err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrCatalogItemNotFound
	}

	return nil
}

// Delete removes an item and its recipe associations, scoped to the owner.
func (r *catalogRepository) Delete(ctx context.Context, userID, id int64) error {
	// Link rows go via ON DELETE CASCADE.
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, r.t.table)

	tag, err := r.db.conn(ctx).Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", r.t.kind, err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrCatalogItemNotFound
	}

	return nil
}

// Ensure catalogRepository implements repository.CatalogRepository.
var _ repository.CatalogRepository = (*catalogRepository)(nil)
