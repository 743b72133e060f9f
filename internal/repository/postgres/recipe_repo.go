package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/galley-app/galley/internal/domain"
	"github.com/galley-app/galley/internal/repository"
)

// recipeRepository implements repository.RecipeRepository for PostgreSQL.
type recipeRepository struct {
	db *DB
}

// NewRecipeRepository creates a new PostgreSQL recipe repository.
func NewRecipeRepository(db *DB) repository.RecipeRepository {
	return &recipeRepository{db: db}
}

// Create inserts a new recipe row.
func (r *recipeRepository) Create(ctx context.Context, recipe *domain.Recipe) error {
	query := `
		INSERT INTO recipes (user_id, title, description, time_minutes, price_cents, link, image_path, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := r.db.conn(ctx).QueryRow(ctx, query,
		recipe.UserID,
		recipe.Title,
		recipe.Description,
		recipe.TimeMinutes,
		int64(recipe.Price),
		recipe.Link,
		recipe.ImagePath,
		recipe.CreatedAt,
		recipe.UpdatedAt,
	).Scan(&recipe.ID)

	if err != nil {
		return fmt.Errorf("failed to create recipe: %w", err)
	}

	return nil
}

// GetByID retrieves a recipe with its tag and ingredient sets.
func (r *recipeRepository) GetByID(ctx context.Context, id int64) (*domain.Recipe, error) {
	query := `
		SELECT id, user_id, title, description, time_minutes, price_cents, link, image_path, created_at, updated_at
		FROM recipes
		WHERE id = $1
	`

	recipe := &domain.Recipe{}
	var priceCents int64
	err := r.db.conn(ctx).QueryRow(ctx, query, id).Scan(
		&recipe.ID,
		&recipe.UserID,
		&recipe.Title,
		&recipe.Description,
		&recipe.TimeMinutes,
		&priceCents,
		&recipe.Link,
		&recipe.ImagePath,
		&recipe.CreatedAt,
		&recipe.UpdatedAt,
	)

	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrRecipeNotFound
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}

	recipe.Price = domain.Price(priceCents)

	if err := r.loadRelations(ctx, []*domain.Recipe{recipe}); err != nil {
		return nil, err
	}

	return recipe, nil
}

// List returns the owner's recipes, newest-ID first, with relations loaded.
func (r *recipeRepository) List(ctx context.Context, userID int64, opts repository.RecipeListOptions) ([]*domain.Recipe, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT DISTINCT r.id, r.user_id, r.title, r.description, r.time_minutes, r.price_cents, r.link, r.image_path, r.created_at, r.updated_at
		FROM recipes r
	`)

	if len(opts.TagIDs) > 0 {
		sb.WriteString(" JOIN recipe_tags rt ON rt.recipe_id = r.id")
	}
	if len(opts.IngredientIDs) > 0 {
		sb.WriteString(" JOIN recipe_ingredients ri ON ri.recipe_id = r.id")
	}

	sb.WriteString(" WHERE r.user_id = $1")
	args := []any{userID}

	if len(opts.TagIDs) > 0 {
		args = append(args, opts.TagIDs)
		sb.WriteString(fmt.Sprintf(" AND rt.tag_id = ANY($%d)", len(args)))
	}
	if len(opts.IngredientIDs) > 0 {
		args = append(args, opts.IngredientIDs)
		sb.WriteString(fmt.Sprintf(" AND ri.ingredient_id = ANY($%d)", len(args)))
	}

	sb.WriteString(" ORDER BY r.id DESC")

	rows, err := r.db.conn(ctx).Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	var recipes []*domain.Recipe
	for rows.Next() {
		recipe := &domain.Recipe{}
		var priceCents int64
		err := rows.Scan(
			&recipe.ID,
			&recipe.UserID,
			&recipe.Title,
			&recipe.Description,
			&recipe.TimeMinutes,
			&priceCents,
			&recipe.Link,
			&recipe.ImagePath,
			&recipe.CreatedAt,
			&recipe.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		recipe.Price = domain.Price(priceCents)
		recipes = append(recipes, recipe)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipes: %w", err)
	}

	if err := r.loadRelations(ctx, recipes); err != nil {
		return nil, err
	}

	return recipes, nil
}

// Update updates the recipe row (not its relation links).
func (r *recipeRepository) Update(ctx context.Context, recipe *domain.Recipe) error {
	recipe.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE recipes
		SET title = $1, description = $2, time_minutes = $3, price_cents = $4, link = $5, image_path = $6, updated_at = $7
		WHERE id = $8
	`

	tag, err := r.db.conn(ctx).Exec(ctx, query,
		recipe.Title,
		recipe.Description,
		recipe.TimeMinutes,
		int64(recipe.Price),
		recipe.Link,
		recipe.ImagePath,
		recipe.UpdatedAt,
		recipe.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update recipe: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrRecipeNotFound
	}

	return nil
}

// Delete removes a recipe. Link rows go via ON DELETE CASCADE.
func (r *recipeRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM recipes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrRecipeNotFound
	}

	return nil
}

// SetTags replaces the recipe's tag links with the given IDs.
func (r *recipeRepository) SetTags(ctx context.Context, recipeID int64, tagIDs []int64) error {
	return r.setLinks(ctx, "recipe_tags", "tag_id", recipeID, tagIDs)
}

// SetIngredients replaces the recipe's ingredient links with the given IDs.
func (r *recipeRepository) SetIngredients(ctx context.Context, recipeID int64, ingredientIDs []int64) error {
	return r.setLinks(ctx, "recipe_ingredients", "ingredient_id", recipeID, ingredientIDs)
}

// setLinks clears and rewrites one link table for a recipe. Callers run it
// inside WithTx together with the recipe write.
func (r *recipeRepository) setLinks(ctx context.Context, table, col string, recipeID int64, ids []int64) error {
	del := fmt.Sprintf(`DELETE FROM %s WHERE recipe_id = $1`, table)
	if _, err := r.db.conn(ctx).Exec(ctx, del, recipeID); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}

	if len(ids) == 0 {
		return nil
	}

	ins := fmt.Sprintf(
		`INSERT INTO %s (recipe_id, %s) SELECT $1, unnest($2::BIGINT[]) ON CONFLICT DO NOTHING`,
		table, col,
	)
	if _, err := r.db.conn(ctx).Exec(ctx, ins, recipeID, ids); err != nil {
		return fmt.Errorf("failed to link %s: %w", table, err)
	}

	return nil
}

// UpdateImagePath sets the stored media reference for a recipe.
func (r *recipeRepository) UpdateImagePath(ctx context.Context, recipeID int64, path string) error {
	query := `UPDATE recipes SET image_path = $1, updated_at = $2 WHERE id = $3`

	tag, err := r.db.conn(ctx).Exec(ctx, query, path, time.Now().UTC(), recipeID)
	if err != nil {
		return fmt.Errorf("failed to update recipe image: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrRecipeNotFound
	}

	return nil
}

// loadRelations populates Tags and Ingredients for the given recipes with
// one query per link table.
func (r *recipeRepository) loadRelations(ctx context.Context, recipes []*domain.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.Recipe, len(recipes))
	ids := make([]int64, 0, len(recipes))
	for _, rec := range recipes {
		rec.Tags = []*domain.CatalogItem{}
		rec.Ingredients = []*domain.CatalogItem{}
		byID[rec.ID] = rec
		ids = append(ids, rec.ID)
	}

	load := func(linkTable, linkCol, table string, assign func(*domain.Recipe, *domain.CatalogItem)) error {
		query := fmt.Sprintf(`
			SELECT l.recipe_id, c.id, c.user_id, c.name, c.created_at
			FROM %s l
			JOIN %s c ON c.id = l.%s
			WHERE l.recipe_id = ANY($1)
			ORDER BY c.name DESC`,
			linkTable, table, linkCol,
		)

		rows, err := r.db.conn(ctx).Query(ctx, query, ids)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", linkTable, err)
		}
		defer rows.Close()

		for rows.Next() {
			var recipeID int64
			item := &domain.CatalogItem{}
			if err := rows.Scan(&recipeID, &item.ID, &item.UserID, &item.Name, &item.CreatedAt); err != nil {
				return fmt.Errorf("failed to scan %s: %w", linkTable, err)
			}
			if rec, ok := byID[recipeID]; ok {
				assign(rec, item)
			}
		}

		return rows.Err()
	}

	if err := load("recipe_tags", "tag_id", "tags", func(rec *domain.Recipe, it *domain.CatalogItem) {
		rec.Tags = append(rec.Tags, it)
	}); err != nil {
		return err
	}

	return load("recipe_ingredients", "ingredient_id", "ingredients", func(rec *domain.Recipe, it *domain.CatalogItem) {
		rec.Ingredients = append(rec.Ingredients, it)
	})
}

// Ensure recipeRepository implements repository.RecipeRepository.
var _ repository.RecipeRepository = (*recipeRepository)(nil)
