package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/galley-app/galley/internal/domain"
	"github.com/galley-app/galley/internal/repository"
)

// recipeRepository implements repository.RecipeRepository for SQLite.
type recipeRepository struct {
	db *DB
}

// NewRecipeRepository creates a new SQLite recipe repository.
func NewRecipeRepository(db *DB) repository.RecipeRepository {
	return &recipeRepository{db: db}
}

// Create inserts a new recipe row.
func (r *recipeRepository) Create(ctx context.Context, recipe *domain.Recipe) error {
	query := `
		INSERT INTO recipes (user_id, title, description, time_minutes, price_cents, link, image_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		recipe.UserID,
		recipe.Title,
		recipe.Description,
		recipe.TimeMinutes,
		int64(recipe.Price),
		recipe.Link,
		recipe.ImagePath,
		recipe.CreatedAt.Format(time.RFC3339),
		recipe.UpdatedAt.Format(time.RFC3339),
	)

	if err != nil {
		return fmt.Errorf("failed to create recipe: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	recipe.ID = id

	return nil
}

// GetByID retrieves a recipe with its tag and ingredient sets.
func (r *recipeRepository) GetByID(ctx context.Context, id int64) (*domain.Recipe, error) {
	query := `
		SELECT id, user_id, title, description, time_minutes, price_cents, link, image_path, created_at, updated_at
		FROM recipes
		WHERE id = ?
	`

	recipe, err := r.scanRecipe(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

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

	args := []interface{}{}

	if len(opts.TagIDs) > 0 {
		sb.WriteString(" JOIN recipe_tags rt ON rt.recipe_id = r.id")
	}
	if len(opts.IngredientIDs) > 0 {
		sb.WriteString(" JOIN recipe_ingredients ri ON ri.recipe_id = r.id")
	}

	sb.WriteString(" WHERE r.user_id = ?")
	args = append(args, userID)

	if len(opts.TagIDs) > 0 {
		sb.WriteString(" AND rt.tag_id IN (" + placeholders(len(opts.TagIDs)) + ")")
		for _, id := range opts.TagIDs {
			args = append(args, id)
		}
	}
	if len(opts.IngredientIDs) > 0 {
		sb.WriteString(" AND ri.ingredient_id IN (" + placeholders(len(opts.IngredientIDs)) + ")")
		for _, id := range opts.IngredientIDs {
			args = append(args, id)
		}
	}

	sb.WriteString(" ORDER BY r.id DESC")

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	var recipes []*domain.Recipe
	for rows.Next() {
		recipe, err := r.scanRecipe(rows)
		if err != nil {
			return nil, err
		}
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
		SET title = ?, description = ?, time_minutes = ?, price_cents = ?, link = ?, image_path = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		recipe.Title,
		recipe.Description,
		recipe.TimeMinutes,
		int64(recipe.Price),
		recipe.Link,
		recipe.ImagePath,
		recipe.UpdatedAt.Format(time.RFC3339),
		recipe.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update recipe: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrRecipeNotFound
	}

	return nil
}

// Delete removes a recipe. Link rows go via ON DELETE CASCADE.
func (r *recipeRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
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
	del := fmt.Sprintf(`DELETE FROM %s WHERE recipe_id = ?`, table)
	if _, err := r.db.ExecContext(ctx, del, recipeID); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}

	ins := fmt.Sprintf(`INSERT OR IGNORE INTO %s (recipe_id, %s) VALUES (?, ?)`, table, col)
	for _, id := range ids {
		if _, err := r.db.ExecContext(ctx, ins, recipeID, id); err != nil {
			return fmt.Errorf("failed to link %s: %w", table, err)
		}
	}

	return nil
}

// UpdateImagePath sets the stored media reference for a recipe.
func (r *recipeRepository) UpdateImagePath(ctx context.Context, recipeID int64, path string) error {
	query := `UPDATE recipes SET image_path = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, path, time.Now().UTC().Format(time.RFC3339), recipeID)
	if err != nil {
		return fmt.Errorf("failed to update recipe image: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
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
	ids := make([]interface{}, 0, len(recipes))
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
			WHERE l.recipe_id IN (%s)
			ORDER BY c.name DESC`,
			linkTable, table, linkCol, placeholders(len(ids)),
		)

		rows, err := r.db.QueryContext(ctx, query, ids...)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", linkTable, err)
		}
		defer rows.Close()

		for rows.Next() {
			var recipeID int64
			item := &domain.CatalogItem{}
			var createdAt string
			if err := rows.Scan(&recipeID, &item.ID, &item.UserID, &item.Name, &createdAt); err != nil {
				return fmt.Errorf("failed to scan %s: %w", linkTable, err)
			}
			item.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
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

func (r *recipeRepository) scanRecipe(row rowScanner) (*domain.Recipe, error) {
	recipe := &domain.Recipe{}
	var priceCents int64
	var createdAt, updatedAt string

	err := row.Scan(
		&recipe.ID,
		&recipe.UserID,
		&recipe.Title,
		&recipe.Description,
		&recipe.TimeMinutes,
		&priceCents,
		&recipe.Link,
		&recipe.ImagePath,
		&createdAt,
		&updatedAt,
	)

	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrRecipeNotFound
		}
		return nil, fmt.Errorf("failed to scan recipe: %w", err)
	}

	recipe.Price = domain.Price(priceCents)
	recipe.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	recipe.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return recipe, nil
}

// placeholders returns n comma-separated "?" markers.
func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// Ensure recipeRepository implements repository.RecipeRepository.
var _ repository.RecipeRepository = (*recipeRepository)(nil)
