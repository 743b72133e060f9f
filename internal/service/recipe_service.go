package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"github.com/galley-app/galley/internal/domain"
	"github.com/galley-app/galley/internal/lock"
	"github.com/galley-app/galley/internal/repository"
	"github.com/galley-app/galley/internal/storage"
)

// imageLockTTL bounds how long an upload may hold a recipe's image lock.
const imageLockTTL = 30 * time.Second

// RecipeService handles recipe operations including nested tag and
// ingredient reconciliation and image uploads.
type RecipeService struct {
	recipeRepo     repository.RecipeRepository
	tagRepo        repository.CatalogRepository
	ingredientRepo repository.CatalogRepository
	tx             repository.TxManager
	locker         lock.Locker
	media          storage.MediaStore
	logger         zerolog.Logger
}

// NewRecipeService creates a new RecipeService.
func NewRecipeService(
	recipeRepo repository.RecipeRepository,
	tagRepo repository.CatalogRepository,
	ingredientRepo repository.CatalogRepository,
	tx repository.TxManager,
	locker lock.Locker,
	media storage.MediaStore,
	logger zerolog.Logger,
) *RecipeService {
	return &RecipeService{
		recipeRepo:     recipeRepo,
		tagRepo:        tagRepo,
		ingredientRepo: ingredientRepo,
		tx:             tx,
		locker:         locker,
		media:          media,
		logger:         logger.With().Str("service", "recipe").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// CreateRecipeInput contains the data needed to create a recipe.
// Tag and ingredient names are reconciled against the owner's catalogs:
// existing names are reused, new names create items.
type CreateRecipeInput struct {
	UserID      int64
	Title       string
	Description string
	TimeMinutes int
	Price       domain.Price
	Link        string
	Tags        []string
	Ingredients []string
}

// UpdateRecipeInput contains a partial update for a recipe.
// Nil pointers leave the corresponding field untouched; a pointer to an
// empty slice clears the relation set.
type UpdateRecipeInput struct {
	UserID      int64
	RecipeID    int64
	Title       *string
	Description *string
	TimeMinutes *int
	Price       *domain.Price
	Link        *string
	Tags        *[]string
	Ingredients *[]string
}

// ListRecipesInput contains the data needed to list recipes.
type ListRecipesInput struct {
	UserID        int64
	TagIDs        []int64
	IngredientIDs []int64
}

// ListRecipesOutput contains the listed recipes.
type ListRecipesOutput struct {
	Recipes []*domain.Recipe
}

// UploadImageInput contains the data needed to attach an image.
type UploadImageInput struct {
	UserID   int64
	RecipeID int64
	Filename string
	Data     []byte
}

// =============================================================================
// Service Methods
// =============================================================================

// Create creates a recipe together with its tag and ingredient links.
// The recipe row, any newly named catalog items, and the links commit as
// one transaction.
func (s *RecipeService) Create(ctx context.Context, input CreateRecipeInput) (*domain.Recipe, error) {
	recipe := domain.NewRecipe(input.UserID, input.Title, input.TimeMinutes, input.Price)
	recipe.Description = input.Description
	recipe.Link = input.Link

	if err := recipe.Validate(); err != nil {
		return nil, err
	}
	if err := validateNames(input.Tags); err != nil {
		return nil, err
	}
	if err := validateNames(input.Ingredients); err != nil {
		return nil, err
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.recipeRepo.Create(ctx, recipe); err != nil {
			return err
		}
		if err := s.reconcile(ctx, s.tagRepo, recipe, input.Tags, s.recipeRepo.SetTags); err != nil {
			return err
		}
		return s.reconcile(ctx, s.ingredientRepo, recipe, input.Ingredients, s.recipeRepo.SetIngredients)
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", input.UserID).Msg("failed to create recipe")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("recipe_id", recipe.ID).
		Int64("user_id", input.UserID).
		Msg("recipe created")

	return s.Get(ctx, input.UserID, recipe.ID)
}

// Get returns a recipe by ID, scoped to the owner. Recipes owned by other
// users are indistinguishable from missing ones.
func (s *RecipeService) Get(ctx context.Context, userID, recipeID int64) (*domain.Recipe, error) {
	recipe, err := s.recipeRepo.GetByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, domain.ErrRecipeNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Int64("recipe_id", recipeID).Msg("failed to get recipe")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if recipe.UserID != userID {
		// Masked so the ID's existence doesn't leak across accounts.
		return nil, domain.ErrRecipeNotFound
	}

	return recipe, nil
}

// List returns the owner's recipes, newest first, applying the optional
// tag and ingredient filters.
func (s *RecipeService) List(ctx context.Context, input ListRecipesInput) (*ListRecipesOutput, error) {
	recipes, err := s.recipeRepo.List(ctx, input.UserID, repository.RecipeListOptions{
		TagIDs:        input.TagIDs,
		IngredientIDs: input.IngredientIDs,
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", input.UserID).Msg("failed to list recipes")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if recipes == nil {
		recipes = []*domain.Recipe{}
	}

	return &ListRecipesOutput{Recipes: recipes}, nil
}

// Update applies a partial update. Scalar fields overwrite when present;
// relation sets are replaced only when the caller sent them, so an omitted
// field leaves existing links alone while an empty list clears them.
// The owner never changes.
func (s *RecipeService) Update(ctx context.Context, input UpdateRecipeInput) (*domain.Recipe, error) {
	recipe, err := s.Get(ctx, input.UserID, input.RecipeID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		recipe.Title = *input.Title
	}
	if input.Description != nil {
		recipe.Description = *input.Description
	}
	if input.TimeMinutes != nil {
		recipe.TimeMinutes = *input.TimeMinutes
	}
	if input.Price != nil {
		recipe.Price = *input.Price
	}
	if input.Link != nil {
		recipe.Link = *input.Link
	}

	if err := recipe.Validate(); err != nil {
		return nil, err
	}
	if input.Tags != nil {
		if err := validateNames(*input.Tags); err != nil {
			return nil, err
		}
	}
	if input.Ingredients != nil {
		if err := validateNames(*input.Ingredients); err != nil {
			return nil, err
		}
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.recipeRepo.Update(ctx, recipe); err != nil {
			return err
		}
		if input.Tags != nil {
			if err := s.reconcile(ctx, s.tagRepo, recipe, *input.Tags, s.recipeRepo.SetTags); err != nil {
				return err
			}
		}
		if input.Ingredients != nil {
			if err := s.reconcile(ctx, s.ingredientRepo, recipe, *input.Ingredients, s.recipeRepo.SetIngredients); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrRecipeNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Int64("recipe_id", recipe.ID).Msg("failed to update recipe")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return s.Get(ctx, input.UserID, input.RecipeID)
}

// Delete removes a recipe, its relation links, and its stored image.
func (s *RecipeService) Delete(ctx context.Context, userID, recipeID int64) error {
	recipe, err := s.Get(ctx, userID, recipeID)
	if err != nil {
		return err
	}

	if err := s.recipeRepo.Delete(ctx, recipeID); err != nil {
		if errors.Is(err, domain.ErrRecipeNotFound) {
			return err
		}
		s.logger.Error().Err(err).Int64("recipe_id", recipeID).Msg("failed to delete recipe")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	// The DB row is gone; a leaked media object is the lesser harm.
	if recipe.ImagePath != "" {
		if err := s.media.Delete(ctx, recipe.ImagePath); err != nil && !storage.IsNotFound(err) {
			s.logger.Warn().Err(err).Str("key", recipe.ImagePath).Msg("failed to delete recipe image")
		}
	}

	s.logger.Info().
		Int64("recipe_id", recipeID).
		Int64("user_id", userID).
		Msg("recipe deleted")

	return nil
}

// UploadImage validates and stores a recipe image, replacing any previous
// one. A per-recipe lock keeps concurrent uploads from clobbering each
// other's stored objects.
func (s *RecipeService) UploadImage(ctx context.Context, input UploadImageInput) (*domain.Recipe, error) {
	recipe, err := s.Get(ctx, input.UserID, input.RecipeID)
	if err != nil {
		return nil, err
	}

	// Decode up front; a payload that isn't an image never reaches storage.
	if _, err := imaging.Decode(bytes.NewReader(input.Data)); err != nil {
		return nil, domain.ErrNotAnImage
	}

	lockKey := lock.Keys.RecipeImage(recipe.ID)
	acquired, err := s.locker.AcquireWithRetry(ctx, lockKey, imageLockTTL, 3, 200*time.Millisecond)
	if err != nil {
		s.logger.Error().Err(err).Int64("recipe_id", recipe.ID).Msg("failed to acquire image lock")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: concurrent image upload in progress", ErrInternalError)
	}
	defer func() {
		if _, err := s.locker.Release(ctx, lockKey); err != nil {
			s.logger.Warn().Err(err).Int64("recipe_id", recipe.ID).Msg("failed to release image lock")
		}
	}()

	key := storage.RecipeImageKey(input.Filename)
	contentType := http.DetectContentType(input.Data)
	if err := s.media.Save(ctx, key, bytes.NewReader(input.Data), int64(len(input.Data)), contentType); err != nil {
		s.logger.Error().Err(err).Int64("recipe_id", recipe.ID).Msg("failed to store image")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if err := s.recipeRepo.UpdateImagePath(ctx, recipe.ID, key); err != nil {
		// Roll the orphaned object back before reporting failure.
		_ = s.media.Delete(ctx, key)
		s.logger.Error().Err(err).Int64("recipe_id", recipe.ID).Msg("failed to record image path")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if recipe.ImagePath != "" && recipe.ImagePath != key {
		if err := s.media.Delete(ctx, recipe.ImagePath); err != nil && !storage.IsNotFound(err) {
			s.logger.Warn().Err(err).Str("key", recipe.ImagePath).Msg("failed to delete replaced image")
		}
	}

	s.logger.Info().
		Int64("recipe_id", recipe.ID).
		Str("key", key).
		Msg("recipe image uploaded")

	return s.Get(ctx, input.UserID, input.RecipeID)
}

// OpenImage streams a recipe's stored image.
func (s *RecipeService) OpenImage(ctx context.Context, userID, recipeID int64) (io.ReadCloser, *storage.MediaInfo, error) {
	recipe, err := s.Get(ctx, userID, recipeID)
	if err != nil {
		return nil, nil, err
	}
	if recipe.ImagePath == "" {
		return nil, nil, domain.ErrMediaNotFound
	}

	rc, info, err := s.media.Open(ctx, recipe.ImagePath)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, nil, domain.ErrMediaNotFound
		}
		s.logger.Error().Err(err).Str("key", recipe.ImagePath).Msg("failed to open image")
		return nil, nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return rc, info, nil
}

// =============================================================================
// Helpers
// =============================================================================

// reconcile resolves names to catalog items under the recipe's owner and
// replaces the recipe's link set. Runs inside the caller's transaction.
func (s *RecipeService) reconcile(
	ctx context.Context,
	repo repository.CatalogRepository,
	recipe *domain.Recipe,
	names []string,
	setLinks func(ctx context.Context, recipeID int64, ids []int64) error,
) error {
	ids := make([]int64, 0, len(names))
	seen := make(map[string]bool, len(names))

	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		item, err := repo.GetOrCreate(ctx, recipe.UserID, name)
		if err != nil {
			return fmt.Errorf("failed to reconcile %s %q: %w", repo.Kind(), name, err)
		}
		ids = append(ids, item.ID)
	}

	return setLinks(ctx, recipe.ID, ids)
}

// validateNames checks every submitted catalog name before any writes.
func validateNames(names []string) error {
	for _, name := range names {
		if err := domain.ValidateCatalogName(name); err != nil {
			return err
		}
	}
	return nil
}
