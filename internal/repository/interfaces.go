// Package repository defines data access interfaces for Galley.
// These interfaces abstract database operations, allowing for different
// implementations (PostgreSQL, SQLite, in-memory for testing) while keeping
// the service layer clean.
package repository

import (
	"context"

	"github.com/galley-app/galley/internal/domain"
)

// =============================================================================
// User Repository
// =============================================================================

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create creates a new user.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByEmail retrieves a user by normalized email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update updates an existing user.
	Update(ctx context.Context, user *domain.User) error

	// Delete deletes a user by ID.
	Delete(ctx context.Context, id int64) error

	// List returns all users with pagination.
	List(ctx context.Context, opts ListOptions) (*ListResult[domain.User], error)

	// ExistsByEmail checks if a user with the given email exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// =============================================================================
// Token Repository
// =============================================================================

// TokenRepository defines the interface for auth token data access.
// Tokens are stored by digest only; the plaintext key never reaches storage.
type TokenRepository interface {
	// Create persists a new token.
	Create(ctx context.Context, token *domain.Token) error

	// GetByDigest retrieves a token by its key digest.
	GetByDigest(ctx context.Context, digest string) (*domain.Token, error)

	// DeleteByDigest deletes a single token (logout).
	DeleteByDigest(ctx context.Context, digest string) error

	// DeleteByUserID deletes all tokens for a user (revocation).
	// Returns the number of tokens deleted.
	DeleteByUserID(ctx context.Context, userID int64) (int64, error)

	// DeleteExpired deletes all expired tokens.
	// Returns the number of tokens deleted.
	DeleteExpired(ctx context.Context) (int64, error)
}

// =============================================================================
// Catalog Repository (tags and ingredients)
// =============================================================================

// CatalogRepository defines the interface for tag and ingredient data access.
// One instance exists per kind; both are backed by the same implementation
// pointed at different tables, which is what lets recipe reconciliation treat
// tags and ingredients uniformly.
type CatalogRepository interface {
	// Kind reports which catalog this repository serves.
	Kind() domain.CatalogKind

	// Create creates a new catalog item.
	// Returns domain.ErrCatalogItemExists on an (owner, name) collision.
	Create(ctx context.Context, item *domain.CatalogItem) error

	// GetByID retrieves an item by ID, scoped to the owner.
	GetByID(ctx context.Context, userID, id int64) (*domain.CatalogItem, error)

	// GetByName retrieves an item by name, scoped to the owner.
	GetByName(ctx context.Context, userID int64, name string) (*domain.CatalogItem, error)

	// GetOrCreate resolves a name to an item, creating it if absent.
	// The insert-or-ignore-then-select sequence is safe under the
	// (owner, name) uniqueness constraint: concurrent callers converge on
	// a single row.
	GetOrCreate(ctx context.Context, userID int64, name string) (*domain.CatalogItem, error)

	// ListByUser returns the owner's items, reverse alphabetical by name.
	ListByUser(ctx context.Context, userID int64, opts CatalogListOptions) ([]*domain.CatalogItem, error)

	// Rename updates an item's name, scoped to the owner.
	Rename(ctx context.Context, userID, id int64, name string) error

	// Delete removes an item and its recipe associations, scoped to the owner.
	Delete(ctx context.Context, userID, id int64) error
}

// CatalogListOptions contains options for listing catalog items.
type CatalogListOptions struct {
	// AssignedOnly restricts the result to items linked to at least one
	// recipe. Items linked to several recipes appear once.
	AssignedOnly bool
}

// =============================================================================
// Recipe Repository
// =============================================================================

// RecipeRepository defines the interface for recipe data access.
type RecipeRepository interface {
	// Create inserts a new recipe row. Relation links are written separately
	// via SetTags/SetIngredients within the same transaction.
	Create(ctx context.Context, recipe *domain.Recipe) error

	// GetByID retrieves a recipe with its tag and ingredient sets.
	// Lookup is by ID alone; ownership is enforced by the service so the
	// not-owned case stays distinguishable internally.
	GetByID(ctx context.Context, id int64) (*domain.Recipe, error)

	// List returns the owner's recipes, newest-ID first, with relations
	// loaded, applying the optional filters.
	List(ctx context.Context, userID int64, opts RecipeListOptions) ([]*domain.Recipe, error)

	// Update updates the recipe row (not its relation links).
	Update(ctx context.Context, recipe *domain.Recipe) error

	// Delete removes a recipe and its relation links.
	Delete(ctx context.Context, id int64) error

	// SetTags replaces the recipe's tag links with the given IDs.
	// An empty slice clears all links.
	SetTags(ctx context.Context, recipeID int64, tagIDs []int64) error

	// SetIngredients replaces the recipe's ingredient links with the given IDs.
	SetIngredients(ctx context.Context, recipeID int64, ingredientIDs []int64) error

	// UpdateImagePath sets the stored media reference for a recipe.
	UpdateImagePath(ctx context.Context, recipeID int64, path string) error
}

// RecipeListOptions contains options for listing recipes.
// Within one dimension the IDs combine with OR; across dimensions with AND.
type RecipeListOptions struct {
	// TagIDs restricts to recipes linked to at least one of these tags.
	TagIDs []int64

	// IngredientIDs restricts to recipes linked to at least one of these
	// ingredients.
	IngredientIDs []int64
}

// =============================================================================
// Common Types
// =============================================================================

// ListOptions contains common pagination options.
type ListOptions struct {
	// Offset is the number of records to skip.
	Offset int

	// Limit is the maximum number of records to return.
	Limit int
}

// ListResult is a generic paginated list result.
type ListResult[T any] struct {
	// Items is the list of items.
	Items []*T

	// Total is the total number of items (without pagination).
	Total int64

	// Offset is the current offset.
	Offset int

	// Limit is the current limit.
	Limit int
}

// =============================================================================
// Transaction Support
// =============================================================================

// TxManager defines the interface for transaction management.
// Repositories created from the same database observe the transaction through
// the context, so a recipe write and its catalog reconciliation commit as one
// unit.
type TxManager interface {
	// WithTx executes the given function within a transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
