package domain

import "time"

// CatalogKind distinguishes the two catalog entity kinds.
// Tags and ingredients share one shape and one reconciliation algorithm;
// they differ only in which table and link table back them.
type CatalogKind string

const (
	// KindTag identifies the tag catalog.
	KindTag CatalogKind = "tag"

	// KindIngredient identifies the ingredient catalog.
	KindIngredient CatalogKind = "ingredient"
)

// CatalogItem is a user-scoped named record: a tag or an ingredient.
// Names are unique per owner within a kind.
type CatalogItem struct {
	// ID is the unique identifier (auto-generated).
	ID int64 `json:"id"`

	// UserID is the owning user. Catalog items are never shared across users;
	// same-named items owned by different users are independent records.
	UserID int64 `json:"-"`

	// Name is the display name. Constraints: 1-255 characters.
	Name string `json:"name"`

	// CreatedAt is the timestamp when the item was created.
	CreatedAt time.Time `json:"-"`
}

// NewCatalogItem creates a catalog item owned by the given user.
func NewCatalogItem(userID int64, name string) *CatalogItem {
	return &CatalogItem{
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
}

// ValidateCatalogName checks a tag/ingredient name.
func ValidateCatalogName(name string) error {
	if len(name) == 0 || len(name) > 255 {
		return ErrInvalidCatalogName
	}
	return nil
}
