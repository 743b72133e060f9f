package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Recipe is the central aggregate: a recipe record plus its associated
// tag and ingredient sets.
type Recipe struct {
	// ID is the unique identifier (auto-generated).
	ID int64 `json:"id"`

	// UserID is the owning user. The owner is fixed at creation time;
	// update payloads naming a different owner are ignored.
	UserID int64 `json:"-"`

	// Title is the recipe title. Required, 1-255 characters.
	Title string `json:"title"`

	// Description is free-form text, only included in the detail view.
	Description string `json:"description,omitempty"`

	// TimeMinutes is the preparation time. Must be non-negative.
	TimeMinutes int `json:"time_minutes"`

	// Price is the estimated cost, fixed-point with two decimal places.
	Price Price `json:"price"`

	// Link is an optional external URL.
	Link string `json:"link"`

	// ImagePath is the media store reference for the uploaded image, if any.
	ImagePath string `json:"image,omitempty"`

	// Tags is the set of associated tags.
	Tags []*CatalogItem `json:"tags"`

	// Ingredients is the set of associated ingredients.
	Ingredients []*CatalogItem `json:"ingredients"`

	// CreatedAt is the timestamp when the recipe was created.
	CreatedAt time.Time `json:"-"`

	// UpdatedAt is the timestamp when the recipe was last updated.
	UpdatedAt time.Time `json:"-"`
}

// NewRecipe creates a recipe owned by userID with empty relation sets.
func NewRecipe(userID int64, title string, timeMinutes int, price Price) *Recipe {
	now := time.Now().UTC()
	return &Recipe{
		UserID:      userID,
		Title:       title,
		TimeMinutes: timeMinutes,
		Price:       price,
		Tags:        []*CatalogItem{},
		Ingredients: []*CatalogItem{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate checks the required recipe fields.
func (r *Recipe) Validate() error {
	if len(r.Title) == 0 || len(r.Title) > 255 {
		return ErrInvalidRecipeTitle
	}
	if r.TimeMinutes < 0 {
		return ErrInvalidRecipeTime
	}
	if r.Price < 0 {
		return ErrInvalidRecipePrice
	}
	return nil
}

// Price is a fixed-point money amount stored as hundredths (cents).
// It marshals to a two-decimal JSON string ("5.25") and accepts either a
// JSON string or a JSON number on input.
type Price int64

// ParsePrice parses a decimal string such as "5.25" into a Price.
// At most two fractional digits are accepted.
func ParsePrice(s string) (Price, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidRecipePrice
	}

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	intPart := s
	fracPart := ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		intPart = s[:dot]
		fracPart = s[dot+1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > 2 {
		return 0, ErrInvalidRecipePrice
	}
	for len(fracPart) < 2 {
		fracPart += "0"
	}

	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidRecipePrice
	}
	frac, err := strconv.ParseInt(fracPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidRecipePrice
	}

	cents := whole*100 + frac
	if neg {
		cents = -cents
	}
	return Price(cents), nil
}

// String formats the price with two decimal places.
func (p Price) String() string {
	cents := int64(p)
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// MarshalJSON encodes the price as a decimal string.
func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(p.String())), nil
}

// UnmarshalJSON accepts "5.25", 5.25, or 5.
func (p *Price) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	parsed, err := ParsePrice(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
