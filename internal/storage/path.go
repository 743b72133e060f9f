package storage

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

// recipeImagePrefix is where recipe images live inside a media store.
const recipeImagePrefix = "uploads/recipe"

// RecipeImageKey generates a fresh storage key for a recipe image.
// The original filename only contributes its extension; the name itself is
// a random UUID so uploads never collide or leak client filenames.
//
// Example: "uploads/recipe/0a93f3c2-7e51-4a7e-9b5f-3d1c8f2ab910.jpg"
func RecipeImageKey(originalFilename string) string {
	ext := strings.ToLower(path.Ext(originalFilename))
	return path.Join(recipeImagePrefix, uuid.NewString()+ext)
}
