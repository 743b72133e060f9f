package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/rs/zerolog"

	"github.com/galley-app/galley/internal/domain"
	"github.com/galley-app/galley/internal/lock"
)

type recipeTestEnv struct {
	svc         *RecipeService
	recipes     *mockRecipeRepository
	tags        *mockCatalogRepository
	ingredients *mockCatalogRepository
	media       *mockMediaStore
}

func newRecipeTestEnv() *recipeTestEnv {
	tags := newMockCatalogRepository(domain.KindTag)
	ingredients := newMockCatalogRepository(domain.KindIngredient)
	recipes := newMockRecipeRepository(tags, ingredients)
	media := newMockMediaStore()

	svc := NewRecipeService(
		recipes, tags, ingredients,
		mockTxManager{}, lock.NewMemoryLocker(), media,
		zerolog.Nop(),
	)

	return &recipeTestEnv{
		svc:         svc,
		recipes:     recipes,
		tags:        tags,
		ingredients: ingredients,
		media:       media,
	}
}

// pngBytes returns a tiny valid PNG payload.
func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 10, 10))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestRecipeService_Create(t *testing.T) {
	env := newRecipeTestEnv()

	rec, err := env.svc.Create(context.Background(), CreateRecipeInput{
		UserID:      1,
		Title:       "Thai Prawn Curry",
		TimeMinutes: 30,
		Price:       250,
		Tags:        []string{"Thai", "Dinner"},
		Ingredients: []string{"Prawns", "Coconut milk"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.ID == 0 {
		t.Error("recipe ID not assigned")
	}
	if len(rec.Tags) != 2 {
		t.Errorf("expected 2 tags, got %d", len(rec.Tags))
	}
	if len(rec.Ingredients) != 2 {
		t.Errorf("expected 2 ingredients, got %d", len(rec.Ingredients))
	}
	if len(env.tags.items) != 2 {
		t.Errorf("expected 2 tag rows created, got %d", len(env.tags.items))
	}
}

func TestRecipeService_CreateReusesExistingCatalogItems(t *testing.T) {
	env := newRecipeTestEnv()
	existing := &domain.CatalogItem{ID: 42, UserID: 1, Name: "Indian"}
	env.tags.items[42] = existing

	rec, err := env.svc.Create(context.Background(), CreateRecipeInput{
		UserID:      1,
		Title:       "Sample Curry",
		TimeMinutes: 60,
		Price:       1000,
		Tags:        []string{"Indian", "Breakfast"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rec.Tags) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(rec.Tags))
	}
	// One existing row reused, one created; never a duplicate "Indian".
	if len(env.tags.items) != 2 {
		t.Errorf("expected 2 tag rows total, got %d", len(env.tags.items))
	}
	found := false
	for _, tag := range rec.Tags {
		if tag.ID == existing.ID {
			found = true
		}
	}
	if !found {
		t.Error("existing tag not reused")
	}
}

func TestRecipeService_CreateDedupesNames(t *testing.T) {
	env := newRecipeTestEnv()

	rec, err := env.svc.Create(context.Background(), CreateRecipeInput{
		UserID:      1,
		Title:       "Lentil Soup",
		TimeMinutes: 15,
		Price:       300,
		Ingredients: []string{"Lentils", "Lentils", "Salt"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.Ingredients) != 2 {
		t.Errorf("expected duplicate name collapsed to 2 ingredients, got %d", len(rec.Ingredients))
	}
}

func TestRecipeService_CreateValidation(t *testing.T) {
	env := newRecipeTestEnv()

	tests := []struct {
		name    string
		input   CreateRecipeInput
		wantErr error
	}{
		{
			name:    "empty title",
			input:   CreateRecipeInput{UserID: 1, Title: "", TimeMinutes: 5, Price: 100},
			wantErr: domain.ErrInvalidRecipeTitle,
		},
		{
			name:    "negative time",
			input:   CreateRecipeInput{UserID: 1, Title: "X", TimeMinutes: -5, Price: 100},
			wantErr: domain.ErrInvalidRecipeTime,
		},
		{
			name:    "negative price",
			input:   CreateRecipeInput{UserID: 1, Title: "X", TimeMinutes: 5, Price: -100},
			wantErr: domain.ErrInvalidRecipePrice,
		},
		{
			name:    "empty tag name",
			input:   CreateRecipeInput{UserID: 1, Title: "X", TimeMinutes: 5, Price: 100, Tags: []string{""}},
			wantErr: domain.ErrInvalidCatalogName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.svc.Create(context.Background(), tt.input); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	// Nothing persisted by the failed attempts.
	if len(env.recipes.recipes) != 0 {
		t.Errorf("expected no recipes stored, got %d", len(env.recipes.recipes))
	}
}

func TestRecipeService_GetMasksForeignRecipes(t *testing.T) {
	env := newRecipeTestEnv()

	rec, err := env.svc.Create(context.Background(), CreateRecipeInput{
		UserID: 1, Title: "Private Dish", TimeMinutes: 5, Price: 100,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := env.svc.Get(context.Background(), 2, rec.ID); !errors.Is(err, domain.ErrRecipeNotFound) {
		t.Errorf("expected ErrRecipeNotFound for foreign owner, got %v", err)
	}
	if _, err := env.svc.Get(context.Background(), 1, rec.ID); err != nil {
		t.Errorf("owner access failed: %v", err)
	}
}

func TestRecipeService_ListFilters(t *testing.T) {
	env := newRecipeTestEnv()
	ctx := context.Background()

	curry, err := env.svc.Create(ctx, CreateRecipeInput{
		UserID: 1, Title: "Thai Curry", TimeMinutes: 30, Price: 250,
		Tags:        []string{"Thai"},
		Ingredients: []string{"Coconut"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	salad, err := env.svc.Create(ctx, CreateRecipeInput{
		UserID: 1, Title: "Green Salad", TimeMinutes: 10, Price: 150,
		Tags:        []string{"Vegan"},
		Ingredients: []string{"Kale"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.svc.Create(ctx, CreateRecipeInput{
		UserID: 2, Title: "Other Users Dish", TimeMinutes: 5, Price: 100,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Unfiltered: only the owner's recipes, newest first.
	out, err := env.svc.List(ctx, ListRecipesInput{UserID: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out.Recipes) != 2 {
		t.Fatalf("expected 2 recipes, got %d", len(out.Recipes))
	}
	if out.Recipes[0].ID != salad.ID {
		t.Errorf("expected newest recipe first, got %d", out.Recipes[0].ID)
	}

	// Tag filter.
	thaiID := curry.Tags[0].ID
	out, err = env.svc.List(ctx, ListRecipesInput{UserID: 1, TagIDs: []int64{thaiID}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out.Recipes) != 1 || out.Recipes[0].ID != curry.ID {
		t.Errorf("tag filter returned wrong recipes: %+v", out.Recipes)
	}

	// Ingredient filter.
	kaleID := salad.Ingredients[0].ID
	out, err = env.svc.List(ctx, ListRecipesInput{UserID: 1, IngredientIDs: []int64{kaleID}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out.Recipes) != 1 || out.Recipes[0].ID != salad.ID {
		t.Errorf("ingredient filter returned wrong recipes: %+v", out.Recipes)
	}

	// Filters AND across dimensions: no recipe has both.
	out, err = env.svc.List(ctx, ListRecipesInput{
		UserID: 1, TagIDs: []int64{thaiID}, IngredientIDs: []int64{kaleID},
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out.Recipes) != 0 {
		t.Errorf("expected no recipes, got %d", len(out.Recipes))
	}
}

func TestRecipeService_Update(t *testing.T) {
	env := newRecipeTestEnv()
	ctx := context.Background()

	rec, err := env.svc.Create(ctx, CreateRecipeInput{
		UserID: 1, Title: "Original", TimeMinutes: 10, Price: 500,
		Tags: []string{"Lunch"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Omitted relation field leaves links untouched.
	newTitle := "Updated"
	updated, err := env.svc.Update(ctx, UpdateRecipeInput{
		UserID: 1, RecipeID: rec.ID, Title: &newTitle,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Updated" {
		t.Errorf("title not updated: %q", updated.Title)
	}
	if len(updated.Tags) != 1 || updated.Tags[0].Name != "Lunch" {
		t.Errorf("tags changed by scalar update: %+v", updated.Tags)
	}

	// Sending a relation set replaces it.
	newTags := []string{"Dinner"}
	updated, err = env.svc.Update(ctx, UpdateRecipeInput{
		UserID: 1, RecipeID: rec.ID, Tags: &newTags,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updated.Tags) != 1 || updated.Tags[0].Name != "Dinner" {
		t.Errorf("tags not replaced: %+v", updated.Tags)
	}

	// An empty list clears the links but keeps the catalog rows.
	empty := []string{}
	updated, err = env.svc.Update(ctx, UpdateRecipeInput{
		UserID: 1, RecipeID: rec.ID, Tags: &empty,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updated.Tags) != 0 {
		t.Errorf("tags not cleared: %+v", updated.Tags)
	}
	if len(env.tags.items) != 2 {
		t.Errorf("catalog rows deleted by clear, %d remain", len(env.tags.items))
	}

	// Foreign recipes are masked.
	if _, err := env.svc.Update(ctx, UpdateRecipeInput{
		UserID: 2, RecipeID: rec.ID, Title: &newTitle,
	}); !errors.Is(err, domain.ErrRecipeNotFound) {
		t.Errorf("expected ErrRecipeNotFound, got %v", err)
	}
}

func TestRecipeService_Delete(t *testing.T) {
	env := newRecipeTestEnv()
	ctx := context.Background()

	rec, err := env.svc.Create(ctx, CreateRecipeInput{
		UserID: 1, Title: "Doomed", TimeMinutes: 5, Price: 100,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	env.media.objects["uploads/recipe/doomed.jpg"] = []byte("img")
	if err := env.recipes.UpdateImagePath(ctx, rec.ID, "uploads/recipe/doomed.jpg"); err != nil {
		t.Fatalf("set image: %v", err)
	}

	// Foreign delete masked, nothing removed.
	if err := env.svc.Delete(ctx, 2, rec.ID); !errors.Is(err, domain.ErrRecipeNotFound) {
		t.Errorf("expected ErrRecipeNotFound, got %v", err)
	}
	if len(env.recipes.recipes) != 1 {
		t.Fatal("recipe deleted by non-owner")
	}

	if err := env.svc.Delete(ctx, 1, rec.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(env.recipes.recipes) != 0 {
		t.Error("recipe row not deleted")
	}
	if _, ok := env.media.objects["uploads/recipe/doomed.jpg"]; ok {
		t.Error("stored image not deleted with the recipe")
	}
}

func TestRecipeService_UploadImage(t *testing.T) {
	env := newRecipeTestEnv()
	ctx := context.Background()

	rec, err := env.svc.Create(ctx, CreateRecipeInput{
		UserID: 1, Title: "Photogenic", TimeMinutes: 5, Price: 100,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := env.svc.UploadImage(ctx, UploadImageInput{
		UserID:   1,
		RecipeID: rec.ID,
		Filename: "dish.png",
		Data:     pngBytes(t),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if updated.ImagePath == "" {
		t.Fatal("image path not recorded")
	}
	if _, ok := env.media.objects[updated.ImagePath]; !ok {
		t.Error("image bytes not stored")
	}

	// A second upload replaces the stored object.
	first := updated.ImagePath
	updated, err = env.svc.UploadImage(ctx, UploadImageInput{
		UserID:   1,
		RecipeID: rec.ID,
		Filename: "retake.png",
		Data:     pngBytes(t),
	})
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if updated.ImagePath == first {
		t.Error("image path not rotated on re-upload")
	}
	if _, ok := env.media.objects[first]; ok {
		t.Error("previous image not removed")
	}

	// Non-image payloads never reach storage.
	stored := len(env.media.objects)
	if _, err := env.svc.UploadImage(ctx, UploadImageInput{
		UserID:   1,
		RecipeID: rec.ID,
		Filename: "notimage.txt",
		Data:     []byte("definitely not an image"),
	}); !errors.Is(err, domain.ErrNotAnImage) {
		t.Errorf("expected ErrNotAnImage, got %v", err)
	}
	if len(env.media.objects) != stored {
		t.Error("rejected payload reached storage")
	}

	// Foreign recipes are masked.
	if _, err := env.svc.UploadImage(ctx, UploadImageInput{
		UserID:   2,
		RecipeID: rec.ID,
		Filename: "dish.png",
		Data:     pngBytes(t),
	}); !errors.Is(err, domain.ErrRecipeNotFound) {
		t.Errorf("expected ErrRecipeNotFound, got %v", err)
	}
}

func TestRecipeService_OpenImage(t *testing.T) {
	env := newRecipeTestEnv()
	ctx := context.Background()

	rec, err := env.svc.Create(ctx, CreateRecipeInput{
		UserID: 1, Title: "No Photo", TimeMinutes: 5, Price: 100,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, _, err := env.svc.OpenImage(ctx, 1, rec.ID); !errors.Is(err, domain.ErrMediaNotFound) {
		t.Errorf("expected ErrMediaNotFound, got %v", err)
	}

	if _, err := env.svc.UploadImage(ctx, UploadImageInput{
		UserID: 1, RecipeID: rec.ID, Filename: "dish.png", Data: pngBytes(t),
	}); err != nil {
		t.Fatalf("upload: %v", err)
	}

	rc, info, err := env.svc.OpenImage(ctx, 1, rec.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	if info.Size == 0 {
		t.Error("expected media info size")
	}
}
