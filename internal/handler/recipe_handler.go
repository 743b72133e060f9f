package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/galley-app/galley/internal/auth"
	"github.com/galley-app/galley/internal/domain"
	"github.com/galley-app/galley/internal/metrics"
	"github.com/galley-app/galley/internal/service"
)

// RecipeHandler handles recipe CRUD and image uploads.
type RecipeHandler struct {
	svc           *service.RecipeService
	metrics       *metrics.Metrics
	maxUploadSize int64
	logger        zerolog.Logger
}

// RecipeHandlerConfig contains configuration for the recipe handler.
type RecipeHandlerConfig struct {
	Service       *service.RecipeService
	Metrics       *metrics.Metrics
	MaxUploadSize int64
	Logger        zerolog.Logger
}

// NewRecipeHandler creates a new recipe handler.
func NewRecipeHandler(cfg RecipeHandlerConfig) *RecipeHandler {
	return &RecipeHandler{
		svc:           cfg.Service,
		metrics:       cfg.Metrics,
		maxUploadSize: cfg.MaxUploadSize,
		logger:        cfg.Logger.With().Str("handler", "recipe").Logger(),
	}
}

// RegisterRoutes registers the recipe routes. All routes assume an
// authenticated request.
func (h *RecipeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Put("/", h.handleUpdate)
		r.Patch("/", h.handleUpdate)
		r.Delete("/", h.handleDelete)
		r.Post("/upload-image", h.handleUploadImage)
		r.Get("/image", h.handleImage)
	})
}

// =============================================================================
// Payloads
// =============================================================================

// namedItem is the nested payload shape for tags and ingredients.
type namedItem struct {
	Name string `json:"name"`
}

func itemNames(items []namedItem) []string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}
	return names
}

// recipePayload covers both create and update bodies. Pointers distinguish
// omitted fields from zero values; for the relation sets an omitted field
// leaves links untouched while an empty list clears them.
type recipePayload struct {
	Title       *string       `json:"title"`
	Description *string       `json:"description"`
	TimeMinutes *int          `json:"time_minutes"`
	Price       *domain.Price `json:"price"`
	Link        *string       `json:"link"`
	Tags        *[]namedItem  `json:"tags"`
	Ingredients *[]namedItem  `json:"ingredients"`
}

// requireAll reports the first required field missing from a full payload.
func (p *recipePayload) requireAll() (string, bool) {
	switch {
	case p.Title == nil:
		return "title", false
	case p.TimeMinutes == nil:
		return "time_minutes", false
	case p.Price == nil:
		return "price", false
	}
	return "", true
}

// recipeListItem is the list serialization. Description and image are
// detail-only fields.
type recipeListItem struct {
	ID          int64                 `json:"id"`
	Title       string                `json:"title"`
	TimeMinutes int                   `json:"time_minutes"`
	Price       domain.Price          `json:"price"`
	Link        string                `json:"link"`
	Tags        []catalogItemResponse `json:"tags"`
	Ingredients []catalogItemResponse `json:"ingredients"`
}

// recipeDetail is the detail serialization.
type recipeDetail struct {
	recipeListItem
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
}

func toRecipeListItem(rec *domain.Recipe) recipeListItem {
	return recipeListItem{
		ID:          rec.ID,
		Title:       rec.Title,
		TimeMinutes: rec.TimeMinutes,
		Price:       rec.Price,
		Link:        rec.Link,
		Tags:        toCatalogResponses(rec.Tags),
		Ingredients: toCatalogResponses(rec.Ingredients),
	}
}

func toRecipeDetail(rec *domain.Recipe) recipeDetail {
	return recipeDetail{
		recipeListItem: toRecipeListItem(rec),
		Description:    rec.Description,
		Image:          rec.ImagePath,
	}
}

// =============================================================================
// Handlers
// =============================================================================

func (h *RecipeHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "authentication required")
		return
	}

	tagIDs, err := parseIDList(r.URL.Query().Get("tags"))
	if err != nil {
		writeFieldError(w, "tags", "enter comma-separated numeric ids")
		return
	}
	ingredientIDs, err := parseIDList(r.URL.Query().Get("ingredients"))
	if err != nil {
		writeFieldError(w, "ingredients", "enter comma-separated numeric ids")
		return
	}

	out, err := h.svc.List(r.Context(), service.ListRecipesInput{
		UserID:        ac.UserID(),
		TagIDs:        tagIDs,
		IngredientIDs: ingredientIDs,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	items := make([]recipeListItem, 0, len(out.Recipes))
	for _, rec := range out.Recipes {
		items = append(items, toRecipeListItem(rec))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *RecipeHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req recipePayload
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}
	if field, ok := req.requireAll(); !ok {
		writeFieldError(w, field, "this field is required")
		return
	}

	input := service.CreateRecipeInput{
		UserID:      ac.UserID(),
		Title:       *req.Title,
		TimeMinutes: *req.TimeMinutes,
		Price:       *req.Price,
	}
	if req.Description != nil {
		input.Description = *req.Description
	}
	if req.Link != nil {
		input.Link = *req.Link
	}
	if req.Tags != nil {
		input.Tags = itemNames(*req.Tags)
	}
	if req.Ingredients != nil {
		input.Ingredients = itemNames(*req.Ingredients)
	}

	rec, err := h.svc.Create(r.Context(), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecipesCreatedTotal.Inc()
	}

	writeJSON(w, http.StatusCreated, toRecipeDetail(rec))
}

func (h *RecipeHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := parseID(r)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "not found")
		return
	}

	rec, err := h.svc.Get(r.Context(), ac.UserID(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRecipeDetail(rec))
}

func (h *RecipeHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := parseID(r)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "not found")
		return
	}

	var req recipePayload
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}
	if r.Method == http.MethodPut {
		if field, ok := req.requireAll(); !ok {
			writeFieldError(w, field, "this field is required")
			return
		}
	}

	input := service.UpdateRecipeInput{
		UserID:      ac.UserID(),
		RecipeID:    id,
		Title:       req.Title,
		Description: req.Description,
		TimeMinutes: req.TimeMinutes,
		Price:       req.Price,
		Link:        req.Link,
	}
	if req.Tags != nil {
		names := itemNames(*req.Tags)
		input.Tags = &names
	}
	if req.Ingredients != nil {
		names := itemNames(*req.Ingredients)
		input.Ingredients = &names
	}

	rec, err := h.svc.Update(r.Context(), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRecipeDetail(rec))
}

func (h *RecipeHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := parseID(r)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "not found")
		return
	}

	if err := h.svc.Delete(r.Context(), ac.UserID(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *RecipeHandler) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := parseID(r)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "not found")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		writeFieldError(w, "image", "upload a valid image")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeFieldError(w, "image", "no image was submitted")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeFieldError(w, "image", "upload a valid image")
		return
	}

	rec, err := h.svc.UploadImage(r.Context(), service.UploadImageInput{
		UserID:   ac.UserID(),
		RecipeID: id,
		Filename: header.Filename,
		Data:     data,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordImageUpload(int64(len(data)))
	}

	writeJSON(w, http.StatusOK, toRecipeDetail(rec))
}

func (h *RecipeHandler) handleImage(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := parseID(r)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "not found")
		return
	}

	rc, info, err := h.svc.OpenImage(r.Context(), ac.UserID(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer rc.Close()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn().Err(err).Int64("recipe_id", id).Msg("image stream interrupted")
	}
}

// parseIDList parses a comma-separated id list query value.
func parseIDList(value string) ([]int64, error) {
	if value == "" {
		return nil, nil
	}

	parts := strings.Split(value, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
