package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/galley-app/galley/internal/auth"
	"github.com/galley-app/galley/internal/domain"
	"github.com/galley-app/galley/internal/service"
)

// CatalogHandler serves tag or ingredient routes. One instance exists per
// kind; the routes and payloads are identical.
type CatalogHandler struct {
	svc    *service.CatalogService
	logger zerolog.Logger
}

// NewCatalogHandler creates a catalog handler for the service's kind.
func NewCatalogHandler(svc *service.CatalogService, logger zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{
		svc:    svc,
		logger: logger.With().Str("handler", string(svc.Kind())).Logger(),
	}
}

// RegisterRoutes registers the CRUD routes. Callers mount this under the
// kind's path prefix; all routes assume an authenticated request.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Put("/", h.handleRename)
		r.Patch("/", h.handleRename)
		r.Delete("/", h.handleDelete)
	})
}

// catalogItemResponse is the public representation of a tag or ingredient.
type catalogItemResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func toCatalogResponse(item *domain.CatalogItem) catalogItemResponse {
	return catalogItemResponse{ID: item.ID, Name: item.Name}
}

func toCatalogResponses(items []*domain.CatalogItem) []catalogItemResponse {
	out := make([]catalogItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toCatalogResponse(item))
	}
	return out
}

type catalogItemRequest struct {
	Name string `json:"name"`
}

func (h *CatalogHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "authentication required")
		return
	}

	assignedOnly := r.URL.Query().Get("assigned_only") == "1"

	out, err := h.svc.List(r.Context(), service.ListCatalogInput{
		UserID:       ac.UserID(),
		AssignedOnly: assignedOnly,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCatalogResponses(out.Items))
}

func (h *CatalogHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req catalogItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}

	item, err := h.svc.Create(r.Context(), service.CreateCatalogItemInput{
		UserID: ac.UserID(),
		Name:   req.Name,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCatalogResponse(item))
}

func (h *CatalogHandler) handleGet(w http.ResponseWriter, r *http.Request) {
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

	item, err := h.svc.Get(r.Context(), ac.UserID(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCatalogResponse(item))
}

func (h *CatalogHandler) handleRename(w http.ResponseWriter, r *http.Request) {
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

	var req catalogItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}

	item, err := h.svc.Rename(r.Context(), service.RenameCatalogItemInput{
		UserID: ac.UserID(),
		ID:     id,
		Name:   req.Name,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCatalogResponse(item))
}

func (h *CatalogHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.svc.Delete(r.Context(), service.DeleteCatalogItemInput{
		UserID: ac.UserID(),
		ID:     id,
	}); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseID reads the {id} route parameter. A non-numeric ID maps to 404,
// matching how absent resources are reported.
func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
