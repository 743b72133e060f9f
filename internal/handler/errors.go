// Package handler provides the HTTP layer for the Galley API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/galley-app/galley/internal/domain"
	"github.com/galley-app/galley/internal/service"
)

// errorBody is the JSON error envelope. Validation errors carry per-field
// messages; everything else uses detail.
type errorBody struct {
	Detail string              `json:"detail,omitempty"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeDetail writes a detail-only error response.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

// writeFieldError writes a single-field validation error.
func writeFieldError(w http.ResponseWriter, field, message string) {
	writeJSON(w, http.StatusBadRequest, errorBody{
		Fields: map[string][]string{field: {message}},
	})
}

// writeServiceError maps domain and service errors to HTTP responses.
// Not-found covers both absent and foreign-owned resources so ownership
// never leaks through status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrRecipeNotFound),
		errors.Is(err, domain.ErrCatalogItemNotFound),
		errors.Is(err, domain.ErrMediaNotFound):
		writeDetail(w, http.StatusNotFound, "not found")

	case errors.Is(err, domain.ErrInvalidCredentials):
		writeDetail(w, http.StatusBadRequest, "unable to authenticate with provided credentials")

	case errors.Is(err, domain.ErrUserAlreadyExists):
		writeFieldError(w, "email", "user with this email already exists")

	case errors.Is(err, domain.ErrEmailRequired),
		errors.Is(err, service.ErrInvalidEmail):
		writeFieldError(w, "email", "enter a valid email address")

	case errors.Is(err, service.ErrInvalidPassword):
		// The service wraps the sentinel with the configured minimum length.
		writeFieldError(w, "password", err.Error())

	case errors.Is(err, domain.ErrInvalidCatalogName),
		errors.Is(err, domain.ErrCatalogItemExists):
		writeFieldError(w, "name", err.Error())

	case errors.Is(err, domain.ErrInvalidRecipeTitle):
		writeFieldError(w, "title", "title is required and must be at most 255 characters")

	case errors.Is(err, domain.ErrInvalidRecipeTime):
		writeFieldError(w, "time_minutes", "time must not be negative")

	case errors.Is(err, domain.ErrInvalidRecipePrice):
		writeFieldError(w, "price", "enter a valid price with at most two decimal places")

	case errors.Is(err, domain.ErrNotAnImage):
		writeFieldError(w, "image", "upload a valid image")

	default:
		writeDetail(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON parses the request body into dst.
func decodeJSON(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// writeInvalidJSON reports an unparseable request body.
func writeInvalidJSON(w http.ResponseWriter) {
	writeDetail(w, http.StatusBadRequest, "invalid JSON body")
}
