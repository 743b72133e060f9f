package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/galley-app/galley/internal/auth"
	"github.com/galley-app/galley/internal/domain"
	"github.com/galley-app/galley/internal/metrics"
	"github.com/galley-app/galley/internal/service"
)

// UserHandler handles registration, token issuance, and profile requests.
type UserHandler struct {
	userService  *service.UserService
	tokenService *service.TokenService
	metrics      *metrics.Metrics
	logger       zerolog.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(users *service.UserService, tokens *service.TokenService, m *metrics.Metrics, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		userService:  users,
		tokenService: tokens,
		metrics:      m,
		logger:       logger.With().Str("handler", "user").Logger(),
	}
}

// RegisterRoutes registers user routes. The profile routes require auth.
func (h *UserHandler) RegisterRoutes(r chi.Router, authMW *auth.Middleware) {
	r.Post("/", h.handleRegister)
	r.Post("/token", h.handleToken)
	r.Route("/me", func(r chi.Router) {
		r.Use(authMW.Require)
		r.Get("/", h.handleGetProfile)
		r.Put("/", h.handleUpdateProfile)
		r.Patch("/", h.handleUpdateProfile)
	})
}

// userResponse is the public representation of an account.
type userResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Name: u.Name}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (h *UserHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}

	out, err := h.userService.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(out.User))
}

type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (h *UserHandler) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeDetail(w, http.StatusBadRequest, "email and password are required")
		return
	}

	authOut, err := h.userService.Authenticate(r.Context(), service.AuthenticateInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if h.metrics != nil {
			h.metrics.AuthFailuresTotal.Inc()
		}
		writeServiceError(w, err)
		return
	}

	tokenOut, err := h.tokenService.IssueToken(r.Context(), authOut.User.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.TokensIssuedTotal.Inc()
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: tokenOut.Token})
}

func (h *UserHandler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(ac.User))
}

type updateProfileRequest struct {
	Email    *string `json:"email"`
	Name     *string `json:"name"`
	Password *string `json:"password"`
}

func (h *UserHandler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}

	// PUT replaces the whole profile, so the identifying field must be sent.
	if r.Method == http.MethodPut && req.Email == nil {
		writeFieldError(w, "email", "this field is required")
		return
	}

	out, err := h.userService.UpdateProfile(r.Context(), service.UpdateProfileInput{
		UserID:   ac.UserID(),
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(out.User))
}
