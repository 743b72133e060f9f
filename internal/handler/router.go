package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/galley-app/galley/internal/auth"
	"github.com/galley-app/galley/internal/metrics"
	"github.com/galley-app/galley/internal/repository"
)

// Router assembles the full API handler.
type Router struct {
	userHandler       *UserHandler
	tagHandler        *CatalogHandler
	ingredientHandler *CatalogHandler
	recipeHandler     *RecipeHandler
	authMiddleware    *auth.Middleware
	metrics           *metrics.Metrics
	metricsPath       string
	db                repository.DatabaseHealth
	maxBodySize       int64
	logger            zerolog.Logger
}

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	UserHandler       *UserHandler
	TagHandler        *CatalogHandler
	IngredientHandler *CatalogHandler
	RecipeHandler     *RecipeHandler
	AuthMiddleware    *auth.Middleware
	Metrics           *metrics.Metrics
	MetricsPath       string
	Database          repository.DatabaseHealth
	MaxBodySize       int64
	Logger            zerolog.Logger
}

// NewRouter creates a new Router.
func NewRouter(cfg RouterConfig) *Router {
	return &Router{
		userHandler:       cfg.UserHandler,
		tagHandler:        cfg.TagHandler,
		ingredientHandler: cfg.IngredientHandler,
		recipeHandler:     cfg.RecipeHandler,
		authMiddleware:    cfg.AuthMiddleware,
		metrics:           cfg.Metrics,
		metricsPath:       cfg.MetricsPath,
		db:                cfg.Database,
		maxBodySize:       cfg.MaxBodySize,
		logger:            cfg.Logger.With().Str("component", "router").Logger(),
	}
}

// Handler returns the main HTTP handler.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(rt.requestLogger)
	r.Use(middleware.Recoverer)
	// Trailing slashes are equivalent to their bare forms.
	r.Use(middleware.StripSlashes)
	if rt.maxBodySize > 0 {
		r.Use(rt.limitBody)
	}
	if rt.metrics != nil {
		r.Use(rt.metrics.Middleware)
	}

	r.Get("/health", rt.handleHealth)
	if rt.metrics != nil && rt.metricsPath != "" {
		r.Method(http.MethodGet, rt.metricsPath, rt.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			rt.userHandler.RegisterRoutes(r, rt.authMiddleware)
		})
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Require)
			r.Route("/tags", rt.tagHandler.RegisterRoutes)
			r.Route("/ingredients", rt.ingredientHandler.RegisterRoutes)
			r.Route("/recipes", rt.recipeHandler.RegisterRoutes)
		})
	})

	return r
}

// handleHealth reports service and database health.
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	dbStatus := "ok"
	code := http.StatusOK
	if rt.db != nil {
		if err := rt.db.Health(ctx); err != nil {
			status = "degraded"
			dbStatus = "unreachable"
			code = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, map[string]string{
		"status":   status,
		"database": dbStatus,
	})
}

// requestLogger logs each request with zerolog.
func (rt *Router) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		rt.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

// limitBody caps request body size.
func (rt *Router) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, rt.maxBodySize)
		next.ServeHTTP(w, r)
	})
}
