package httphandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterOptions configures the router.
type RouterOptions struct {
	// CORSOrigins lists the origins allowed to call the API. Empty disables CORS.
	CORSOrigins []string
}

// NewRouter creates the chi router with all middleware and routes.
func NewRouter(h *Handler, opts RouterOptions, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(loggingMiddleware(logger))
	// Recovery inside logging so a recovered panic is logged with its 500.
	router.Use(recoveryMiddleware(logger))

	if len(opts.CORSOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/categories", h.ListCategories)
		r.Post("/password/generate", h.GeneratePassword)
		r.Post("/password/strength", h.PasswordStrength)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/status", h.AuthStatus)
			r.Post("/pin/setup", h.SetupPIN)
			r.Post("/pin/verify", h.VerifyPIN)
			r.Post("/pin/change", h.ChangePIN)
			r.With(requireUnlocked(h.gate, logger)).Post("/pin/reset", h.ResetPIN)
			r.Post("/biometric", h.Biometric)
			r.Post("/logout", h.Logout)
		})

		r.Route("/entries", func(r chi.Router) {
			r.Use(requireUnlocked(h.gate, logger))
			r.Get("/", h.ListEntries)
			r.Post("/", h.CreateEntry)
			r.Get("/{id}", h.GetEntry)
			r.Patch("/{id}", h.UpdateEntry)
			r.Delete("/{id}", h.DeleteEntry)
		})
	})

	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "endpoint not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return router
}
