package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/FACorreiaa/go-signup-auth/docs"
	"github.com/FACorreiaa/go-signup-auth/internal/api/auth"
	"github.com/FACorreiaa/go-signup-auth/internal/api/dashboard"
)

// Config contains dependencies needed for the router setup
type Config struct {
	AuthHandler            auth.Handler
	DashboardHandler       dashboard.Handler
	AuthenticateMiddleware func(http.Handler) http.Handler
	AllowedOrigins         []string
}

// SetupRouter initializes and configures the application routes.
// Server-wide middleware (request id, logger, recoverer) is applied in main
// before this router is mounted.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// public
	r.Group(func(r chi.Router) {
		r.Post("/register", cfg.AuthHandler.Register)
		r.Post("/login", cfg.AuthHandler.Login)
	})

	// bearer token required
	r.Group(func(r chi.Router) {
		r.Use(cfg.AuthenticateMiddleware)
		r.Get("/dashboard", cfg.DashboardHandler.GetDashboard)
	})

	return r
}
