package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/gestionusuarios/gestion-usuarios/docs"
	"github.com/gestionusuarios/gestion-usuarios/internal/api/auth"
	"github.com/gestionusuarios/gestion-usuarios/internal/api/perfil"
	"github.com/gestionusuarios/gestion-usuarios/internal/api/usuario"
)

// Config contains the handlers and middleware needed for the router setup.
type Config struct {
	AuthHandler            *auth.AuthHandler
	UsuarioHandler         *usuario.UsuarioHandler
	PerfilHandler          *perfil.PerfilHandler
	AuthenticateMiddleware func(http.Handler) http.Handler
	RequireAuthMiddleware  func(http.Handler) http.Handler
}

// SetupRouter wires the full HTTP surface. Server-wide middleware
// (request ID, logging, recoverer) is applied in main before mounting.
// Authenticate runs on every route and only attaches identity;
// RequireAuth gates the protected groups, so /auth/signin is the single
// endpoint reachable without a token.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	r.Use(cfg.AuthenticateMiddleware)

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Post("/auth/signin", cfg.AuthHandler.Signin)

	r.Route("/users", func(r chi.Router) {
		r.Use(cfg.RequireAuthMiddleware)

		r.Post("/", cfg.UsuarioHandler.Create)
		r.Get("/", cfg.UsuarioHandler.List)
		r.Get("/search", cfg.UsuarioHandler.Search)
		r.Get("/username/{username}", cfg.UsuarioHandler.GetByUsername)
		r.Get("/perfil/{nombre}", cfg.UsuarioHandler.ListByPerfil)
		r.Get("/{id}", cfg.UsuarioHandler.GetByID)
		r.Put("/{id}", cfg.UsuarioHandler.Update)
		r.Delete("/{id}", cfg.UsuarioHandler.Delete)
		r.Patch("/{id}/estado", cfg.UsuarioHandler.SetEstado)
		r.Post("/{id}/perfiles/{perfilId}", cfg.UsuarioHandler.AssignPerfil)
		r.Delete("/{id}/perfiles/{perfilId}", cfg.UsuarioHandler.UnassignPerfil)
	})

	r.Route("/perfiles", func(r chi.Router) {
		r.Use(cfg.RequireAuthMiddleware)

		r.Post("/", cfg.PerfilHandler.Create)
		r.Get("/", cfg.PerfilHandler.List)
		r.Get("/search", cfg.PerfilHandler.Search)
		r.Get("/nombre/{nombre}", cfg.PerfilHandler.GetByNombre)
		r.Get("/{id}", cfg.PerfilHandler.GetByID)
		r.Put("/{id}", cfg.PerfilHandler.Update)
		r.Delete("/{id}", cfg.PerfilHandler.Delete)
	})

	return r
}
