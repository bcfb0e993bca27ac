package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-login/internal/database"
	"github.com/kozaktomas/face-login/internal/recognition"
	"github.com/kozaktomas/face-login/internal/web/handlers"
	"github.com/kozaktomas/face-login/internal/web/middleware"
)

func (s *Server) setupRoutes(
	engine *recognition.Engine,
	gallery database.GalleryReader,
	audit database.AuditReader,
	users database.UserReader,
) {
	// Create handlers
	recognitionHandler := handlers.NewRecognitionHandler(engine, s.tokens)
	usersHandler := handlers.NewUsersHandler(users, gallery, engine)
	authHandler := handlers.NewAuthHandler(s.tokens)
	configHandler := handlers.NewConfigHandler(s.config)
	statsHandler := handlers.NewStatsHandler(gallery, audit)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Authentication is the login itself, so it cannot require a token.
		r.Post("/recognition/authenticate", recognitionHandler.Authenticate)
		r.Get("/auth/status", authHandler.Status)

		// Everything else requires a token once a JWT secret is configured.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.tokens))

			// Enrollment and audit log
			r.Post("/recognition/register", recognitionHandler.Register)
			r.Get("/recognition/history", recognitionHandler.History)
			r.Post("/recognition/similar", recognitionHandler.Similar)

			// User directory
			r.Get("/users", usersHandler.List)
			r.Get("/users/{id}", usersHandler.Get)
			r.Delete("/users/{id}/faces", usersHandler.DeleteFaces)

			// Config and stats
			r.Get("/config", configHandler.Get)
			r.Get("/stats", statsHandler.Get)
		})
	})
}
