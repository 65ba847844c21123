package main

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/PitokDf/express-app-useable/internal/api"
	apiMiddleware "github.com/PitokDf/express-app-useable/internal/api/middleware"
	"github.com/PitokDf/express-app-useable/internal/api/shared"
)

// setupRouter creates the router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.Trace(app.logger))
	r.Use(apiMiddleware.Recover)
	r.Use(apiMiddleware.APIVersion)

	authHandler := api.NewAuthHandler(app.userService, app.jwtService, app.transport, app.revocations)
	userHandler := api.NewUserHandler(app.userService)
	uploadHandler := api.NewUploadHandler(app.uploads)
	healthHandler := api.NewHealthHandler(app.config.Server.Version, app.dependencies()...)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService, app.transport, app.revocations)

	r.Get("/health", healthHandler.Health)
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)
	r.Get("/api/version", healthHandler.Version)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.With(app.limiter.Limit).Post("/register", authHandler.Register)
			r.With(app.limiter.Limit).Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.Authenticate)
				r.Get("/", userHandler.List)
				r.Get("/{id}", userHandler.Get)
				r.Patch("/{id}", userHandler.Update)
				r.Delete("/{id}", userHandler.Delete)
			})
		})

		r.With(authMiddleware.Authenticate).Post("/uploads", uploadHandler.Upload)
	})

	// Disk uploads are served back by name from their public path.
	if base := app.config.Upload.PublicBaseURL; app.uploadDir != "" && strings.HasPrefix(base, "/") {
		prefix := strings.TrimSuffix(base, "/") + "/"
		r.Handle(prefix+"*", http.StripPrefix(prefix, uploadsHandler(app.uploadDir)))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		shared.NotFound(w, r)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		shared.Error(w, r, shared.WithStatus(http.StatusMethodNotAllowed), shared.WithMessage("Method not allowed"))
	})

	return r
}
