package router

import (
	"net/http"

	"dietly/internal/contextutils"
	"dietly/internal/handlers/api/v1/badges"
	"dietly/internal/middleware"
	"dietly/internal/notify"
	"dietly/internal/response"
	"dietly/internal/services"

	_ "dietly/internal/docs" // generated swagger docs

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// SetupRouter configures all HTTP routes and returns the main handler
func SetupRouter(
	serviceCollection *services.ServiceCollection,
	hub *notify.Hub,
	responseBuilder *response.Builder,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware, outermost first
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID(logger))
	r.Use(middleware.StructuredLogger(middleware.DefaultLoggingConfig()))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	// Health endpoints stay unauthenticated for orchestration probes
	r.Get("/health", healthHandler(serviceCollection, responseBuilder))
	r.Get("/health/live", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Swagger UI
	r.Get("/swagger", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/swagger/", http.StatusMovedPermanently)
	})
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	badgeController := badges.NewBadgeController(serviceCollection, responseBuilder, logger)
	authenticate := middleware.Authenticate(serviceCollection.Config.Auth.JWTSecret, logger)

	r.Route("/api/v1/badges", func(api chi.Router) {
		api.Use(authenticate)

		api.Get("/", badgeController.ListCatalog)
		api.Get("/awards", badgeController.ListUserAwards)
		api.Get("/{id}", badgeController.GetBadge)

		api.With(middleware.ValidateCooldown(serviceCollection.Cooldown)).
			Post("/validate", badgeController.ValidateBadges)

		api.With(middleware.RequireRole(serviceCollection.Config.Auth.AdminRole)).
			Post("/{id}/icon", badgeController.UploadIcon)
	})

	// Websocket notifications for badge unlocks
	r.With(authenticate).Get("/ws/notifications", wsHandler(hub))

	return r
}

// healthHandler reports aggregate component health.
func healthHandler(sc *services.ServiceCollection, builder *response.Builder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := sc.HealthCheck(r.Context())

		status := http.StatusOK
		if db, ok := report["database"].(map[string]interface{}); ok {
			if dbStatus, ok := db["status"].(string); ok && dbStatus == "unhealthy" {
				status = http.StatusServiceUnavailable
			}
		}

		builder.WriteJSON(w, r, builder.Success(r.Context(), report), status)
	}
}

// wsHandler upgrades authenticated connections into the notify hub.
func wsHandler(hub *notify.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := contextutils.GetUserID(r.Context())
		if userID == 0 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		hub.ServeWS(w, r, userID)
	}
}
