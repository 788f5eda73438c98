package api

import (
	"net/http"
	"time"

	"github.com/Rrens/flexy-chat/internal/api/handler"
	customMiddleware "github.com/Rrens/flexy-chat/internal/api/middleware"
	"github.com/Rrens/flexy-chat/internal/security"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Deps are the collaborators served by the router
type Deps struct {
	Chat       handler.ChatSession
	Connection handler.ConnectionControl
	Auth       handler.Authenticator
	Workspaces handler.WorkspaceBackend
	Dashboards handler.DashboardBackend
	Files      handler.FileBackend
	Insights   handler.InsightBackend
	// Limiter is optional; nil disables rate limiting
	Limiter customMiddleware.Limiter
	// JWT is optional; nil leaves the API unauthenticated
	JWT         *security.JWTManager
	Ready       map[string]handler.Pinger
	CORSOrigins []string
	Timeout     time.Duration
}

// NewRouter creates and configures the HTTP router
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(customMiddleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	chatHandler := handler.NewChatHandler(deps.Chat)
	streamHandler := handler.NewStreamHandler(deps.Chat, deps.CORSOrigins)
	connectionHandler := handler.NewConnectionHandler(deps.Connection)
	authHandler := handler.NewAuthHandler(deps.Auth, deps.JWT)
	workspaceHandler := handler.NewWorkspaceHandler(deps.Workspaces)
	dashboardHandler := handler.NewDashboardHandler(deps.Dashboards)
	uploadHandler := handler.NewUploadHandler(deps.Files)
	insightHandler := handler.NewInsightHandler(deps.Insights)

	authMiddleware := customMiddleware.NewAuthMiddleware(deps.JWT)

	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(deps.Ready))

		r.Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			if deps.Limiter != nil {
				r.Use(customMiddleware.NewRateLimitMiddleware(deps.Limiter).Limit)
			}

			// long-lived
			r.Get("/messages/stream", streamHandler.Stream)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(timeout))

				r.Post("/auth/logout", authHandler.Logout)

				r.Get("/status", chatHandler.Session)
				r.Get("/session", chatHandler.Session)
				r.Post("/session", chatHandler.Activate)

				r.Get("/messages", chatHandler.Messages)
				r.Post("/messages", chatHandler.Send)

				r.Route("/connection", func(r chi.Router) {
					r.Get("/", connectionHandler.Status)
					r.Post("/reconnect", connectionHandler.Reconnect)
					r.Post("/disconnect", connectionHandler.Disconnect)
				})

				r.Route("/workspaces", func(r chi.Router) {
					r.Get("/", workspaceHandler.List)
					r.Post("/", workspaceHandler.Create)
					r.Get("/{workspaceID}", workspaceHandler.Get)
					r.Delete("/{workspaceID}", workspaceHandler.Delete)
				})

				r.Route("/dashboards", func(r chi.Router) {
					r.Get("/", dashboardHandler.List)
					r.Post("/", dashboardHandler.Create)
					r.Get("/{dashboardID}", dashboardHandler.Get)
					r.Put("/{dashboardID}", dashboardHandler.Update)
					r.Delete("/{dashboardID}", dashboardHandler.Delete)
					r.Post("/{dashboardID}/export", dashboardHandler.Export)
					r.Post("/{dashboardID}/widgets", dashboardHandler.AddWidget)
					r.Put("/{dashboardID}/widgets/{widgetID}", dashboardHandler.UpdateWidget)
					r.Delete("/{dashboardID}/widgets/{widgetID}", dashboardHandler.RemoveWidget)
				})

				r.Route("/files", func(r chi.Router) {
					r.Post("/", uploadHandler.Upload)
					r.Get("/{fileID}/status", uploadHandler.Status)
				})

				r.Route("/insights", func(r chi.Router) {
					r.Get("/", insightHandler.List)
					r.Post("/generate", insightHandler.Generate)
					r.Get("/{insightID}", insightHandler.Get)
					r.Post("/{insightID}/export", insightHandler.Export)
				})
			})
		})
	})

	return r
}
