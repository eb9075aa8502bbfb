package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dialdeskhq/dialdesk-platform/internal/admin"
	httpmiddleware "github.com/dialdeskhq/dialdesk-platform/internal/http/middleware"
	"github.com/dialdeskhq/dialdesk-platform/internal/realtime"
	"github.com/dialdeskhq/dialdesk-platform/internal/vapi"
	"github.com/dialdeskhq/dialdesk-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	VapiWebhook        *vapi.Handler
	Admin              *admin.Handler
	Hub                *realtime.Hub
	MetricsHandler     http.Handler
	AdminJWTSecret     string
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (webhooks, health checks)
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.VapiWebhook != nil {
			public.Post("/webhooks/vapi", cfg.VapiWebhook.HandleWebhook)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Authenticated endpoints
	r.Group(func(auth chi.Router) {
		auth.Use(httpmiddleware.AdminJWT(cfg.AdminJWTSecret))
		if cfg.Admin != nil {
			auth.Get("/admin/webhook-logs", cfg.Admin.ListWebhookLogs)
			auth.Get("/admin/calls", cfg.Admin.ListCalls)
		}
		if cfg.Hub != nil {
			auth.Get("/ws", cfg.Hub.HandleWS)
		}
	})

	return r
}
