package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ikjoobang/xivix-ai-core-sub000/internal/archive"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/auth"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/channels/talktalk"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/conversation"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/customers"
	httpmiddleware "github.com/ikjoobang/xivix-ai-core-sub000/internal/http/middleware"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/reminders"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/stores"
	"github.com/ikjoobang/xivix-ai-core-sub000/pkg/logging"
)

// Config holds router configuration. Nil handlers are not mounted.
type Config struct {
	Logger             *logging.Logger
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	// HealthCheck reports dependency health; nil means always healthy.
	HealthCheck func(ctx context.Context) error

	TalkTalk *talktalk.Adapter

	Sessions        httpmiddleware.SessionVerifier
	Limiter         httpmiddleware.WindowChecker
	RateLimitMax    int
	RateLimitWindow time.Duration

	AuthHandler         *auth.Handler
	StoresHandler       *stores.Handler
	ConversationHandler *conversation.Handler
	CustomersHandler    *customers.Handler
	RemindersHandler    *reminders.Handler
	ArchiveHandler      *archive.Handler
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (webhooks, health checks)
	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.HealthCheck))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.TalkTalk != nil {
			cfg.TalkTalk.RegisterRoutes(public)
		}
	})

	limited := func(scope string) func(http.Handler) http.Handler {
		if cfg.Limiter == nil || cfg.RateLimitMax <= 0 {
			return func(next http.Handler) http.Handler { return next }
		}
		return httpmiddleware.RateLimit(cfg.Limiter, scope, cfg.RateLimitMax, cfg.RateLimitWindow, cfg.Logger)
	}

	if cfg.AuthHandler != nil {
		r.With(limited("auth")).Route("/auth", cfg.AuthHandler.RegisterRoutes)
	}

	if cfg.Sessions != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(limited("admin"))
			admin.Use(httpmiddleware.AdminJWT(cfg.Sessions))
			if cfg.AuthHandler != nil {
				admin.Get("/me", cfg.AuthHandler.Me)
			}
			if cfg.StoresHandler == nil {
				return
			}
			admin.Route("/stores", func(sr chi.Router) {
				cfg.StoresHandler.RegisterRoutes(sr)
				sr.With(cfg.StoresHandler.RequireStoreAccess).Route("/{storeID}", func(store chi.Router) {
					cfg.StoresHandler.RegisterStoreRoutes(store)
					if cfg.ConversationHandler != nil {
						cfg.ConversationHandler.RegisterRoutes(store)
					}
					if cfg.CustomersHandler != nil {
						store.Route("/customers", cfg.CustomersHandler.RegisterRoutes)
					}
					if cfg.RemindersHandler != nil {
						store.Route("/reservations", cfg.RemindersHandler.RegisterRoutes)
					}
					if cfg.ArchiveHandler != nil {
						cfg.ArchiveHandler.RegisterRoutes(store)
					}
				})
			})
		})
	}

	return r
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, body := http.StatusOK, map[string]string{"status": "ok"}
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				status, body = http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
