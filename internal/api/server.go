package api

import (
	_ "embed"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/resetbiology/reminders/internal/api/handler"
	"github.com/resetbiology/reminders/internal/config"
	"github.com/resetbiology/reminders/internal/notify"
)

//go:embed openapi.json
var openAPIDoc []byte

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(
	pool *pgxpool.Pool,
	store *notify.Store,
	scheduler *notify.Scheduler,
	dispatcher *notify.Dispatcher,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Process-Time", "Retry-After"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(pool, store, scheduler, dispatcher, cfg, logger)

	// --- Routes ---

	// Root
	r.Get("/", h.Root)

	// Health checks
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
	})

	// Swagger UI over the embedded OpenAPI document.
	r.Get("/docs/doc.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(openAPIDoc)
	})
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/notifications", func(r chi.Router) {
			r.Post("/preferences", h.SavePreferences)
			r.Post("/subscribe", h.Subscribe)
			r.Post("/test", h.TestNotification)
			r.Get("/test", h.TestStatus)
			r.Get("/debug", h.Debug)

			// Cron triggers, shared-secret guarded.
			r.Get("/replenish", h.Replenish)
			r.Get("/send", h.Dispatch)
			r.Post("/send", h.Dispatch)
		})
	})

	return r
}
