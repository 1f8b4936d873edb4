package api

import (
	"context"
	"net/http"

	"shopify-insights/internal/application"
	"shopify-insights/internal/infrastructure/cache"
	"shopify-insights/internal/infrastructure/metrics"
	"shopify-insights/internal/infrastructure/pubsub"
	shopifyinfra "shopify-insights/internal/infrastructure/shopify"
	"shopify-insights/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Dependencies are the services the HTTP layer fronts. Deduper, Metrics, Bus,
// Realtime and GraphQL may be nil.
type Dependencies struct {
	// BaseContext outlives requests; background work started over HTTP
	// (the poller loop) runs under it.
	BaseContext context.Context

	Reconciler ports.Reconciler
	Shopify    *application.ShopifyService
	Verifier   *shopifyinfra.WebhookVerifier
	Deduper    *cache.Deduper
	Sync       *application.SyncService
	Poller     *application.Poller
	Stats      *application.StatsService
	Bus        *pubsub.EventBus
	Realtime   http.Handler
	GraphQL    http.Handler
	Metrics    *metrics.Metrics

	CORSOrigins     []string
	MaxWebhookBytes int64
}

// NewRouter builds the chi router with every public route
func NewRouter(deps Dependencies, logger zerolog.Logger) http.Handler {
	if deps.BaseContext == nil {
		deps.BaseContext = context.Background()
	}
	if deps.MaxWebhookBytes <= 0 {
		deps.MaxWebhookBytes = 1 << 20
	}
	logger = logger.With().Str("component", "http").Logger()

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))

	r.Get("/health", healthHandler(deps))
	r.Handle("/metrics", deps.Metrics.Handler())

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", swaggerDocHandler)

	webhook := webhookHandler(deps, logger)
	r.Post("/webhooks/shopify", webhook)
	r.Post("/api/webhooks/shopify", webhook)

	control := &controlHandlers{deps: deps, logger: logger}
	r.Route("/api", func(r chi.Router) {
		r.Post("/sync", control.performSync)
		r.Get("/sync/status", control.syncStatus)

		r.Route("/polling", func(r chi.Router) {
			r.Post("/start", control.startPolling)
			r.Post("/stop", control.stopPolling)
			r.Get("/status", control.pollingStatus)
			r.Post("/check", control.checkPolling)
		})

		r.Get("/stats/summary", control.summary)
	})

	if deps.Realtime != nil {
		r.Handle("/ws", deps.Realtime)
	}
	if deps.GraphQL != nil {
		r.Handle("/graphql", deps.GraphQL)
	}
	return r
}
