package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopify-insights/graph"
	"shopify-insights/internal/application"
	"shopify-insights/internal/application/webhook_handlers"
	"shopify-insights/internal/config"
	"shopify-insights/internal/domain"
	apiinfra "shopify-insights/internal/infrastructure/api"
	"shopify-insights/internal/infrastructure/cache"
	"shopify-insights/internal/infrastructure/logging"
	"shopify-insights/internal/infrastructure/metrics"
	"shopify-insights/internal/infrastructure/pubsub"
	"shopify-insights/internal/infrastructure/realtime"
	"shopify-insights/internal/infrastructure/repository"
	shopifyinfra "shopify-insights/internal/infrastructure/shopify"
	"shopify-insights/internal/ports"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

const sessionBufferSize = 64

func main() {
	// logger is not configured yet; LOG_* may live in .env
	boot := logging.New("info", false)
	if err := godotenv.Load(); err != nil {
		boot.Warn().Msg("⚠️  Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		boot.Fatal().Err(err).Msg("Invalid configuration")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Relational store
	gdb, err := repository.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.DatabaseDriver).Msg("Failed to open database")
	}
	repo := repository.NewGormRepository(gdb)

	if cfg.StoreConfigured() {
		store := &domain.Store{ShopDomain: cfg.ShopDomain, AccessToken: cfg.AccessToken, Active: true}
		if err := repo.SaveStore(ctx, store); err != nil {
			logger.Fatal().Err(err).Str("shop", cfg.ShopDomain).Msg("Failed to save store")
		}
		logger.Info().Str("shop", store.ShopDomain).Msg("Active store configured")
	} else {
		logger.Warn().Msg("SHOPIFY_SHOP_DOMAIN not set, webhooks answer 503 until a store is configured")
	}

	// Cache: redis when configured, memory otherwise
	var kv ports.Cache = cache.NewMemoryCache(cache.DefaultSweepEvery)
	if cfg.RedisURL != "" {
		rdb := cache.NewRedisClient(cfg.RedisURL)
		defer rdb.Close()
		redisCache := cache.NewRedisCache(rdb, "shopify-insights:")
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("Redis unreachable, falling back to in-memory cache")
		} else {
			kv = redisCache
			logger.Info().Msg("Using redis cache")
		}
	}

	// Webhook audit log: MongoDB when configured, the process log otherwise
	webhookLog := repository.NewLoggerWebhookLog(logger)
	if cfg.MongoURI != "" {
		client, err := repository.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to connect to MongoDB, audit log goes to the process log")
		} else {
			defer client.Disconnect(context.Background())
			webhookLog = repository.NewMongoWebhookLog(client.Database(cfg.MongoDatabase))
			logger.Info().Str("database", cfg.MongoDatabase).Msg("Webhook audit log in MongoDB")
		}
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pipelineMetrics := metrics.New(registry)

	// Event bus and real-time fan-out
	bus := pubsub.NewEventBus(kv, logger)
	hub := realtime.NewHub(sessionBufferSize, pipelineMetrics, logger)
	hub.Attach(bus)

	// Shopify adapters
	clientOpts := shopifyinfra.DefaultClientOptions()
	clientOpts.APIVersion = cfg.APIVersion
	clientOpts.Timeout = cfg.ShopifyTimeout
	shopifyClient := shopifyinfra.NewClientWithOptions(cfg.APIKey, cfg.APISecret, clientOpts, logger)
	verifier := shopifyinfra.NewWebhookVerifier(cfg.WebhookSecret)
	if !verifier.Enabled() {
		logger.Warn().Msg("SHOPIFY_WEBHOOK_SECRET not set, webhook signatures are not verified")
	}
	validator, err := shopifyinfra.NewPayloadValidator()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load payload schemas")
	}

	// Initialize application services
	shopifyService := application.NewShopifyService(repo, shopifyClient, webhookLog, logger)
	ingest := application.NewIngestService(repo, logger)

	// Initialize reconciler and register handlers
	reconciler := application.NewReconciler(validator, pipelineMetrics, logger)
	reconciler.RegisterHandler(webhook_handlers.NewOrderHandler(ingest, repo, bus, logger))
	reconciler.RegisterHandler(webhook_handlers.NewProductHandler(ingest, bus, logger))
	reconciler.RegisterHandler(webhook_handlers.NewCustomerHandler(ingest, repo, bus, logger))
	reconciler.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(bus, logger))

	stats := application.NewStatsService(repo, bus, cfg.CacheTTL, logger)
	bus.Subscribe(domain.ChannelDataChanged, stats.HandleEvent)
	bus.Subscribe(domain.ChannelSync, stats.HandleEvent)

	poller := application.NewPoller(shopifyService, repo, reconciler, pipelineMetrics, cfg.PollInterval, cfg.PollLookback, logger)
	syncService := application.NewSyncService(shopifyService, ingest, reconciler, bus, pipelineMetrics, application.SyncOptions{
		RefreshLimit:    cfg.SyncRefreshLimit,
		ErrorResetDelay: cfg.SyncErrorResetDelay,
	}, logger)

	if cfg.RegisterWebhooks {
		registrar := application.NewWebhookRegistrar(shopifyService, cfg.WebhookAddress(), nil, logger)
		if _, err := registrar.EnsureSubscriptions(ctx); err != nil {
			logger.Error().Err(err).Msg("Failed to ensure webhook subscriptions")
		}
	}

	// GraphQL: status queries, sync/poll mutations and bus subscriptions
	execSchema, err := graph.NewExecutableSchema(graph.NewResolver(syncService, poller, stats, bus, logger))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load GraphQL schema")
	}

	router := apiinfra.NewRouter(apiinfra.Dependencies{
		BaseContext:     ctx,
		Reconciler:      reconciler,
		Shopify:         shopifyService,
		Verifier:        verifier,
		Deduper:         cache.NewDeduper(kv, cache.DefaultDedupeTTL),
		Sync:            syncService,
		Poller:          poller,
		Stats:           stats,
		Bus:             bus,
		Realtime:        realtime.NewWebsocketHandler(hub, cfg.CORSOrigins, logger),
		GraphQL:         graph.NewHandler(execSchema),
		Metrics:         pipelineMetrics,
		CORSOrigins:     cfg.CORSOrigins,
		MaxWebhookBytes: cfg.MaxWebhookBytes,
	}, logger)

	// Background work
	if cfg.PollAutoStart {
		poller.Start(ctx)
	}
	syncService.StartSchedule(ctx, cfg.SyncInterval)
	if cfg.SyncOnStart {
		syncService.Trigger(ctx, domain.TriggerStartup, domain.SyncFull)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	shutdown(srv, poller, syncService, logger)
}

// shutdown stops intake first, then background work
func shutdown(srv *http.Server, poller *application.Poller, syncService *application.SyncService, logger zerolog.Logger) {
	logger.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	poller.Stop()
	syncService.Wait()
	logger.Info().Msg("Shutdown complete")
}
