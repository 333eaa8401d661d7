package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"archie-shopify-app-core/internal/application"
	"archie-shopify-app-core/internal/application/webhook_handlers"
	"archie-shopify-app-core/internal/config"
	"archie-shopify-app-core/internal/domain"
	apiinfra "archie-shopify-app-core/internal/infrastructure/api"
	"archie-shopify-app-core/internal/infrastructure/metrics"
	"archie-shopify-app-core/internal/infrastructure/repository"
	"archie-shopify-app-core/internal/infrastructure/sessiontoken"
	shopifyinfra "archie-shopify-app-core/internal/infrastructure/shopify"
	"archie-shopify-app-core/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const appUninstalledTopic = "APP_UNINSTALLED"

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)

	storage, closeStorage, err := openStorage(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("storage", cfg.SessionStorage).Msg("Failed to open session storage")
	}
	defer closeStorage()

	// Initialize infrastructure (implementations)
	shopifyClient := shopifyinfra.NewClient(cfg.App.APIKey, cfg.App.APISecretKey, cfg.App.APIVersion, logger)
	decoder := sessiontoken.NewDecoder(cfg.App.APIKey, cfg.App.APISecretKey)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics, err := metrics.New(reg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to register metrics")
	}

	// Initialize application services
	identityService := application.NewIdentityService(cfg.App, decoder)
	sessionService, err := application.NewSessionService(identityService, storage, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create session service")
	}
	oauthService, err := application.NewOAuthService(cfg.App, storage, shopifyClient, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create OAuth service")
	}

	// Initialize webhook registry and register handlers
	registry := domain.NewWebhookRegistry()
	loggingHandler := webhook_handlers.NewLoggingHandler(logger)
	for _, topic := range cfg.WebhookTopics {
		registry.AddHandler(topic, domain.WebhookRegistryEntry{Path: cfg.WebhookPath, Handler: loggingHandler})
	}
	registry.AddHandler(appUninstalledTopic, domain.WebhookRegistryEntry{
		Path:    cfg.WebhookPath,
		Handler: webhook_handlers.NewAppUninstalledHandler(logger, sessionService),
	})

	webhookService, err := application.NewWebhookService(cfg.App, registry, shopifyClient, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create webhook service")
	}

	handler := apiinfra.NewHandler(cfg.App, cfg.IsOnline, oauthService, sessionService, webhookService, appMetrics, logger)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://admin.shopify.com", "https://*.myshopify.com"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Shopify-API-Request-Failure-Reauthorize", "X-Shopify-API-Request-Failure-Reauthorize-Url"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	handler.Mount(r, cfg.WebhookPath)

	logger.Info().
		Str("port", cfg.Port).
		Str("storage", cfg.SessionStorage).
		Strs("webhookTopics", registry.Topics()).
		Bool("embedded", cfg.App.IsEmbeddedApp).
		Msg("Starting API server")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}

// openStorage connects the configured session storage backend
func openStorage(cfg *config.Config, logger zerolog.Logger) (ports.SessionStorage, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch cfg.SessionStorage {
	case config.StorageMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, err
		}
		if err := client.Ping(ctx, nil); err != nil {
			return nil, nil, err
		}
		storage := repository.NewMongoSessionStorage(client.Database(cfg.MongoDatabase))
		if err := storage.EnsureIndexes(ctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to create session indexes")
		}
		return storage, func() { client.Disconnect(context.Background()) }, nil

	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, err
		}
		return repository.NewRedisSessionStorage(client, cfg.RedisKeyPrefix), func() { client.Close() }, nil

	default:
		logger.Warn().Msg("Using in-memory session storage; sessions are lost on restart")
		return repository.NewMemorySessionStorage(), func() {}, nil
	}
}
