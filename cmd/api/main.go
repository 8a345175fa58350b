package main

import (
	"context"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"shopify-auth-backend/internal/application"
	"shopify-auth-backend/internal/config"
	"shopify-auth-backend/internal/infrastructure/api"
	appmiddleware "shopify-auth-backend/internal/infrastructure/middleware"
	"shopify-auth-backend/internal/infrastructure/nonce"
	"shopify-auth-backend/internal/infrastructure/repository"
	shopifyinfra "shopify-auth-backend/internal/infrastructure/shopify"
	"shopify-auth-backend/internal/ports"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	// Connect to the credential store.
	db, err := sqlx.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.DatabaseDriver).Msg("Failed to open database")
	}
	defer db.Close()
	if cfg.DatabaseDriver == "sqlite3" {
		// sqlite serializes writers; one connection avoids busy errors.
		db.SetMaxOpenConns(1)
	}

	repo := repository.NewInstallationRepository(db, logger)
	if err := repo.Migrate(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate database schema")
	}
	logger.Info().Str("driver", cfg.DatabaseDriver).Msg("Database schema verified")

	// OAuth state store: Redis when configured, in-process otherwise.
	var states ports.StateStore
	if cfg.RedisAddr != "" {
		states = nonce.NewRedisStore(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), nonce.DefaultTTL)
		logger.Info().Str("addr", cfg.RedisAddr).Msg("Using Redis OAuth state store")
	} else {
		states = nonce.NewMemoryStore(nonce.DefaultTTL)
		logger.Info().Msg("Using in-memory OAuth state store")
	}

	client := shopifyinfra.NewClient(cfg.ShopifyAPIKey, cfg.ShopifyAPISecret, cfg.RedirectURI(), cfg.ProviderTimeout, logger)

	authService := application.NewAuthService(repo, client, states, cfg, logger)
	reportService := application.NewReportService(repo, client, logger)
	handler := api.NewHandler(authService, reportService, cfg, logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(appmiddleware.RequestLogging(logger))
	r.Use(appmiddleware.Metrics())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/", handler.Entry)
	r.Get("/health", handler.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/dashboard", handler.Dashboard)

	r.Route("/auth", func(r chi.Router) {
		r.Get("/install", handler.Install)
		r.Get("/callback", handler.Callback)
		r.Get("/shops/{shop}", handler.GetShop)
	})

	logger.Info().Str("port", cfg.Port).Msg("Starting auth backend")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}
