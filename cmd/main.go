package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bilgisen/folio/internal/ai"
	"github.com/bilgisen/folio/internal/api"
	"github.com/bilgisen/folio/internal/bulk"
	"github.com/bilgisen/folio/internal/cache"
	"github.com/bilgisen/folio/internal/config"
	"github.com/bilgisen/folio/internal/logger"
	"github.com/bilgisen/folio/internal/media"
	"github.com/bilgisen/folio/internal/publishing"
	"github.com/bilgisen/folio/internal/repository"
	"github.com/bilgisen/folio/internal/slug"
	"github.com/bilgisen/folio/internal/store"
	"github.com/bilgisen/folio/internal/translation"
	"github.com/bilgisen/folio/internal/validation"
	"github.com/gofiber/fiber/v2"
)

func main() {
	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: cfg.LogFile,
		Pretty: !cfg.IsProduction(),
	}); err != nil {
		panic(err)
	}

	log := logger.Get()
	log.Info().Str("env", cfg.Env).Str("store", cfg.StoreDriver).Msg("Starting application...")

	ctx := context.Background()

	// Document collection and translation cache
	collection, translationCache, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open post store")
	}
	defer func() {
		log.Info().Msg("Closing post store...")
		if err := collection.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing post store")
		}
	}()

	provider := translation.NewCachedProvider(
		newProvider(cfg),
		translationCache,
		cfg.CacheTTL,
		logger.Component("translation-cache"),
	)
	translator := translation.NewTranslator(provider, cfg.SupportedLocales, cfg.MaxConcurrency, logger.Component("translator"))

	gate := validation.NewGate()
	repo := repository.New(collection, gate, logger.Component("repository"))
	resolver := slug.NewResolver(repo, logger.Component("slug"))

	deps := api.Deps{
		Repo:     repo,
		Service:  publishing.NewService(repo, resolver, gate, translator, cfg.SourceLocale, logger.Component("publishing")),
		Resolver: resolver,
		Operator: bulk.NewOperator(repo, gate, cfg.MaxConcurrency, logger.Component("bulk")),
		Cache:    translationCache,
		Log:      logger.Component("api"),
	}

	if cfg.MediaEnabled() {
		uploader, err := media.NewR2Uploader(ctx, media.Config{
			Endpoint:  cfg.R2Endpoint,
			AccountID: cfg.R2AccountID,
			AccessKey: cfg.R2AccessKey,
			SecretKey: cfg.R2SecretKey,
			Bucket:    cfg.R2Bucket,
			PublicURL: cfg.R2PublicURL,
			MaxSize:   cfg.MaxFileSize,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize media uploader")
		}
		deps.Uploader = uploader
	} else {
		log.Warn().Msg("R2 credentials missing, media uploads are disabled")
	}

	if cfg.AdminAPIKey == "" {
		log.Warn().Msg("ADMIN_API_KEY is not set, admin endpoints will refuse every request")
	}

	// Create Fiber app with custom config
	app := api.NewApp(fiber.Config{
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    int(cfg.MaxFileSize) + 1<<20,
	})

	// Setup API routes
	api.SetupRoutes(app, api.NewHandlers(deps), cfg.AdminAPIKey)

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Create a deadline for graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()

	// Shutdown the server
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

// openStore picks the document collection and a matching translation cache.
// The redis driver shares one connection between both.
func openStore(ctx context.Context, cfg *config.Config) (store.Collection, cache.Cache, error) {
	switch cfg.StoreDriver {
	case config.StoreFile:
		c, err := store.NewFileCollection(cfg.StoragePath)
		if err != nil {
			return nil, nil, err
		}
		return c.WithLogger(logger.Component("store")), cache.NewMemoryClient(), nil
	default:
		client, err := store.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return store.NewRedisCollection(client, cfg.RedisPrefix).WithLogger(logger.Component("store")),
			cache.NewRedisClient(client, cfg.RedisPrefix+"translation:"),
			nil
	}
}

// newProvider builds the configured translation backend. Without credentials
// both backends pass text through untranslated.
func newProvider(cfg *config.Config) translation.Provider {
	switch cfg.TranslationProvider {
	case config.ProviderGemini:
		return ai.NewGeminiClient(cfg.AIApiKey, cfg.AIModel, cfg.AITimeout)
	default:
		return translation.NewHTTPProvider(cfg.TranslationAPIURL, cfg.TranslationAPIKey, cfg.HTTPTimeout)
	}
}
