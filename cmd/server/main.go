package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/digkill/gddforge/internal/catalog"
	"github.com/digkill/gddforge/internal/config"
	"github.com/digkill/gddforge/internal/database"
	"github.com/digkill/gddforge/internal/identity"
	"github.com/digkill/gddforge/internal/lemonsqueezy"
	"github.com/digkill/gddforge/internal/llm"
	"github.com/digkill/gddforge/internal/repository"
	"github.com/digkill/gddforge/internal/server"
	"github.com/digkill/gddforge/internal/service"
	"github.com/digkill/gddforge/internal/storage"
	"github.com/digkill/gddforge/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New("gddforge", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		logr.Fatal().Err(err).Msg("database connect")
	}
	defer db.Close()

	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		logr.Fatal().Err(err).Msg("database migrate")
	}

	store, err := repository.NewStore(db, cfg.DBDriver)
	if err != nil {
		logr.Fatal().Err(err).Msg("repository store")
	}
	accountRepo := repository.NewAccountRepository(store)
	orderRepo := repository.NewOrderRepository(store)
	generationRepo := repository.NewGenerationRepository(store)

	packages, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logr.Fatal().Err(err).Msg("credit package catalog")
	}

	llmClient := llm.NewClient(llm.Config{
		APIKey:    cfg.AnthropicAPIKey,
		BaseURL:   cfg.AnthropicBaseURL,
		Model:     cfg.AnthropicModel,
		MaxTokens: cfg.AnthropicMaxTokens,
		Timeout:   cfg.GenerationTimeout,
	}, logr)
	if cfg.AnthropicAPIKey == "" {
		logr.Warn().Msg("ANTHROPIC_API_KEY is not set, generation requests will fail")
	}

	checkoutAPI := lemonsqueezy.NewClient(lemonsqueezy.ClientConfig{
		APIKey:  cfg.LemonSqueezyAPIKey,
		BaseURL: cfg.LemonSqueezyAPIURL,
		StoreID: cfg.LemonSqueezyStoreID,
		Timeout: cfg.RequestTimeout,
	}, logr)
	if !cfg.WebhookVerificationEnabled() {
		logr.Warn().Msg("LEMONSQUEEZY_WEBHOOK_SECRET is not set, webhook signatures are not verified")
	}

	var archive service.DocumentArchive
	if cfg.StorageEnabled() {
		a, err := storage.NewArchive(storage.Config{
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			Bucket:       cfg.S3Bucket,
			UsePathStyle: cfg.S3UsePathStyle,
			Prefix:       cfg.S3Prefix,
		})
		if err != nil {
			logr.Fatal().Err(err).Msg("document archive")
		}
		archive = a
	}

	ledgerService := service.NewLedgerService(accountRepo, cfg.FreeTierCredits, logr)
	checkoutService := service.NewCheckoutService(service.CheckoutConfig{
		WebhookSecret: cfg.LemonSqueezyWebhookSecret,
		PublicAppURL:  cfg.PublicAppURL,
	}, packages, ledgerService, orderRepo, store, checkoutAPI, logr)
	generationService := service.NewGenerationService(ledgerService, llmClient, generationRepo, archive, cfg.GenerationTimeout, logr)

	srv := server.NewServer(server.Config{
		Addr:              cfg.ListenAddr,
		AdminUsername:     cfg.AdminUsername,
		AdminPassword:     cfg.AdminPassword,
		RequestTimeout:    cfg.RequestTimeout,
		ShutdownTimeout:   cfg.ShutdownTimeout,
		GenerationTimeout: cfg.GenerationTimeout,
	}, logr, identity.NewVerifier(cfg.AuthJWTSecret, cfg.AuthJWTIssuer), ledgerService, checkoutService, generationService)

	if err := srv.Run(ctx); err != nil {
		logr.Error().Err(err).Msg("http server stopped")
	}
}
