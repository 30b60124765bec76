package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Kyz7/kingsbuilder/internal/config"
	"github.com/Kyz7/kingsbuilder/internal/database"
	"github.com/Kyz7/kingsbuilder/internal/logging"
	"github.com/Kyz7/kingsbuilder/internal/pages"
	"github.com/Kyz7/kingsbuilder/internal/server"
	"github.com/Kyz7/kingsbuilder/internal/shopify"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if cfg.ShopifyAPISecret == "" {
		log.Warn().Msg("⚠️  SHOPIFY_API_SECRET not set, session tokens will be rejected")
	}

	// ========== HISTORY SETUP ==========
	store, closeHistory := database.OpenHistory(context.Background(), cfg)
	defer closeHistory()

	// ========== SHOPIFY CLIENT ==========
	client := shopify.NewClient(shopify.Options{
		APIVersion: cfg.ShopifyAPIVersion,
		Endpoint:   cfg.ShopifyEndpoint,
		Timeout:    cfg.ShopifyTimeout,
	})
	log.Info().Str("api_version", cfg.ShopifyAPIVersion).Dur("timeout", cfg.ShopifyTimeout).Msg("✅ Shopify client ready")

	// ========== START SERVER ==========
	svc := pages.NewService(client, store)
	app := server.New(svc, server.Options{APISecret: cfg.ShopifyAPISecret})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info().Msg("🛑 Shutting down")
		if err := app.Shutdown(); err != nil {
			log.Error().Err(err).Msg("❌ Shutdown failed")
		}
	}()

	log.Info().
		Str("addr", cfg.ServerAddr).
		Bool("history", store.Available()).
		Msg("🚀 Kings Builder server starting")

	if err := app.Listen(cfg.ServerAddr); err != nil {
		log.Error().Err(err).Msg("❌ Failed to start server")
		closeHistory()
		os.Exit(1)
	}
}
