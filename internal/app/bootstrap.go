package app

import (
	"log/slog"

	"trail_bot/internal/domain"
	"trail_bot/internal/event"
	"trail_bot/internal/execution"
	"trail_bot/internal/infra"
	"trail_bot/internal/infra/binance"
	"trail_bot/internal/infra/storage"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config   *infra.Config
	Storage  *storage.Storage
	Exchange domain.Exchange
	Feed     domain.MarketFeed

	// Paper is non-nil in dry-run mode; its simulated fills replace the
	// user-data stream's order confirmations.
	Paper *execution.PaperExchange
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logger, DB,
// exchange connectivity).
func (b *Bootstrap) Initialize() error {
	slog.Info("🚀 Bootstrapping Trail Bot...")

	// 1. Load Config
	cfg, err := infra.LoadConfig("configs/config.yaml")
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Warm the event pool before the streams start
	event.Warmup()

	// 4. Initialize Storage (trade journal)
	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("✅ Trade journal initialized")

	// 5. Exchange connectivity
	client := binance.NewClient(
		cfg.Trading.Symbol,
		cfg.API.Binance.Key,
		cfg.API.Binance.Secret,
		cfg.API.Binance.UseTestnet,
	)
	feed := binance.NewFeed(cfg.Trading.Symbol, client.Futures())
	b.Feed = feed
	b.Exchange = client

	if cfg.Trading.DryRun {
		// No credentials needed: public streams only, fills come from the
		// paper exchange's handler.
		feed.DisableUserStream()
		b.Paper = execution.NewPaperExchange(client)
		b.Exchange = b.Paper
		slog.Info("✅ Dry run: orders will be simulated")
	}

	slog.Info("✅ Exchange connectivity ready",
		"symbol", cfg.Trading.Symbol,
		"testnet", cfg.API.Binance.UseTestnet)

	return nil
}
