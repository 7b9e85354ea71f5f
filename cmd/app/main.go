package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"trail_bot/internal/app"
	"trail_bot/internal/engine"
	"trail_bot/internal/infra"
	"trail_bot/internal/strategy"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// 1. Pprof Server (for performance profiling)
	go func() {
		// Localhost only for security
		slog.Info("🕵️ Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := bootstrap.Config

	// 4. Market store and trader
	store := engine.NewMarketStore(cfg.Trading.QueueSize)
	store.Start(ctx)

	trader := engine.NewTrader(engine.Config{
		Symbol:         cfg.Trading.Symbol,
		Leverage:       cfg.Trading.Leverage,
		RiskPerTrade:   decimal.NewFromFloat(cfg.Trading.RiskPerTrade),
		InitialStopPct: decimal.NewFromFloat(cfg.Trading.InitialStopPct),
		TrailPct:       decimal.NewFromFloat(cfg.Trading.TrailPct),
		MinNotional:    decimal.NewFromFloat(cfg.Trading.MinNotional),
		Interval:       cfg.SignalInterval(),
	}, bootstrap.Exchange, store, bootstrap.Storage, strategy.Decide)

	// 5. Seed the market state from REST, then stream
	store.Bootstrap(ctx, bootstrap.Exchange)

	handlers := store.Handlers()
	handlers.OnOrderUpdate = trader.HandleOrderUpdate
	if bootstrap.Paper != nil {
		// Simulated fills take the same confirmation path as real ones.
		bootstrap.Paper.SetOrderUpdateHandler(trader.HandleOrderUpdate)
	}

	if err := bootstrap.Feed.Start(ctx, handlers); err != nil {
		slog.Error("❌ Feed start failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Feed.Stop()

	// 6. Trading loop (The Hotpath)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := trader.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Trading loop stopped", slog.Any("error", err))
		}
	}()
	slog.InfoContext(ctx, "✨ Trail Bot fully operational. Press Ctrl+C to exit.")

	// Wait for shutdown signal, then for the loop's best-effort close
	<-ctx.Done()
	<-done

	snap := infra.GlobalMetrics.Snapshot()
	total, err := bootstrap.Storage.TotalPnl()
	if err != nil {
		slog.Warn("Total PnL unavailable", slog.Any("error", err))
	}
	slog.Info("👋 Shutting down gracefully...",
		slog.Uint64("events_processed", snap.EventsProcessed),
		slog.Uint64("events_dropped", snap.EventsDropped),
		slog.Uint64("orders_placed", snap.OrdersPlaced),
		slog.String("total_pnl", total.String()))
}
