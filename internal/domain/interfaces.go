package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Exchange is the request/response surface of the exchange connectivity
// layer. Every call may fail with a network or exchange-rejection error; the
// core treats such failures as logged-and-continue, never fatal.
type Exchange interface {
	// Market-data bootstrap (one-shot REST population before streaming).
	FetchDepth(ctx context.Context, limit int) (OrderBook, error)
	FetchRecentTrades(ctx context.Context, limit int) ([]Trade, error)
	FetchTickerChangePct(ctx context.Context) (decimal.Decimal, error)

	// Account and pricing.
	FetchAvailableBalance(ctx context.Context) (decimal.Decimal, error)
	FetchMarkPrice(ctx context.Context) (decimal.Decimal, error)

	// Order management. Failed submissions return the FailedOrder sentinel
	// alongside the error.
	PlaceMarketOrder(ctx context.Context, side string, qty decimal.Decimal) (OrderResult, error)
	PlaceStopOrder(ctx context.Context, side string, qty, stopPrice decimal.Decimal) (OrderResult, error)
	CancelOrder(ctx context.Context, orderID int64) error

	// One-time account configuration.
	SetMarginType(ctx context.Context, marginType string) error
	SetLeverage(ctx context.Context, leverage int) error
}

// FeedHandlers receive decoded events from the streaming feed. Each handler
// runs on the feed's delivery goroutine and must return quickly without
// blocking; enqueue-and-return is the expected shape.
type FeedHandlers struct {
	OnDepth       func(*DepthUpdate)
	OnTrade       func(TradeEvent)
	OnAggTrade    func(TradeEvent)
	OnTicker      func(TickerUpdate)
	OnOrderUpdate func(OrderUpdate)
}

// MarketFeed is the subscribe-with-callback surface of the exchange
// connectivity layer: market-data streams plus the user/account event stream.
type MarketFeed interface {
	// Start subscribes all streams. Idempotent; calling it twice is a no-op.
	Start(ctx context.Context, handlers FeedHandlers) error
	// Stop tears down all subscriptions.
	Stop()
}
