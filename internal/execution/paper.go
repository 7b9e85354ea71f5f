package execution

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"trail_bot/internal/domain"
)

// PaperExchange wraps a live exchange for dry runs: market data and account
// reads pass through, order placement is simulated with synthetic ids and
// asynchronous fill confirmations, so the whole position state machine runs
// unchanged without touching real funds.
type PaperExchange struct {
	live domain.Exchange

	mu            sync.Mutex
	nextID        int64
	onOrderUpdate func(domain.OrderUpdate)

	fillDelay time.Duration
	balance   decimal.Decimal
}

// NewPaperExchange wraps live. Simulated fills confirm after a short delay,
// mimicking the round trip through the real user-data stream.
func NewPaperExchange(live domain.Exchange) *PaperExchange {
	return &PaperExchange{
		live:      live,
		fillDelay: 50 * time.Millisecond,
		balance:   decimal.NewFromInt(10000),
	}
}

// SetOrderUpdateHandler wires the consumer of simulated fill confirmations.
// In live mode this role belongs to the user-data stream.
func (p *PaperExchange) SetOrderUpdateHandler(fn func(domain.OrderUpdate)) {
	p.mu.Lock()
	p.onOrderUpdate = fn
	p.mu.Unlock()
}

func (p *PaperExchange) FetchDepth(ctx context.Context, limit int) (domain.OrderBook, error) {
	return p.live.FetchDepth(ctx, limit)
}

func (p *PaperExchange) FetchRecentTrades(ctx context.Context, limit int) ([]domain.Trade, error) {
	return p.live.FetchRecentTrades(ctx, limit)
}

func (p *PaperExchange) FetchTickerChangePct(ctx context.Context) (decimal.Decimal, error) {
	return p.live.FetchTickerChangePct(ctx)
}

func (p *PaperExchange) FetchMarkPrice(ctx context.Context) (decimal.Decimal, error) {
	return p.live.FetchMarkPrice(ctx)
}

// FetchAvailableBalance returns the simulated balance instead of the real
// account, so dry runs need no credentials.
func (p *PaperExchange) FetchAvailableBalance(context.Context) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance, nil
}

// PlaceMarketOrder simulates an immediate fill at the live mark price. The
// confirmation arrives asynchronously through the order-update handler, the
// same path a real fill takes.
func (p *PaperExchange) PlaceMarketOrder(ctx context.Context, side string, qty decimal.Decimal) (domain.OrderResult, error) {
	price, err := p.live.FetchMarkPrice(ctx)
	if err != nil {
		return domain.FailedOrder(), err
	}

	p.mu.Lock()
	p.nextID++
	id := p.nextID
	handler := p.onOrderUpdate
	p.mu.Unlock()

	slog.Info("[DRY RUN] Market order",
		"order_id", id, "side", side, "qty", qty, "price", price)

	if handler != nil {
		time.AfterFunc(p.fillDelay, func() {
			handler(domain.OrderUpdate{
				OrderID:   id,
				Status:    domain.OrderStatusFilled,
				Side:      side,
				AvgPrice:  price,
				FilledQty: qty,
			})
		})
	}

	return domain.OrderResult{OrderID: id, Status: domain.OrderStatusNew}, nil
}

// PlaceStopOrder records the order without simulating a trigger; the trading
// loop's own stop-cross check closes simulated positions.
func (p *PaperExchange) PlaceStopOrder(_ context.Context, side string, qty, stopPrice decimal.Decimal) (domain.OrderResult, error) {
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.mu.Unlock()

	slog.Info("[DRY RUN] Stop order",
		"order_id", id, "side", side, "qty", qty, "stop_price", stopPrice)

	return domain.OrderResult{OrderID: id, Status: domain.OrderStatusNew}, nil
}

func (p *PaperExchange) CancelOrder(_ context.Context, orderID int64) error {
	slog.Info("[DRY RUN] Cancel order", "order_id", orderID)
	return nil
}

func (p *PaperExchange) SetMarginType(_ context.Context, marginType string) error {
	slog.Info("[DRY RUN] Set margin type", "margin_type", marginType)
	return nil
}

func (p *PaperExchange) SetLeverage(_ context.Context, leverage int) error {
	slog.Info("[DRY RUN] Set leverage", "leverage", leverage)
	return nil
}
