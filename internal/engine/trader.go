package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"trail_bot/internal/domain"
	"trail_bot/internal/infra"
	"trail_bot/internal/strategy"
)

// Journal persists order actions and completed round trips for audit.
// Position state is never recovered from it.
type Journal interface {
	RecordOrderEvent(ev *domain.OrderEvent) error
	RecordTrade(tr *domain.TradeRecord) error
}

// Config carries the trading parameters the loop needs.
type Config struct {
	Symbol         string
	Leverage       int
	RiskPerTrade   decimal.Decimal
	InitialStopPct decimal.Decimal
	TrailPct       decimal.Decimal
	MinNotional    decimal.Decimal
	Interval       time.Duration
}

// Trader runs the trading loop: drain pending commands, snapshot the market,
// ratchet the trailing stop, then act on the strategy decision. It is the
// single writer of the position through the loop; the user-event handler is
// the other writer, so every access goes through posMu.
type Trader struct {
	cfg      Config
	ex       domain.Exchange
	store    *MarketStore
	decide   strategy.Decider
	commands *CommandQueue
	journal  Journal

	posMu    sync.Mutex
	pos      domain.Position
	openedAt time.Time

	now func() time.Time
}

// NewTrader wires a trader. journal may be nil (journaling disabled).
func NewTrader(cfg Config, ex domain.Exchange, store *MarketStore, journal Journal, decide strategy.Decider) *Trader {
	return &Trader{
		cfg:      cfg,
		ex:       ex,
		store:    store,
		decide:   decide,
		commands: NewCommandQueue(),
		journal:  journal,
		pos:      domain.NewPosition(),
		now:      time.Now,
	}
}

// Position returns a copy of the current position.
func (t *Trader) Position() domain.Position {
	t.posMu.Lock()
	defer t.posMu.Unlock()
	return t.pos
}

// Run configures the account, then iterates until ctx is cancelled. On
// shutdown any open position is closed best-effort with a fresh deadline.
func (t *Trader) Run(ctx context.Context) error {
	if err := t.ex.SetMarginType(ctx, domain.MarginTypeIsolated); err != nil {
		// Already-set margin type comes back as an exchange error; not fatal.
		slog.Warn("Set margin type failed", "error", err)
	}
	if err := t.ex.SetLeverage(ctx, t.cfg.Leverage); err != nil {
		slog.Warn("Set leverage failed", "error", err)
	}

	slog.Info("Trading loop started",
		"symbol", t.cfg.Symbol,
		"leverage", t.cfg.Leverage,
		"interval", t.cfg.Interval)

	ticker := time.NewTicker(t.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.shutdownClose()
			return ctx.Err()
		case <-ticker.C:
			t.step(ctx)
		}
	}
}

// step is one loop iteration. Every failure inside is logged and the
// iteration abandoned; the next tick retries from a fresh snapshot.
func (t *Trader) step(ctx context.Context) {
	t.executeCommands(ctx)

	snap := t.store.Snapshot()
	if !snap.Complete() {
		return
	}

	price, err := t.ex.FetchMarkPrice(ctx)
	if err != nil {
		slog.Warn("Mark price fetch failed", "error", err)
		infra.GlobalMetrics.RecordError()
		return
	}

	t.updateTrailingStop(ctx, price)

	t.posMu.Lock()
	crossed := t.pos.StopCrossed(price)
	t.posMu.Unlock()
	if crossed {
		t.closePosition(ctx, price, domain.CloseReasonStopCross)
	}

	sig := t.decide(snap)
	t.actOnSignal(ctx, sig, price)
}

// executeCommands drains the command queue and performs each one. Commands
// carry work the user-event handler must not do on its delivery goroutine.
func (t *Trader) executeCommands(ctx context.Context) {
	for _, cmd := range t.commands.Drain() {
		infra.GlobalMetrics.RecordCommand()
		switch c := cmd.(type) {
		case domain.PlaceStopOrderCommand:
			t.placeStop(ctx, c.Side, c.Qty, c.StopPrice)
		default:
			slog.Warn("Unknown command dropped", "command", cmd)
		}
	}
}

// placeStop submits a protective stop and records its id on the position.
// The write-back is fenced on the entry order id: if the position turned
// over while the network call was in flight, the result is discarded and
// the orphan order cancelled. A command that drains after the position
// already cleared is dropped without touching the exchange, otherwise both
// fence sides would read zero and a flat position would carry a stop.
func (t *Trader) placeStop(ctx context.Context, side string, qty, stopPrice decimal.Decimal) {
	t.posMu.Lock()
	entryID := t.pos.EntryOrderID
	open := t.pos.Open()
	t.posMu.Unlock()

	if !open || entryID == 0 {
		slog.Warn("Dropping stop command for cleared position",
			"side", side, "qty", qty, "stop_price", stopPrice)
		return
	}

	res, err := t.ex.PlaceStopOrder(ctx, side, qty, stopPrice)
	if err != nil {
		slog.Error("Stop order placement failed",
			"side", side, "qty", qty, "stop_price", stopPrice, "error", err)
		infra.GlobalMetrics.RecordOrderFailed()
		return
	}
	infra.GlobalMetrics.RecordOrderPlaced()
	t.journalOrderEvent(&domain.OrderEvent{
		OrderID: res.OrderID,
		Kind:    domain.OrderEventStop,
		Side:    side,
		Qty:     qty,
		Price:   stopPrice,
		Status:  res.Status,
	})

	t.posMu.Lock()
	stale := t.pos.EntryOrderID != entryID || !t.pos.Open()
	if !stale {
		t.pos.StopOrderID = res.OrderID
		t.pos.StopPrice = stopPrice
	}
	t.posMu.Unlock()

	if stale {
		slog.Warn("Position turned over during stop placement, cancelling orphan",
			"order_id", res.OrderID)
		if err := t.ex.CancelOrder(ctx, res.OrderID); err != nil {
			slog.Error("Orphan stop cancel failed", "order_id", res.OrderID, "error", err)
		}
		return
	}

	slog.Info("Stop order placed",
		"order_id", res.OrderID, "side", side, "stop_price", stopPrice)
}

// updateTrailingStop ratchets the stop toward the price whenever unrealized
// PnL makes a new high. The stop only ever tightens; a PnL pullback leaves
// it where it is.
func (t *Trader) updateTrailingStop(ctx context.Context, price decimal.Decimal) {
	t.posMu.Lock()
	pos := t.pos
	t.posMu.Unlock()

	if !pos.Open() {
		return
	}

	pnl := pos.UnrealizedPnl(price, t.cfg.Leverage)
	if pnl.LessThanOrEqual(pos.MaxPnl) || pnl.LessThanOrEqual(decimal.Zero) {
		return
	}

	one := decimal.NewFromInt(1)
	lev := decimal.NewFromInt(int64(t.cfg.Leverage))
	locked := pnl.Mul(one.Sub(t.cfg.TrailPct))
	offset := locked.Div(pos.Qty.Mul(lev))

	var newStop decimal.Decimal
	if pos.State == domain.PositionLong {
		newStop = pos.EntryPrice.Add(offset)
	} else {
		newStop = pos.EntryPrice.Sub(offset)
	}

	if newStop.Equal(pos.StopPrice) {
		t.posMu.Lock()
		if t.pos.EntryOrderID == pos.EntryOrderID {
			t.pos.MaxPnl = pnl
		}
		t.posMu.Unlock()
		return
	}

	if pos.StopOrderID != 0 {
		if err := t.ex.CancelOrder(ctx, pos.StopOrderID); err != nil {
			slog.Warn("Trailing stop cancel failed, keeping current stop",
				"order_id", pos.StopOrderID, "error", err)
			return
		}
		t.journalOrderEvent(&domain.OrderEvent{
			OrderID: pos.StopOrderID,
			Kind:    domain.OrderEventCancel,
			Side:    pos.CloseSide(),
			Status:  domain.OrderStatusCanceled,
		})
	}

	res, err := t.ex.PlaceStopOrder(ctx, pos.CloseSide(), pos.Qty, newStop)
	if err != nil {
		slog.Error("Trailing stop replacement failed",
			"stop_price", newStop, "error", err)
		infra.GlobalMetrics.RecordOrderFailed()
		// The old order is already cancelled; drop the recorded id so the
		// stop-cross check still protects the position at the old level.
		t.posMu.Lock()
		if t.pos.EntryOrderID == pos.EntryOrderID {
			t.pos.StopOrderID = 0
		}
		t.posMu.Unlock()
		return
	}
	infra.GlobalMetrics.RecordOrderPlaced()
	t.journalOrderEvent(&domain.OrderEvent{
		OrderID: res.OrderID,
		Kind:    domain.OrderEventStop,
		Side:    pos.CloseSide(),
		Qty:     pos.Qty,
		Price:   newStop,
		Status:  res.Status,
	})

	t.posMu.Lock()
	if t.pos.EntryOrderID == pos.EntryOrderID {
		t.pos.StopOrderID = res.OrderID
		t.pos.StopPrice = newStop
		t.pos.MaxPnl = pnl
	}
	t.posMu.Unlock()

	slog.Info("Trailing stop moved",
		"order_id", res.OrderID,
		"stop_price", newStop,
		"max_pnl", pnl)
}

// actOnSignal opens, flips, or holds according to the decision.
func (t *Trader) actOnSignal(ctx context.Context, sig strategy.Signal, price decimal.Decimal) {
	if sig == strategy.SignalHold {
		return
	}
	side := domain.SideBuy
	if sig == strategy.SignalSell {
		side = domain.SideSell
	}

	t.posMu.Lock()
	pos := t.pos
	t.posMu.Unlock()

	switch {
	case pos.PendingEntry():
		return
	case !pos.Open():
		t.enterPosition(ctx, side, price)
	case pos.Direction() != side:
		t.closePosition(ctx, price, domain.CloseReasonSignalFlip)
		t.enterPosition(ctx, side, price)
	}
}

// enterPosition sizes and submits a market entry. Quantity is available
// balance times risk fraction times leverage at the current price, rounded
// to three decimals; entries below the exchange minimum notional are skipped.
func (t *Trader) enterPosition(ctx context.Context, side string, price decimal.Decimal) {
	balance, err := t.ex.FetchAvailableBalance(ctx)
	if err != nil {
		slog.Warn("Balance fetch failed, skipping entry", "error", err)
		infra.GlobalMetrics.RecordError()
		return
	}

	lev := decimal.NewFromInt(int64(t.cfg.Leverage))
	qty := balance.Mul(t.cfg.RiskPerTrade).Mul(lev).Div(price).Round(3)

	if qty.Mul(price).LessThan(t.cfg.MinNotional) {
		slog.Warn("Entry below minimum notional, skipping",
			"qty", qty, "price", price, "min_notional", t.cfg.MinNotional)
		return
	}

	res, err := t.ex.PlaceMarketOrder(ctx, side, qty)
	if err != nil {
		slog.Error("Entry order failed", "side", side, "qty", qty, "error", err)
		infra.GlobalMetrics.RecordOrderFailed()
		return
	}
	infra.GlobalMetrics.RecordOrderPlaced()
	t.journalOrderEvent(&domain.OrderEvent{
		OrderID: res.OrderID,
		Kind:    domain.OrderEventEntry,
		Side:    side,
		Qty:     qty,
		Status:  res.Status,
	})

	// Pending-entry substate: direction stays none until the fill confirms.
	t.posMu.Lock()
	t.pos.EntryOrderID = res.OrderID
	t.posMu.Unlock()

	slog.Info("Entry order placed",
		"order_id", res.OrderID, "side", side, "qty", qty, "price", price)
}

// closePosition cancels the protective stop and market-closes the position,
// journaling the round trip. The final clear is fenced on the entry order id
// so a concurrent stop-fill reset is not clobbered.
func (t *Trader) closePosition(ctx context.Context, price decimal.Decimal, reason string) {
	t.posMu.Lock()
	pos := t.pos
	openedAt := t.openedAt
	t.posMu.Unlock()

	if !pos.Open() {
		return
	}

	if pos.StopOrderID != 0 {
		if err := t.ex.CancelOrder(ctx, pos.StopOrderID); err != nil {
			slog.Warn("Stop cancel on close failed",
				"order_id", pos.StopOrderID, "error", err)
		} else {
			t.journalOrderEvent(&domain.OrderEvent{
				OrderID: pos.StopOrderID,
				Kind:    domain.OrderEventCancel,
				Side:    pos.CloseSide(),
				Status:  domain.OrderStatusCanceled,
			})
		}
	}

	res, err := t.ex.PlaceMarketOrder(ctx, pos.CloseSide(), pos.Qty)
	if err != nil {
		slog.Error("Close order failed",
			"side", pos.CloseSide(), "qty", pos.Qty, "reason", reason, "error", err)
		infra.GlobalMetrics.RecordOrderFailed()
		return
	}
	infra.GlobalMetrics.RecordOrderPlaced()
	t.journalOrderEvent(&domain.OrderEvent{
		OrderID: res.OrderID,
		Kind:    domain.OrderEventClose,
		Side:    pos.CloseSide(),
		Qty:     pos.Qty,
		Status:  res.Status,
	})
	t.journalTrade(&domain.TradeRecord{
		Symbol:      t.cfg.Symbol,
		Side:        pos.Direction(),
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   price,
		Quantity:    pos.Qty,
		Leverage:    t.cfg.Leverage,
		Pnl:         pos.UnrealizedPnl(price, t.cfg.Leverage),
		CloseReason: reason,
		OpenedAt:    openedAt,
		ClosedAt:    t.now(),
	})

	t.posMu.Lock()
	if t.pos.EntryOrderID == pos.EntryOrderID {
		t.pos.Reset()
	}
	t.posMu.Unlock()

	slog.Info("Position closed",
		"side", pos.Direction(),
		"qty", pos.Qty,
		"exit_price", price,
		"reason", reason)
}

// shutdownClose closes any open position on termination with its own
// deadline, since the loop context is already cancelled.
func (t *Trader) shutdownClose() {
	t.posMu.Lock()
	open := t.pos.Open()
	t.posMu.Unlock()
	if !open {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	price, err := t.ex.FetchMarkPrice(ctx)
	if err != nil {
		slog.Error("Shutdown close: mark price unavailable, position left open", "error", err)
		return
	}
	t.closePosition(ctx, price, domain.CloseReasonShutdown)
}

func (t *Trader) journalOrderEvent(ev *domain.OrderEvent) {
	if t.journal == nil {
		return
	}
	if err := t.journal.RecordOrderEvent(ev); err != nil {
		slog.Warn("Order event journaling failed", "error", err)
	}
}

func (t *Trader) journalTrade(tr *domain.TradeRecord) {
	if t.journal == nil {
		return
	}
	if err := t.journal.RecordTrade(tr); err != nil {
		slog.Warn("Trade journaling failed", "error", err)
	}
}
