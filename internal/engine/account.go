package engine

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"trail_bot/internal/domain"
	"trail_bot/internal/infra"
)

// HandleOrderUpdate consumes order-lifecycle events from the user-data
// stream. It runs on the feed's delivery goroutine, so it only mutates the
// position and enqueues commands; order placement happens in the loop, and
// journal I/O happens after the lock is released.
//
// Only FILLED events matter: an entry fill arms the position and requests
// its protective stop, a stop fill clears the position. Events for unknown
// order ids (manual orders, stale confirmations after a reset) are ignored.
func (t *Trader) HandleOrderUpdate(ev domain.OrderUpdate) {
	if ev.Status != domain.OrderStatusFilled {
		return
	}
	infra.GlobalMetrics.RecordOrderFilled()

	var (
		fill  *domain.OrderEvent
		trade *domain.TradeRecord
	)
	t.posMu.Lock()
	switch {
	case ev.OrderID != 0 && ev.OrderID == t.pos.EntryOrderID:
		fill = t.applyEntryFillLocked(ev)
	case ev.OrderID != 0 && ev.OrderID == t.pos.StopOrderID:
		fill, trade = t.applyStopFillLocked(ev)
	default:
		slog.Debug("Ignoring fill for unknown order", "order_id", ev.OrderID)
	}
	t.posMu.Unlock()

	if fill != nil {
		t.journalOrderEvent(fill)
	}
	if trade != nil {
		t.journalTrade(trade)
	}
}

// applyEntryFillLocked arms the position from the confirmed entry fill and
// enqueues the protective stop at the fixed initial distance from the entry.
// Returns the fill record for the caller to journal outside the lock.
func (t *Trader) applyEntryFillLocked(ev domain.OrderUpdate) *domain.OrderEvent {
	if ev.Side == domain.SideBuy {
		t.pos.State = domain.PositionLong
	} else {
		t.pos.State = domain.PositionShort
	}
	t.pos.EntryPrice = ev.AvgPrice
	t.pos.Qty = ev.FilledQty
	t.pos.MaxPnl = decimal.Zero
	t.openedAt = t.now()

	one := decimal.NewFromInt(1)
	if t.pos.State == domain.PositionLong {
		t.pos.StopPrice = ev.AvgPrice.Mul(one.Sub(t.cfg.InitialStopPct))
	} else {
		t.pos.StopPrice = ev.AvgPrice.Mul(one.Add(t.cfg.InitialStopPct))
	}

	t.commands.Push(domain.PlaceStopOrderCommand{
		Side:      t.pos.CloseSide(),
		Qty:       t.pos.Qty,
		StopPrice: t.pos.StopPrice,
	})

	slog.Info("Entry fill confirmed",
		"order_id", ev.OrderID,
		"state", t.pos.State,
		"entry_price", t.pos.EntryPrice,
		"qty", t.pos.Qty,
		"stop_price", t.pos.StopPrice)

	return &domain.OrderEvent{
		OrderID: ev.OrderID,
		Kind:    domain.OrderEventFill,
		Side:    ev.Side,
		Qty:     ev.FilledQty,
		Price:   ev.AvgPrice,
		Status:  ev.Status,
	}
}

// applyStopFillLocked clears the position and builds the records of the
// stopped-out round trip. Reset is idempotent, so racing with a loop-side
// close is safe.
func (t *Trader) applyStopFillLocked(ev domain.OrderUpdate) (*domain.OrderEvent, *domain.TradeRecord) {
	fill := &domain.OrderEvent{
		OrderID: ev.OrderID,
		Kind:    domain.OrderEventFill,
		Side:    ev.Side,
		Qty:     ev.FilledQty,
		Price:   ev.AvgPrice,
		Status:  ev.Status,
	}
	trade := &domain.TradeRecord{
		Symbol:      t.cfg.Symbol,
		Side:        t.pos.Direction(),
		EntryPrice:  t.pos.EntryPrice,
		ExitPrice:   ev.AvgPrice,
		Quantity:    t.pos.Qty,
		Leverage:    t.cfg.Leverage,
		Pnl:         t.pos.UnrealizedPnl(ev.AvgPrice, t.cfg.Leverage),
		CloseReason: domain.CloseReasonStopFill,
		OpenedAt:    t.openedAt,
		ClosedAt:    t.now(),
	}

	slog.Info("Stop fill confirmed, position cleared",
		"order_id", ev.OrderID,
		"exit_price", ev.AvgPrice)

	t.pos.Reset()
	return fill, trade
}
