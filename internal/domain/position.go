package domain

import "github.com/shopspring/decimal"

// PositionState is the direction of the current position.
type PositionState string

const (
	PositionNone  PositionState = "none"
	PositionLong  PositionState = "long"
	PositionShort PositionState = "short"
)

// Position is the process-wide record of the single directional position.
//
// Invariant: State == PositionNone implies every other field is zero, except
// that EntryOrderID may be set while an entry order is awaiting its fill
// confirmation (the implicit pending-entry substate). State long/short
// implies EntryPrice and Qty are non-zero.
//
// An order id of zero means "no order"; exchange ids start at 1.
type Position struct {
	State        PositionState
	EntryOrderID int64
	StopOrderID  int64
	EntryPrice   decimal.Decimal
	Qty          decimal.Decimal
	MaxPnl       decimal.Decimal // best unrealized PnL seen since entry
	StopPrice    decimal.Decimal
}

// NewPosition returns the none-baseline position.
func NewPosition() Position {
	return Position{State: PositionNone}
}

// Reset clears the position back to the none baseline. Calling it on an
// already-reset position is a no-op, which keeps the two clearing paths
// (stop-fill confirmation and manual close) idempotent.
func (p *Position) Reset() {
	*p = Position{State: PositionNone}
}

// Open reports whether a directional position is held.
func (p Position) Open() bool {
	return p.State == PositionLong || p.State == PositionShort
}

// PendingEntry reports whether an entry order is awaiting fill confirmation.
func (p Position) PendingEntry() bool {
	return p.State == PositionNone && p.EntryOrderID != 0
}

// Direction returns the entry side of the position, or "" when flat.
func (p Position) Direction() string {
	switch p.State {
	case PositionLong:
		return SideBuy
	case PositionShort:
		return SideSell
	default:
		return ""
	}
}

// CloseSide returns the side of an order that closes the position.
func (p Position) CloseSide() string {
	return OppositeSide(p.Direction())
}

// UnrealizedPnl computes the leveraged PnL of the position at the given mark
// price. Zero when flat.
func (p Position) UnrealizedPnl(price decimal.Decimal, leverage int) decimal.Decimal {
	lev := decimal.NewFromInt(int64(leverage))
	switch p.State {
	case PositionLong:
		return price.Sub(p.EntryPrice).Mul(p.Qty).Mul(lev)
	case PositionShort:
		return p.EntryPrice.Sub(price).Mul(p.Qty).Mul(lev)
	default:
		return decimal.Zero
	}
}

// StopCrossed reports whether the mark price has crossed the recorded stop
// price against the position.
func (p Position) StopCrossed(price decimal.Decimal) bool {
	if !p.Open() || p.StopPrice.IsZero() {
		return false
	}
	if p.State == PositionLong {
		return price.LessThanOrEqual(p.StopPrice)
	}
	return price.GreaterThanOrEqual(p.StopPrice)
}
