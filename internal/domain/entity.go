package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Close reasons recorded in the trade journal.
const (
	CloseReasonStopFill   = "STOP_FILL"   // protective stop order filled
	CloseReasonStopCross  = "STOP_CROSS"  // loop closed after price crossed the stop
	CloseReasonSignalFlip = "SIGNAL_FLIP" // decision flipped to the opposite side
	CloseReasonShutdown   = "SHUTDOWN"    // best-effort close on termination
)

// TradeRecord is one completed round trip (entry to exit) in the journal.
// Audit only; position state is never recovered from it.
type TradeRecord struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Symbol      string          `gorm:"index" json:"symbol"`
	Side        string          `json:"side"` // direction of the position (BUY=long)
	EntryPrice  decimal.Decimal `json:"entry_price"`
	ExitPrice   decimal.Decimal `json:"exit_price"`
	Quantity    decimal.Decimal `json:"quantity"`
	Leverage    int             `json:"leverage"`
	Pnl         decimal.Decimal `json:"pnl"`
	CloseReason string          `json:"close_reason"`
	OpenedAt    time.Time       `json:"opened_at"`
	ClosedAt    time.Time       `json:"closed_at"`
}

// Kinds of journaled order events.
const (
	OrderEventEntry  = "ENTRY"
	OrderEventStop   = "STOP"
	OrderEventClose  = "CLOSE"
	OrderEventCancel = "CANCEL"
	OrderEventFill   = "FILL"
)

// OrderEvent is one journaled order action or confirmation.
type OrderEvent struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   int64           `gorm:"index" json:"order_id"`
	Kind      string          `json:"kind"`
	Side      string          `json:"side"`
	Qty       decimal.Decimal `json:"qty"`
	Price     decimal.Decimal `json:"price"` // stop/fill price, zero for market submissions
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}
