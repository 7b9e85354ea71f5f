package domain

import "github.com/shopspring/decimal"

// OrderBookSide maps a price level (exchange string form, kept verbatim so
// equal prices always hash to the same level) to the resting quantity.
// A quantity of zero means the level was cleared; it is stored rather than
// deleted, and readers treat zero levels as absent.
type OrderBookSide map[string]decimal.Decimal

// Clone returns a deep copy of the side.
func (s OrderBookSide) Clone() OrderBookSide {
	out := make(OrderBookSide, len(s))
	for price, qty := range s {
		out[price] = qty
	}
	return out
}

// TotalQty sums the resting quantity over all levels.
func (s OrderBookSide) TotalQty() decimal.Decimal {
	total := decimal.Zero
	for _, qty := range s {
		total = total.Add(qty)
	}
	return total
}

// OrderBook holds both sides of the book for the traded symbol.
// LastUpdateID tracks the most recent delta id for observability only;
// it is never validated against the previous value (no gap detection).
type OrderBook struct {
	Bids         OrderBookSide
	Asks         OrderBookSide
	LastUpdateID int64
}

// NewOrderBook returns an empty book with both sides allocated.
func NewOrderBook() OrderBook {
	return OrderBook{
		Bids: make(OrderBookSide),
		Asks: make(OrderBookSide),
	}
}

// Clone returns a deep copy of the book.
func (b OrderBook) Clone() OrderBook {
	return OrderBook{
		Bids:         b.Bids.Clone(),
		Asks:         b.Asks.Clone(),
		LastUpdateID: b.LastUpdateID,
	}
}

// Trade is one executed trade as held in the recent-trade window.
type Trade struct {
	Price        decimal.Decimal
	Qty          decimal.Decimal
	Time         int64 // exchange clock, milliseconds
	IsBuyerMaker bool
	Side         string // SideBuy / SideSell, derived from the maker flag
}

// TradeSide derives the taker side from the buyer-maker flag.
func TradeSide(isBuyerMaker bool) string {
	if isBuyerMaker {
		return SideSell
	}
	return SideBuy
}

// VolumeBucket is the cumulative traded quantity within one minute.
type VolumeBucket struct {
	MinuteUnix int64 // minute-aligned unix seconds
	Volume     decimal.Decimal
}

// Snapshot is an immutable point-in-time copy of the market state. It shares
// no memory with the live store, so holders may read or mutate it freely
// without a lock.
type Snapshot struct {
	Book      OrderBook
	Trades    []Trade
	Volumes   []VolumeBucket
	TickerPct decimal.Decimal
}

// Complete reports whether the snapshot carries both sides of the book.
// The trading loop skips an iteration on an incomplete snapshot.
func (s Snapshot) Complete() bool {
	return len(s.Book.Bids) > 0 && len(s.Book.Asks) > 0
}

// LastPrice returns the price of the most recent trade, or zero when the
// trade window is empty.
func (s Snapshot) LastPrice() decimal.Decimal {
	if len(s.Trades) == 0 {
		return decimal.Zero
	}
	return s.Trades[len(s.Trades)-1].Price
}

// DepthLevel is one (price, quantity) pair of a depth delta, carried in the
// exchange's string form so the producer does no parsing on the delivery
// goroutine.
type DepthLevel struct {
	Price string
	Qty   string
}

// DepthUpdate is a decoded order-book delta from the depth stream.
type DepthUpdate struct {
	Bids         []DepthLevel
	Asks         []DepthLevel
	LastUpdateID int64
}

// TradeEvent is a decoded trade (or aggregated trade) from the feed, still in
// string form; the category consumer parses it.
type TradeEvent struct {
	Price        string
	Qty          string
	Time         int64 // exchange clock, milliseconds
	IsBuyerMaker bool
}

// TickerUpdate carries the 24h price-change percentage from the ticker stream.
type TickerUpdate struct {
	ChangePct string
}

// OrderUpdate is a decoded order-lifecycle event from the user-data stream.
type OrderUpdate struct {
	OrderID   int64
	Status    string
	Side      string
	AvgPrice  decimal.Decimal // average fill price
	FilledQty decimal.Decimal // cumulative filled quantity
}
