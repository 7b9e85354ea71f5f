package domain

const (
	SideBuy  = "BUY"
	SideSell = "SELL"

	OrderStatusNew      = "NEW"
	OrderStatusFilled   = "FILLED"
	OrderStatusCanceled = "CANCELED"
	OrderStatusFailed   = "FAILED"

	MarginTypeIsolated = "ISOLATED"
)

// OppositeSide returns the side that closes a position entered on side.
func OppositeSide(side string) string {
	if side == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderResult is the exchange's answer to an order submission. A failed
// submission is surfaced as {OrderID: 0, Status: FAILED} alongside the error
// so callers can log and continue without special-casing nil results.
type OrderResult struct {
	OrderID int64
	Status  string
}

// Failed reports whether the submission was rejected or never reached the
// exchange.
func (r OrderResult) Failed() bool {
	return r.Status == OrderStatusFailed || r.OrderID == 0
}

// FailedOrder is the sentinel result for a submission that did not go through.
func FailedOrder() OrderResult {
	return OrderResult{Status: OrderStatusFailed}
}
