package domain

import "github.com/shopspring/decimal"

// Command is an instruction passed from the user-event adapter to the trading
// loop. Order placement must never happen on the event-delivery goroutine, so
// the adapter enqueues a command and the loop executes it on its next
// iteration. Ownership transfers fully to the receiver on dequeue.
type Command interface {
	commandTag()
}

// PlaceStopOrderCommand requests a reduce-only stop-market order protecting a
// freshly confirmed entry.
type PlaceStopOrderCommand struct {
	Side      string
	Qty       decimal.Decimal
	StopPrice decimal.Decimal
}

func (PlaceStopOrderCommand) commandTag() {}
