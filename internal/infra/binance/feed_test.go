package binance

import (
	"context"
	"errors"
	"testing"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"

	"trail_bot/internal/domain"
)

// mockWsService emits scripted events synchronously on subscribe.
type mockWsService struct {
	depthEvents  []*binance.WsDepthEvent
	tradeEvents  []*binance.WsTradeEvent
	aggEvents    []*binance.WsAggTradeEvent
	statEvents   []*binance.WsMarketStatEvent
	userEvents   []*futures.WsUserDataEvent
	depthErr     error
	userStartErr error

	listenKey      string
	keepaliveCalls int
}

func newStopChans() (chan struct{}, chan struct{}) {
	return make(chan struct{}), make(chan struct{})
}

func (m *mockWsService) WsDepthServe(symbol string, handler binance.WsDepthHandler, errHandler binance.ErrHandler) (chan struct{}, chan struct{}, error) {
	if m.depthErr != nil {
		return nil, nil, m.depthErr
	}
	for _, ev := range m.depthEvents {
		handler(ev)
	}
	doneC, stopC := newStopChans()
	return doneC, stopC, nil
}

func (m *mockWsService) WsTradeServe(symbol string, handler binance.WsTradeHandler, errHandler binance.ErrHandler) (chan struct{}, chan struct{}, error) {
	for _, ev := range m.tradeEvents {
		handler(ev)
	}
	doneC, stopC := newStopChans()
	return doneC, stopC, nil
}

func (m *mockWsService) WsAggTradeServe(symbol string, handler binance.WsAggTradeHandler, errHandler binance.ErrHandler) (chan struct{}, chan struct{}, error) {
	for _, ev := range m.aggEvents {
		handler(ev)
	}
	doneC, stopC := newStopChans()
	return doneC, stopC, nil
}

func (m *mockWsService) WsMarketStatServe(symbol string, handler binance.WsMarketStatHandler, errHandler binance.ErrHandler) (chan struct{}, chan struct{}, error) {
	for _, ev := range m.statEvents {
		handler(ev)
	}
	doneC, stopC := newStopChans()
	return doneC, stopC, nil
}

func (m *mockWsService) StartUserStream(context.Context) (string, error) {
	if m.userStartErr != nil {
		return "", m.userStartErr
	}
	m.listenKey = "test-listen-key"
	return m.listenKey, nil
}

func (m *mockWsService) KeepaliveUserStream(_ context.Context, listenKey string) error {
	m.keepaliveCalls++
	return nil
}

func (m *mockWsService) WsUserDataServe(listenKey string, handler futures.WsUserDataHandler, errHandler futures.ErrHandler) (chan struct{}, chan struct{}, error) {
	for _, ev := range m.userEvents {
		handler(ev)
	}
	doneC, stopC := newStopChans()
	return doneC, stopC, nil
}

// collector gathers converted events from the feed.
type collector struct {
	depths  []*domain.DepthUpdate
	trades  []domain.TradeEvent
	aggs    []domain.TradeEvent
	tickers []domain.TickerUpdate
	orders  []domain.OrderUpdate
}

func (c *collector) handlers() domain.FeedHandlers {
	return domain.FeedHandlers{
		OnDepth:       func(ev *domain.DepthUpdate) { c.depths = append(c.depths, ev) },
		OnTrade:       func(ev domain.TradeEvent) { c.trades = append(c.trades, ev) },
		OnAggTrade:    func(ev domain.TradeEvent) { c.aggs = append(c.aggs, ev) },
		OnTicker:      func(ev domain.TickerUpdate) { c.tickers = append(c.tickers, ev) },
		OnOrderUpdate: func(ev domain.OrderUpdate) { c.orders = append(c.orders, ev) },
	}
}

func TestFeed_ConvertsMarketEvents(t *testing.T) {
	ws := &mockWsService{
		depthEvents: []*binance.WsDepthEvent{{
			LastUpdateID: 1234,
			Bids:         []binance.Bid{{Price: "100.5", Quantity: "3"}},
			Asks:         []binance.Ask{{Price: "101.0", Quantity: "0"}},
		}},
		tradeEvents: []*binance.WsTradeEvent{{
			Price: "100.7", Quantity: "2", TradeTime: 1700000000000, IsBuyerMaker: true,
		}},
		statEvents: []*binance.WsMarketStatEvent{{PriceChangePercent: "-1.25"}},
	}
	f := &Feed{symbol: "LTCUSDT", ws: ws, userStream: true}
	var c collector

	if err := f.Start(context.Background(), c.handlers()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer f.Stop()

	if len(c.depths) != 1 {
		t.Fatalf("Expected 1 depth event, got %d", len(c.depths))
	}
	d := c.depths[0]
	if d.LastUpdateID != 1234 {
		t.Errorf("Expected update id 1234, got %d", d.LastUpdateID)
	}
	if len(d.Bids) != 1 || d.Bids[0] != (domain.DepthLevel{Price: "100.5", Qty: "3"}) {
		t.Errorf("Unexpected bids %v", d.Bids)
	}
	if len(d.Asks) != 1 || d.Asks[0].Qty != "0" {
		t.Errorf("Zero-quantity ask must be forwarded, got %v", d.Asks)
	}

	if len(c.trades) != 1 {
		t.Fatalf("Expected 1 trade event, got %d", len(c.trades))
	}
	tr := c.trades[0]
	if tr.Price != "100.7" || tr.Qty != "2" || tr.Time != 1700000000000 || !tr.IsBuyerMaker {
		t.Errorf("Unexpected trade event %+v", tr)
	}

	if len(c.tickers) != 1 || c.tickers[0].ChangePct != "-1.25" {
		t.Errorf("Unexpected ticker events %v", c.tickers)
	}
}

func TestFeed_ConvertsOrderUpdates(t *testing.T) {
	ws := &mockWsService{
		userEvents: []*futures.WsUserDataEvent{
			{
				Event: futures.UserDataEventTypeOrderTradeUpdate,
				WsUserDataOrderTradeUpdate: futures.WsUserDataOrderTradeUpdate{
					OrderTradeUpdate: futures.WsOrderTradeUpdate{
						ID:                   42,
						Status:               futures.OrderStatusType(domain.OrderStatusFilled),
						Side:                 futures.SideType(domain.SideBuy),
						AveragePrice:         "100.25",
						AccumulatedFilledQty: "1.5",
					},
				},
			},
			// Other user-data event kinds are ignored.
			{Event: futures.UserDataEventTypeAccountUpdate},
			// Malformed numeric payloads are dropped, not delivered.
			{
				Event: futures.UserDataEventTypeOrderTradeUpdate,
				WsUserDataOrderTradeUpdate: futures.WsUserDataOrderTradeUpdate{
					OrderTradeUpdate: futures.WsOrderTradeUpdate{
						ID:           43,
						AveragePrice: "not-a-number",
					},
				},
			},
		},
	}
	f := &Feed{symbol: "LTCUSDT", ws: ws, userStream: true}
	var c collector

	if err := f.Start(context.Background(), c.handlers()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer f.Stop()

	if len(c.orders) != 1 {
		t.Fatalf("Expected exactly 1 order update, got %d", len(c.orders))
	}
	ev := c.orders[0]
	if ev.OrderID != 42 || ev.Status != domain.OrderStatusFilled || ev.Side != domain.SideBuy {
		t.Errorf("Unexpected order update %+v", ev)
	}
	if !ev.AvgPrice.Equal(decimal.RequireFromString("100.25")) {
		t.Errorf("Expected avg price 100.25, got %s", ev.AvgPrice)
	}
	if !ev.FilledQty.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("Expected filled qty 1.5, got %s", ev.FilledQty)
	}
	if ws.listenKey == "" {
		t.Error("Expected user stream to be started")
	}
}

func TestFeed_StartFailureAborts(t *testing.T) {
	ws := &mockWsService{depthErr: errors.New("dial failed")}
	f := &Feed{symbol: "LTCUSDT", ws: ws, userStream: true}

	err := f.Start(context.Background(), domain.FeedHandlers{})
	if err == nil {
		t.Fatal("Expected error when a subscription fails")
	}
	if !domain.IsRetriable(err) {
		t.Error("Subscription failure should be retriable")
	}
}

func TestFeed_DisabledUserStreamNeedsNoAuth(t *testing.T) {
	// Without credentials the listen-key request fails; a feed with the user
	// stream disabled must start anyway on the public streams alone.
	ws := &mockWsService{
		userStartErr: errors.New("API-key format invalid"),
		statEvents:   []*binance.WsMarketStatEvent{{PriceChangePercent: "0.5"}},
	}
	f := &Feed{symbol: "LTCUSDT", ws: ws, userStream: true}
	f.DisableUserStream()
	var c collector

	if err := f.Start(context.Background(), c.handlers()); err != nil {
		t.Fatalf("Start failed with user stream disabled: %v", err)
	}
	defer f.Stop()

	if ws.listenKey != "" {
		t.Error("Disabled user stream must not be started")
	}
	if len(c.tickers) != 1 {
		t.Errorf("Public streams must still deliver, got %d ticker events", len(c.tickers))
	}
}

func TestFeed_StartIdempotent(t *testing.T) {
	ws := &mockWsService{
		statEvents: []*binance.WsMarketStatEvent{{PriceChangePercent: "1.0"}},
	}
	f := &Feed{symbol: "LTCUSDT", ws: ws, userStream: true}
	var c collector

	if err := f.Start(context.Background(), c.handlers()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer f.Stop()

	if err := f.Start(context.Background(), c.handlers()); err != nil {
		t.Fatalf("Second start failed: %v", err)
	}
	if len(c.tickers) != 1 {
		t.Errorf("Second start must not resubscribe, got %d ticker events", len(c.tickers))
	}
}
