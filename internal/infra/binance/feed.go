package binance

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"

	"trail_bot/internal/domain"
	"trail_bot/internal/event"
)

// keepaliveInterval refreshes the user-data listen key well inside its
// 60-minute expiry.
const keepaliveInterval = 30 * time.Minute

// wsService abstracts the websocket entry points so the feed can be tested
// with scripted streams.
type wsService interface {
	WsDepthServe(symbol string, handler binance.WsDepthHandler, errHandler binance.ErrHandler) (doneC, stopC chan struct{}, err error)
	WsTradeServe(symbol string, handler binance.WsTradeHandler, errHandler binance.ErrHandler) (doneC, stopC chan struct{}, err error)
	WsAggTradeServe(symbol string, handler binance.WsAggTradeHandler, errHandler binance.ErrHandler) (doneC, stopC chan struct{}, err error)
	WsMarketStatServe(symbol string, handler binance.WsMarketStatHandler, errHandler binance.ErrHandler) (doneC, stopC chan struct{}, err error)

	StartUserStream(ctx context.Context) (string, error)
	KeepaliveUserStream(ctx context.Context, listenKey string) error
	WsUserDataServe(listenKey string, handler futures.WsUserDataHandler, errHandler futures.ErrHandler) (doneC, stopC chan struct{}, err error)
}

// realWsService forwards to the go-binance websocket functions.
type realWsService struct {
	fut *futures.Client
}

func (s *realWsService) WsDepthServe(symbol string, handler binance.WsDepthHandler, errHandler binance.ErrHandler) (chan struct{}, chan struct{}, error) {
	return binance.WsDepthServe(symbol, handler, errHandler)
}

func (s *realWsService) WsTradeServe(symbol string, handler binance.WsTradeHandler, errHandler binance.ErrHandler) (chan struct{}, chan struct{}, error) {
	return binance.WsTradeServe(symbol, handler, errHandler)
}

func (s *realWsService) WsAggTradeServe(symbol string, handler binance.WsAggTradeHandler, errHandler binance.ErrHandler) (chan struct{}, chan struct{}, error) {
	return binance.WsAggTradeServe(symbol, handler, errHandler)
}

func (s *realWsService) WsMarketStatServe(symbol string, handler binance.WsMarketStatHandler, errHandler binance.ErrHandler) (chan struct{}, chan struct{}, error) {
	return binance.WsMarketStatServe(symbol, handler, errHandler)
}

func (s *realWsService) StartUserStream(ctx context.Context) (string, error) {
	return s.fut.NewStartUserStreamService().Do(ctx)
}

func (s *realWsService) KeepaliveUserStream(ctx context.Context, listenKey string) error {
	return s.fut.NewKeepaliveUserStreamService().ListenKey(listenKey).Do(ctx)
}

func (s *realWsService) WsUserDataServe(listenKey string, handler futures.WsUserDataHandler, errHandler futures.ErrHandler) (chan struct{}, chan struct{}, error) {
	return futures.WsUserDataServe(listenKey, handler, errHandler)
}

// Feed implements domain.MarketFeed over Binance websocket streams: spot
// depth, trade, aggTrade and 24h ticker plus the futures user-data stream.
// Conversion on the delivery goroutines is allocation-light and parse-free;
// decoding to numbers happens downstream.
type Feed struct {
	symbol string
	ws     wsService

	mu         sync.Mutex
	started    bool
	userStream bool
	stops      []chan struct{}
}

// NewFeed creates a feed for one symbol using the futures client's
// credentials for the user-data stream.
func NewFeed(symbol string, fut *futures.Client) *Feed {
	return &Feed{symbol: symbol, ws: &realWsService{fut: fut}, userStream: true}
}

// DisableUserStream skips the authenticated user-data subscription, leaving
// only the public market streams. Dry runs need no credentials; their fill
// confirmations come from the simulated exchange instead.
func (f *Feed) DisableUserStream() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userStream = false
}

// Start subscribes all five streams. Idempotent. A subscription that fails
// to open aborts the start; stream errors after that are logged only, and
// the connection's built-in reconnect takes over.
func (f *Feed) Start(ctx context.Context, handlers domain.FeedHandlers) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return nil
	}

	errHandler := func(name string) func(error) {
		return func(err error) {
			slog.Error("Stream error", "stream", name, "error", err)
		}
	}

	_, stopC, err := f.ws.WsDepthServe(f.symbol, func(ev *binance.WsDepthEvent) {
		if handlers.OnDepth == nil {
			return
		}
		out := event.AcquireDepthUpdate()
		out.LastUpdateID = ev.LastUpdateID
		for _, b := range ev.Bids {
			out.Bids = append(out.Bids, domain.DepthLevel{Price: b.Price, Qty: b.Quantity})
		}
		for _, a := range ev.Asks {
			out.Asks = append(out.Asks, domain.DepthLevel{Price: a.Price, Qty: a.Quantity})
		}
		handlers.OnDepth(out)
	}, errHandler("depth"))
	if err != nil {
		return domain.NewNetworkError("subscribe depth", err)
	}
	f.stops = append(f.stops, stopC)

	_, stopC, err = f.ws.WsTradeServe(f.symbol, func(ev *binance.WsTradeEvent) {
		if handlers.OnTrade == nil {
			return
		}
		handlers.OnTrade(domain.TradeEvent{
			Price:        ev.Price,
			Qty:          ev.Quantity,
			Time:         ev.TradeTime,
			IsBuyerMaker: ev.IsBuyerMaker,
		})
	}, errHandler("trade"))
	if err != nil {
		f.stopLocked()
		return domain.NewNetworkError("subscribe trade", err)
	}
	f.stops = append(f.stops, stopC)

	_, stopC, err = f.ws.WsAggTradeServe(f.symbol, func(ev *binance.WsAggTradeEvent) {
		if handlers.OnAggTrade == nil {
			return
		}
		handlers.OnAggTrade(domain.TradeEvent{
			Price:        ev.Price,
			Qty:          ev.Quantity,
			Time:         ev.TradeTime,
			IsBuyerMaker: ev.IsBuyerMaker,
		})
	}, errHandler("agg_trade"))
	if err != nil {
		f.stopLocked()
		return domain.NewNetworkError("subscribe agg trade", err)
	}
	f.stops = append(f.stops, stopC)

	_, stopC, err = f.ws.WsMarketStatServe(f.symbol, func(ev *binance.WsMarketStatEvent) {
		if handlers.OnTicker == nil {
			return
		}
		handlers.OnTicker(domain.TickerUpdate{ChangePct: ev.PriceChangePercent})
	}, errHandler("ticker"))
	if err != nil {
		f.stopLocked()
		return domain.NewNetworkError("subscribe ticker", err)
	}
	f.stops = append(f.stops, stopC)

	if f.userStream {
		if err := f.startUserStreamLocked(ctx, handlers); err != nil {
			f.stopLocked()
			return err
		}
	}

	f.started = true
	slog.Info("Market feed started", "symbol", f.symbol)
	return nil
}

// startUserStreamLocked opens the futures user-data stream and keeps its
// listen key alive until the feed stops.
func (f *Feed) startUserStreamLocked(ctx context.Context, handlers domain.FeedHandlers) error {
	listenKey, err := f.ws.StartUserStream(ctx)
	if err != nil {
		return domain.NewNetworkError("start user stream", err)
	}

	_, stopC, err := f.ws.WsUserDataServe(listenKey, func(ev *futures.WsUserDataEvent) {
		if ev.Event != futures.UserDataEventTypeOrderTradeUpdate || handlers.OnOrderUpdate == nil {
			return
		}
		update, err := convertOrderUpdate(&ev.OrderTradeUpdate)
		if err != nil {
			slog.Error("Malformed order update dropped",
				"order_id", ev.OrderTradeUpdate.ID, "error", err)
			return
		}
		handlers.OnOrderUpdate(update)
	}, func(err error) {
		slog.Error("Stream error", "stream", "user_data", "error", err)
	})
	if err != nil {
		return domain.NewNetworkError("subscribe user stream", err)
	}
	f.stops = append(f.stops, stopC)

	keepaliveStop := make(chan struct{})
	f.stops = append(f.stops, keepaliveStop)
	go func() {
		ticker := time.NewTicker(keepaliveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-keepaliveStop:
				return
			case <-ticker.C:
				if err := f.ws.KeepaliveUserStream(context.Background(), listenKey); err != nil {
					slog.Warn("Listen key keepalive failed", "error", err)
				}
			}
		}
	}()

	return nil
}

// convertOrderUpdate decodes the numeric fields of a raw order event.
func convertOrderUpdate(raw *futures.WsOrderTradeUpdate) (domain.OrderUpdate, error) {
	avg, err := decimal.NewFromString(raw.AveragePrice)
	if err != nil {
		return domain.OrderUpdate{}, err
	}
	filled, err := decimal.NewFromString(raw.AccumulatedFilledQty)
	if err != nil {
		return domain.OrderUpdate{}, err
	}
	return domain.OrderUpdate{
		OrderID:   raw.ID,
		Status:    string(raw.Status),
		Side:      string(raw.Side),
		AvgPrice:  avg,
		FilledQty: filled,
	}, nil
}

// Stop tears down all subscriptions.
func (f *Feed) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopLocked()
	f.started = false
}

func (f *Feed) stopLocked() {
	for _, stopC := range f.stops {
		close(stopC)
	}
	f.stops = nil
}
