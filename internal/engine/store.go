package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"trail_bot/internal/domain"
	"trail_bot/internal/event"
	"trail_bot/internal/infra"
)

const (
	// TradeWindow bounds the recent-trade ring.
	TradeWindow = 100
	// VolumeWindow bounds the per-minute volume bucket history.
	VolumeWindow = 20
)

// MarketStore owns the live market state for one symbol. Feed goroutines
// push raw events into per-stream bounded queues; one consumer goroutine
// per stream parses and merges them into the state under a single mutex.
// Readers take deep-copy snapshots and never hold the lock while trading.
type MarketStore struct {
	mu        sync.Mutex
	book      domain.OrderBook
	trades    []domain.Trade
	volumes   []domain.VolumeBucket
	tickerPct decimal.Decimal

	depthQ  *Queue[*domain.DepthUpdate]
	tradeQ  *Queue[domain.TradeEvent]
	aggQ    *Queue[domain.TradeEvent]
	tickerQ *Queue[domain.TickerUpdate]

	started atomic.Bool
	now     func() time.Time // injectable for tests
}

// NewMarketStore creates a store with all four stream queues sized to
// queueSize.
func NewMarketStore(queueSize int) *MarketStore {
	return &MarketStore{
		book:    domain.NewOrderBook(),
		trades:  make([]domain.Trade, 0, TradeWindow),
		depthQ:  NewQueue[*domain.DepthUpdate]("depth", queueSize),
		tradeQ:  NewQueue[domain.TradeEvent]("trade", queueSize),
		aggQ:    NewQueue[domain.TradeEvent]("agg_trade", queueSize),
		tickerQ: NewQueue[domain.TickerUpdate]("ticker", queueSize),
		now:     time.Now,
	}
}

// Start launches one consumer goroutine per stream queue. Subsequent calls
// are no-ops. Consumers exit when ctx is cancelled.
func (s *MarketStore) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go s.depthQ.Consume(ctx, s.applyDepth)
	go s.tradeQ.Consume(ctx, s.applyTrade)
	go s.aggQ.Consume(ctx, s.applyTrade)
	go s.tickerQ.Consume(ctx, s.applyTicker)
	slog.Info("Market store consumers started")
}

// Handlers returns feed callbacks that enqueue raw events without blocking.
// OnOrderUpdate is left nil; the trader wires its own handler.
func (s *MarketStore) Handlers() domain.FeedHandlers {
	return domain.FeedHandlers{
		OnDepth: func(ev *domain.DepthUpdate) {
			if !s.depthQ.TryPush(ev) {
				event.ReleaseDepthUpdate(ev)
			}
		},
		OnTrade:    func(ev domain.TradeEvent) { s.tradeQ.TryPush(ev) },
		OnAggTrade: func(ev domain.TradeEvent) { s.aggQ.TryPush(ev) },
		OnTicker:   func(ev domain.TickerUpdate) { s.tickerQ.TryPush(ev) },
	}
}

// applyDepth merges a depth delta into the book. Levels are overwritten
// last-writer-wins; zero quantities are stored, not deleted. The update id
// replaces the previous one unconditionally.
func (s *MarketStore) applyDepth(ev *domain.DepthUpdate) {
	start := time.Now()

	s.mu.Lock()
	for _, lv := range ev.Bids {
		s.book.Bids[lv.Price] = decimal.RequireFromString(lv.Qty)
	}
	for _, lv := range ev.Asks {
		s.book.Asks[lv.Price] = decimal.RequireFromString(lv.Qty)
	}
	s.book.LastUpdateID = ev.LastUpdateID
	s.mu.Unlock()

	event.ReleaseDepthUpdate(ev)
	infra.GlobalMetrics.RecordEvent(time.Since(start).Nanoseconds())
}

// applyTrade appends a trade to the ring and recomputes the current minute's
// volume bucket. Trade and aggTrade streams share this path.
func (s *MarketStore) applyTrade(ev domain.TradeEvent) {
	start := time.Now()

	tr := domain.Trade{
		Price:        decimal.RequireFromString(ev.Price),
		Qty:          decimal.RequireFromString(ev.Qty),
		Time:         ev.Time,
		IsBuyerMaker: ev.IsBuyerMaker,
		Side:         domain.TradeSide(ev.IsBuyerMaker),
	}

	s.mu.Lock()
	if len(s.trades) >= TradeWindow {
		copy(s.trades, s.trades[1:])
		s.trades = s.trades[:TradeWindow-1]
	}
	s.trades = append(s.trades, tr)
	s.recomputeVolumesLocked()
	s.mu.Unlock()

	infra.GlobalMetrics.RecordEvent(time.Since(start).Nanoseconds())
}

// recomputeVolumesLocked rebuilds the current minute's bucket from the trade
// window. The bucket minute comes from the local wall clock, not the trade
// timestamps, so an idle minute leaves no bucket behind.
func (s *MarketStore) recomputeVolumesLocked() {
	currentMinute := s.now().Unix() / 60 * 60

	vol := decimal.Zero
	for _, tr := range s.trades {
		if tr.Time/1000 >= currentMinute {
			vol = vol.Add(tr.Qty)
		}
	}

	n := len(s.volumes)
	if n > 0 && s.volumes[n-1].MinuteUnix == currentMinute {
		s.volumes[n-1].Volume = vol
		return
	}
	s.volumes = append(s.volumes, domain.VolumeBucket{MinuteUnix: currentMinute, Volume: vol})
	if len(s.volumes) > VolumeWindow {
		copy(s.volumes, s.volumes[1:])
		s.volumes = s.volumes[:VolumeWindow]
	}
}

// applyTicker overwrites the 24h change percentage.
func (s *MarketStore) applyTicker(ev domain.TickerUpdate) {
	start := time.Now()

	pct := decimal.RequireFromString(ev.ChangePct)

	s.mu.Lock()
	s.tickerPct = pct
	s.mu.Unlock()

	infra.GlobalMetrics.RecordEvent(time.Since(start).Nanoseconds())
}

// Snapshot returns a deep copy of the market state. The copy shares no
// memory with the store; callers read it lock-free.
func (s *MarketStore) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	trades := make([]domain.Trade, len(s.trades))
	copy(trades, s.trades)
	volumes := make([]domain.VolumeBucket, len(s.volumes))
	copy(volumes, s.volumes)

	return domain.Snapshot{
		Book:      s.book.Clone(),
		Trades:    trades,
		Volumes:   volumes,
		TickerPct: s.tickerPct,
	}
}

// Bootstrap seeds the book, trade window and ticker from REST before the
// websocket streams take over. Failures are logged and skipped; the streams
// will fill the gaps.
func (s *MarketStore) Bootstrap(ctx context.Context, ex domain.Exchange) {
	book, err := ex.FetchDepth(ctx, 20)
	if err != nil {
		slog.Warn("Bootstrap depth fetch failed", "error", err)
	} else {
		s.mu.Lock()
		s.book = book
		s.mu.Unlock()
	}

	trades, err := ex.FetchRecentTrades(ctx, TradeWindow)
	if err != nil {
		slog.Warn("Bootstrap trades fetch failed", "error", err)
	} else {
		s.mu.Lock()
		if len(trades) > TradeWindow {
			trades = trades[len(trades)-TradeWindow:]
		}
		s.trades = append(s.trades[:0], trades...)
		s.recomputeVolumesLocked()
		s.mu.Unlock()
	}

	pct, err := ex.FetchTickerChangePct(ctx)
	if err != nil {
		slog.Warn("Bootstrap ticker fetch failed", "error", err)
	} else {
		s.mu.Lock()
		s.tickerPct = pct
		s.mu.Unlock()
	}

	slog.Info("Market store bootstrapped",
		"bids", len(book.Bids),
		"asks", len(book.Asks),
		"trades", len(trades))
}
