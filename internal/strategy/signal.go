package strategy

import "trail_bot/internal/domain"

// Signal is a trading decision derived from a market snapshot.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// Decider maps a market snapshot to a trading decision. The trading loop
// calls it once per iteration with an isolated snapshot.
type Decider func(domain.Snapshot) Signal

// Thresholds of the confluence decision. A side fires only when every one of
// its conditions agrees.
const (
	obRatioBuy     = 1.3
	obRatioSell    = 0.7
	tradeRatioBuy  = 1.2
	tradeRatioSell = 0.8
	volScoreBand   = 0.5
	rsiOverbought  = 70.0
	rsiOversold    = 30.0

	emaFastSpan = 12
	emaSlowSpan = 26
	rsiPeriod   = 14
)

// Decide is the confluence strategy: order-book imbalance, taker-flow
// imbalance, volume z-score, EMA crossover, RSI band and VWAP must all point
// the same way before a direction is emitted.
func Decide(snap domain.Snapshot) Signal {
	if !snap.Complete() || len(snap.Trades) == 0 {
		return SignalHold
	}

	bidQty, _ := snap.Book.Bids.TotalQty().Float64()
	askQty, _ := snap.Book.Asks.TotalQty().Float64()
	obRatio := 1.0
	if askQty > 0 {
		obRatio = bidQty / askQty
	}

	var buyVol, sellVol float64
	prices := make([]float64, len(snap.Trades))
	qtys := make([]float64, len(snap.Trades))
	for i, tr := range snap.Trades {
		p, _ := tr.Price.Float64()
		q, _ := tr.Qty.Float64()
		prices[i] = p
		qtys[i] = q
		if tr.Side == domain.SideBuy {
			buyVol += q
		} else {
			sellVol += q
		}
	}
	tradeRatio := 1.0
	if sellVol > 0 {
		tradeRatio = buyVol / sellVol
	}

	vols := make([]float64, len(snap.Volumes))
	for i, b := range snap.Volumes {
		vols[i], _ = b.Volume.Float64()
	}
	volScore := ZScore(vols)

	emaFast := EMA(prices, emaFastSpan)
	emaSlow := EMA(prices, emaSlowSpan)
	fast := emaFast[len(emaFast)-1]
	slow := emaSlow[len(emaSlow)-1]

	rsi, rsiOK := RSI(prices, rsiPeriod)
	vwap, vwapOK := VWAP(prices, qtys)
	last := prices[len(prices)-1]

	buy := obRatio > obRatioBuy &&
		tradeRatio > tradeRatioBuy &&
		volScore > volScoreBand &&
		fast > slow &&
		rsiOK && rsi < rsiOverbought &&
		vwapOK && last > vwap

	sell := obRatio < obRatioSell &&
		tradeRatio < tradeRatioSell &&
		volScore < -volScoreBand &&
		fast < slow &&
		rsiOK && rsi > rsiOversold &&
		vwapOK && last < vwap

	switch {
	case buy:
		return SignalBuy
	case sell:
		return SignalSell
	default:
		return SignalHold
	}
}
