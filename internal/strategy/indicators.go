package strategy

import "math"

// Indicator math runs on float64. Inputs are trade prices already validated
// by the ingestion path, and the outputs only feed threshold comparisons, so
// decimal precision buys nothing here.

// EMA computes the exponential moving average series of prices with the
// given span. Returns nil on empty input.
func EMA(prices []float64, span int) []float64 {
	if len(prices) == 0 {
		return nil
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out := make([]float64, len(prices))
	out[0] = prices[0]
	for i := 1; i < len(prices); i++ {
		out[i] = alpha*prices[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RSI computes the relative strength index over the last period price
// changes. ok is false when there are fewer than period+1 prices or when the
// window is completely flat.
func RSI(prices []float64, period int) (float64, bool) {
	if len(prices) < period+1 {
		return 0, false
	}

	var gain, loss float64
	start := len(prices) - period
	for i := start; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gain += delta
		} else {
			loss -= delta
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)

	if avgLoss == 0 {
		if avgGain == 0 {
			return 0, false
		}
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// VWAP computes the volume-weighted average price of the trades. ok is false
// when total quantity is zero.
func VWAP(prices, qtys []float64) (float64, bool) {
	var pv, vol float64
	for i := range prices {
		pv += prices[i] * qtys[i]
		vol += qtys[i]
	}
	if vol == 0 {
		return 0, false
	}
	return pv / vol, true
}

// ATR computes the average true range over the last period price moves,
// using adjacent trade prices as the high/low proxy (the true range of a
// two-price window reduces to the absolute step). ok is false with fewer
// than period+1 prices.
func ATR(prices []float64, period int) (float64, bool) {
	if len(prices) < period+1 {
		return 0, false
	}

	var sum float64
	start := len(prices) - period
	for i := start; i < len(prices); i++ {
		sum += math.Abs(prices[i] - prices[i-1])
	}
	return sum / float64(period), true
}

// ZScore computes how many population standard deviations the last value
// sits from the mean of the series. Returns 0 for empty or constant series.
func ZScore(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(n))
	if std == 0 {
		return 0
	}
	return (values[n-1] - mean) / std
}
