// Package candles provides derived analytics over OHLCV series.
// Warmup positions of rolling indicators are NaN; comparisons against
// NaN are false, so rule code can compare without explicit guards.
package candles

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/Alias1177/Strategist/models"
)

// Closes extracts the close column
func Closes(cc []models.Candle) []float64 {
	out := make([]float64, len(cc))
	for i, c := range cc {
		out[i] = c.Close
	}
	return out
}

// Returns computes bar-over-bar percentage change of closes. The first
// element is NaN, matching the length of the input series.
func Returns(cc []models.Candle) []float64 {
	out := make([]float64, len(cc))
	if len(cc) == 0 {
		return out
	}
	out[0] = math.NaN()
	for i := 1; i < len(cc); i++ {
		prev := cc[i-1].Close
		if prev == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (cc[i].Close - prev) / prev
	}
	return out
}

// SMA computes a simple moving average. Positions before the window is
// full are NaN.
func SMA(xs []float64, period int) []float64 {
	out := make([]float64, len(xs))
	var sum float64
	var valid int
	for i, x := range xs {
		out[i] = math.NaN()
		if math.IsNaN(x) {
			sum, valid = 0, 0
			continue
		}
		sum += x
		valid++
		if valid > period {
			sum -= xs[i-period]
			valid = period
		}
		if valid == period {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA computes an exponential moving average seeded from the first
// value (the ewm adjust=false convention).
func EMA(xs []float64, period int) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	alpha := 2.0 / (float64(period) + 1.0)
	out[0] = xs[0]
	for i := 1; i < len(xs); i++ {
		out[i] = alpha*xs[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RollingStd computes a rolling sample standard deviation. Warmup
// positions are NaN.
func RollingStd(xs []float64, window int) []float64 {
	out := make([]float64, len(xs))
	for i := range out {
		out[i] = math.NaN()
		if i+1 < window {
			continue
		}
		win := xs[i+1-window : i+1]
		clean := dropNaN(win)
		if len(clean) < window {
			continue
		}
		out[i] = stat.StdDev(clean, nil)
	}
	return out
}

// RollingVolatility is the rolling std of returns, the derived column
// consumed by the risk gate and the market-state extractor.
func RollingVolatility(cc []models.Candle, window int) []float64 {
	return RollingStd(Returns(cc), window)
}

// RSI computes the relative strength index using rolling average gains
// and losses.
func RSI(xs []float64, period int) []float64 {
	out := make([]float64, len(xs))
	gains := make([]float64, len(xs))
	losses := make([]float64, len(xs))
	for i := range xs {
		out[i] = math.NaN()
		if i == 0 {
			gains[i], losses[i] = math.NaN(), math.NaN()
			continue
		}
		delta := xs[i] - xs[i-1]
		if delta > 0 {
			gains[i], losses[i] = delta, 0
		} else {
			gains[i], losses[i] = 0, -delta
		}
	}
	avgGain := SMA(gains, period)
	avgLoss := SMA(losses, period)
	for i := range xs {
		if math.IsNaN(avgGain[i]) || math.IsNaN(avgLoss[i]) {
			continue
		}
		if avgLoss[i] == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		out[i] = 100 - (100 / (1 + rs))
	}
	return out
}

// MACD returns the MACD line, signal line and histogram
func MACD(xs []float64, fast, slow, signal int) (macd, signalLine, hist []float64) {
	emaFast := EMA(xs, fast)
	emaSlow := EMA(xs, slow)
	macd = make([]float64, len(xs))
	for i := range xs {
		macd[i] = emaFast[i] - emaSlow[i]
	}
	signalLine = EMA(macd, signal)
	hist = make([]float64, len(xs))
	for i := range xs {
		hist[i] = macd[i] - signalLine[i]
	}
	return macd, signalLine, hist
}

// Bollinger returns the middle, upper and lower bands
func Bollinger(xs []float64, period int, stdDev float64) (middle, upper, lower []float64) {
	middle = SMA(xs, period)
	std := RollingStd(xs, period)
	upper = make([]float64, len(xs))
	lower = make([]float64, len(xs))
	for i := range xs {
		upper[i] = middle[i] + std[i]*stdDev
		lower[i] = middle[i] - std[i]*stdDev
	}
	return middle, upper, lower
}

// TrueRange computes the per-bar true range
func TrueRange(cc []models.Candle) []float64 {
	out := make([]float64, len(cc))
	for i, c := range cc {
		hl := c.High - c.Low
		if i == 0 {
			out[i] = hl
			continue
		}
		hc := math.Abs(c.High - cc[i-1].Close)
		lc := math.Abs(c.Low - cc[i-1].Close)
		out[i] = math.Max(hl, math.Max(hc, lc))
	}
	return out
}

// ATR computes the rolling average true range. Warmup positions are NaN.
func ATR(cc []models.Candle, period int) []float64 {
	return SMA(TrueRange(cc), period)
}

// ADX computes the average directional index over the series, together
// with the latest +DI and -DI values. Returns 20 (weak trend) for the
// ADX when the series is too short to compute it.
func ADX(cc []models.Candle, period int) (adx, plusDI, minusDI float64) {
	if len(cc) < 2*period+1 {
		return 20, 0, 0
	}
	tr := TrueRange(cc)
	plusDM := make([]float64, len(cc))
	minusDM := make([]float64, len(cc))
	for i := 1; i < len(cc); i++ {
		up := cc[i].High - cc[i-1].High
		down := cc[i-1].Low - cc[i].Low
		if up > 0 {
			plusDM[i] = up
		}
		if down > 0 {
			minusDM[i] = down
		}
	}
	atr := SMA(tr, period)
	avgPlus := SMA(plusDM, period)
	avgMinus := SMA(minusDM, period)
	dx := make([]float64, len(cc))
	for i := range cc {
		dx[i] = math.NaN()
		if math.IsNaN(atr[i]) || atr[i] == 0 {
			continue
		}
		pdi := 100 * avgPlus[i] / atr[i]
		mdi := 100 * avgMinus[i] / atr[i]
		if pdi+mdi == 0 {
			continue
		}
		dx[i] = 100 * math.Abs(pdi-mdi) / (pdi + mdi)
	}
	adxSeries := SMA(dx, period)
	adx = adxSeries[len(adxSeries)-1]
	if math.IsNaN(adx) {
		adx = 20
	}
	last := len(cc) - 1
	if !math.IsNaN(atr[last]) && atr[last] > 0 {
		plusDI = 100 * avgPlus[last] / atr[last]
		minusDI = 100 * avgMinus[last] / atr[last]
	}
	return adx, plusDI, minusDI
}

// RollingMax computes the rolling maximum over a window
func RollingMax(xs []float64, window int) []float64 {
	return rollingExtreme(xs, window, func(a, b float64) bool { return a > b })
}

// RollingMin computes the rolling minimum over a window
func RollingMin(xs []float64, window int) []float64 {
	return rollingExtreme(xs, window, func(a, b float64) bool { return a < b })
}

func rollingExtreme(xs []float64, window int, better func(a, b float64) bool) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		out[i] = math.NaN()
		if i+1 < window {
			continue
		}
		best := xs[i+1-window]
		for _, x := range xs[i+2-window : i+1] {
			if better(x, best) {
				best = x
			}
		}
		out[i] = best
	}
	return out
}

// Percentile returns the p-th percentile (0-100) of xs, ignoring NaN
// values. Returns NaN for an empty input.
func Percentile(xs []float64, p float64) float64 {
	clean := dropNaN(xs)
	if len(clean) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(clean))
	copy(sorted, clean)
	sort.Float64s(sorted)
	return stat.Quantile(p/100, stat.LinInterp, sorted, nil)
}

// Mean returns the arithmetic mean of xs, ignoring NaN values
func Mean(xs []float64) float64 {
	clean := dropNaN(xs)
	if len(clean) == 0 {
		return 0
	}
	return stat.Mean(clean, nil)
}

// Std returns the population standard deviation of xs, ignoring NaN
// values. Zero for fewer than two values.
func Std(xs []float64) float64 {
	clean := dropNaN(xs)
	if len(clean) < 2 {
		return 0
	}
	mean := stat.Mean(clean, nil)
	var sum float64
	for _, x := range clean {
		d := x - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(clean)))
}

func dropNaN(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

// Tail returns the last n candles, or the whole series when shorter
func Tail(cc []models.Candle, n int) []models.Candle {
	if len(cc) <= n {
		return cc
	}
	return cc[len(cc)-n:]
}
