// Package risk gates signals behind correlation, volatility, liquidity,
// price-sanity and news checks.
package risk

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"

	"github.com/Alias1177/Strategist/models"
)

// static reference correlations for the majors
var staticCorrelations = map[[2]string]float64{
	{"EURUSD", "GBPUSD"}: 0.75,
	{"EURUSD", "AUDUSD"}: 0.60,
	{"EURUSD", "USDJPY"}: -0.70,
	{"GBPUSD", "AUDUSD"}: 0.65,
	{"GBPUSD", "USDJPY"}: -0.60,
	{"AUDUSD", "USDJPY"}: -0.55,
	{"GBPUSD", "EURGBP"}: -0.85,
	{"EURUSD", "EURGBP"}: 0.90,
}

var knownCurrencies = []string{"EUR", "GBP", "USD", "JPY", "AUD", "CAD", "CHF", "NZD"}

// Conflict describes why a new signal clashes with open positions
type Conflict struct {
	HasConflict      bool
	MaxCorrelation   float64
	ConflictingPairs []string
	ExceededLimits   []string
	Reason           string
}

// CorrelationManager prevents stacking correlated exposure
type CorrelationManager struct {
	threshold       float64
	maxPerCurrency  int
	lookbackPeriods int
	logger          zerolog.Logger
}

// NewCorrelationManager creates a manager with the standard limits:
// 0.70 correlation threshold, one position per currency, 100-bar
// dynamic lookback.
func NewCorrelationManager() *CorrelationManager {
	return &CorrelationManager{
		threshold:       0.70,
		maxPerCurrency:  1,
		lookbackPeriods: 100,
		logger:          log.With().Str("component", "correlation").Logger(),
	}
}

// Correlation estimates the return correlation of two pairs. Dynamic
// calculation from aligned price data when available, then the static
// reference table, then the currency-overlap heuristic.
func (m *CorrelationManager) Correlation(pair1, pair2 string, data1, data2 []models.Candle) float64 {
	if corr, ok := m.dynamicCorrelation(data1, data2); ok {
		return corr
	}

	p1, p2 := strings.ToUpper(pair1), strings.ToUpper(pair2)
	if corr, ok := staticCorrelations[[2]string{p1, p2}]; ok {
		return corr
	}
	if corr, ok := staticCorrelations[[2]string{p2, p1}]; ok {
		return corr
	}
	return estimateByCurrency(p1, p2)
}

// dynamicCorrelation computes the Pearson correlation of returns over
// the trailing lookback, aligning the two series by timestamp. Needs
// more than 20 overlapping bars.
func (m *CorrelationManager) dynamicCorrelation(data1, data2 []models.Candle) (float64, bool) {
	if len(data1) < 2 || len(data2) < 2 {
		return 0, false
	}
	r1 := tailReturnsByTime(data1, m.lookbackPeriods)
	r2 := tailReturnsByTime(data2, m.lookbackPeriods)

	var xs, ys []float64
	for ts, x := range r1 {
		if y, ok := r2[ts]; ok {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	if len(xs) <= 20 {
		return 0, false
	}
	corr := stat.Correlation(xs, ys, nil)
	if math.IsNaN(corr) {
		return 0, false
	}
	return corr, true
}

func tailReturnsByTime(cc []models.Candle, lookback int) map[time.Time]float64 {
	out := make(map[time.Time]float64)
	start := len(cc) - lookback
	if start < 1 {
		start = 1
	}
	for i := start; i < len(cc); i++ {
		prev := cc[i-1].Close
		if prev == 0 {
			continue
		}
		out[cc[i].Timestamp] = (cc[i].Close - prev) / prev
	}
	return out
}

// estimateByCurrency falls back to a heuristic from shared currencies
func estimateByCurrency(pair1, pair2 string) float64 {
	base1, quote1 := splitPair(pair1)
	base2, quote2 := splitPair(pair2)
	if base1 == "" || quote1 == "" || base2 == "" || quote2 == "" {
		return 0
	}
	if quote1 == quote2 {
		if base1 == base2 {
			return 1.0
		}
		return 0.60
	}
	if base1 == base2 {
		return -0.70
	}
	if base1 == quote2 || base2 == quote1 {
		return -0.65
	}
	return 0.20
}

// splitPair extracts the base and quote currencies of a pair symbol
func splitPair(pair string) (base, quote string) {
	pair = strings.ToUpper(pair)
	for _, c := range knownCurrencies {
		if !strings.HasPrefix(pair, c) {
			continue
		}
		rest := pair[len(c):]
		for _, c2 := range knownCurrencies {
			if strings.HasPrefix(rest, c2) {
				return c, c2
			}
		}
		return c, ""
	}
	return "", ""
}

// boughtCurrency returns the currency a position accumulates: the base
// on a buy, the quote on a sell.
func boughtCurrency(pair string, direction models.Direction) string {
	base, quote := splitPair(pair)
	if direction == models.DirectionBuy {
		return base
	}
	return quote
}

// CheckConflict verifies a new signal against the open positions: high
// correlation in the same direction on the same bought currency, and
// the per-currency position cap.
func (m *CorrelationManager) CheckConflict(newPair string, newDirection models.Direction, positions []models.Position) Conflict {
	var c Conflict
	newUpper := strings.ToUpper(newPair)
	for _, p := range positions {
		existing := strings.ToUpper(p.Pair)
		if existing == newUpper {
			continue // replacing the same pair is not a conflict
		}
		corr := math.Abs(m.Correlation(newPair, p.Pair, nil, nil))
		if corr < m.threshold {
			continue
		}
		if newDirection == p.Direction && boughtCurrency(newPair, newDirection) == boughtCurrency(p.Pair, p.Direction) {
			c.ConflictingPairs = append(c.ConflictingPairs, existing)
			if corr > c.MaxCorrelation {
				c.MaxCorrelation = corr
			}
		}
	}

	exposures := make(map[string]int)
	for _, p := range append(positions, models.Position{Pair: newPair, Direction: newDirection}) {
		if cur := boughtCurrency(p.Pair, p.Direction); cur != "" {
			exposures[cur]++
		}
	}
	for cur, count := range exposures {
		if count > m.maxPerCurrency {
			c.ExceededLimits = append(c.ExceededLimits, cur)
		}
	}

	c.HasConflict = len(c.ConflictingPairs) > 0 || len(c.ExceededLimits) > 0
	switch {
	case len(c.ConflictingPairs) > 0:
		c.Reason = fmt.Sprintf("high correlation with existing positions (%.2f)", c.MaxCorrelation)
	case len(c.ExceededLimits) > 0:
		c.Reason = fmt.Sprintf("currency exposure limit exceeded: %s", strings.Join(c.ExceededLimits, ", "))
	}

	if c.HasConflict {
		m.logger.Info().
			Str("pair", newPair).
			Str("reason", c.Reason).
			Strs("conflicting", c.ConflictingPairs).
			Msg("Correlation conflict")
	}
	return c
}
