package risk

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Strategist/internal/candles"
	"github.com/Alias1177/Strategist/models"
)

// Gate runs the pre-trade safety checks in a fixed order and rejects a
// signal on the first failure with a human-readable reason.
type Gate struct {
	volPercentile float64
	activeFrom    int
	activeTo      int
	rangeMultiple float64
	correlations  *CorrelationManager
	calendar      *Calendar
	logger        zerolog.Logger
}

// NewGate creates a gate with the standard limits: volatility capped
// at the trailing 95th percentile, liquidity hours 8-20 UTC, SL/TP
// within 3x the recent range.
func NewGate(correlations *CorrelationManager, calendar *Calendar) *Gate {
	return &Gate{
		volPercentile: 95,
		activeFrom:    8,
		activeTo:      20,
		rangeMultiple: 3,
		correlations:  correlations,
		calendar:      calendar,
		logger:        log.With().Str("component", "risk_gate").Logger(),
	}
}

// Check runs every safety check against the signal. Returns true when
// the signal may be published; otherwise the reason is non-empty.
func (g *Gate) Check(sig models.Signal, cc []models.Candle, positions []models.Position) (bool, string) {
	if reason := g.checkVolatility(cc); reason != "" {
		return g.reject(sig, reason)
	}
	if reason := g.checkLiquidity(cc); reason != "" {
		return g.reject(sig, reason)
	}
	if reason := g.checkPriceLevels(sig, cc); reason != "" {
		return g.reject(sig, reason)
	}
	if allowed, reason := g.calendar.TradingAllowed(); !allowed {
		return g.reject(sig, fmt.Sprintf("news blackout: %s", reason))
	}
	if conflict := g.correlations.CheckConflict(sig.Pair, sig.Direction, positions); conflict.HasConflict {
		return g.reject(sig, conflict.Reason)
	}
	return true, ""
}

func (g *Gate) reject(sig models.Signal, reason string) (bool, string) {
	g.logger.Info().
		Str("pair", sig.Pair).
		Stringer("direction", sig.Direction).
		Str("reason", reason).
		Msg("Signal rejected by risk gate")
	return false, reason
}

// checkVolatility rejects when the current 20-bar return volatility
// exceeds the trailing 95th percentile of the last 100 observations.
func (g *Gate) checkVolatility(cc []models.Candle) string {
	vol := candles.RollingVolatility(cc, 20)
	if len(vol) == 0 {
		return ""
	}
	recent := vol
	if len(recent) > 100 {
		recent = recent[len(recent)-100:]
	}
	current := recent[len(recent)-1]
	p95 := candles.Percentile(recent, g.volPercentile)
	if math.IsNaN(current) || math.IsNaN(p95) {
		return ""
	}
	if current > p95 {
		return fmt.Sprintf("extreme volatility: %.5f above 95th percentile %.5f", current, p95)
	}
	return ""
}

// checkLiquidity rejects outside the configured active hours
func (g *Gate) checkLiquidity(cc []models.Candle) string {
	if len(cc) == 0 {
		return ""
	}
	hour := cc[len(cc)-1].Timestamp.UTC().Hour()
	if hour < g.activeFrom || hour > g.activeTo {
		return fmt.Sprintf("low liquidity session: hour %d UTC", hour)
	}
	return ""
}

// checkPriceLevels rejects stops or targets further from the current
// price than a multiple of the recent high-low range.
func (g *Gate) checkPriceLevels(sig models.Signal, cc []models.Candle) string {
	if len(cc) == 0 || sig.StopLoss == 0 || sig.TakeProfit == 0 {
		return ""
	}
	recent := candles.Tail(cc, 50)
	hi, lo := recent[0].High, recent[0].Low
	for _, c := range recent {
		hi = math.Max(hi, c.High)
		lo = math.Min(lo, c.Low)
	}
	rangeSize := hi - lo
	price := cc[len(cc)-1].Close

	if math.Abs(price-sig.StopLoss) > rangeSize*g.rangeMultiple ||
		math.Abs(price-sig.TakeProfit) > rangeSize*g.rangeMultiple {
		return "price levels outside acceptable range"
	}
	return ""
}
