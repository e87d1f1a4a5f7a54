// Package trend detects higher-timeframe trend alignment and filters
// signals that trade against the dominant direction.
package trend

import (
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Strategist/internal/candles"
	"github.com/Alias1177/Strategist/models"
)

// TimeframeTrend is the detected trend on one timeframe
type TimeframeTrend struct {
	Timeframe string
	Direction models.Direction
	Strength  float64
	SMAShort  float64
	SMALong   float64
}

// Alignment is the combined multi-timeframe verdict
type Alignment struct {
	Aligned       bool
	Direction     models.Direction
	Strength      float64
	WeightedScore float64
	Trends        []TimeframeTrend
	BullishCount  int
	BearishCount  int
	NeutralCount  int
}

// Filter checks signals against the multi-timeframe trend
type Filter struct {
	minAgree  int
	threshold float64
	logger    zerolog.Logger
}

// NewFilter creates a trend filter requiring minAgree timeframes to
// agree and a weighted trend score of at least threshold.
func NewFilter(minAgree int, threshold float64) *Filter {
	return &Filter{
		minAgree:  minAgree,
		threshold: threshold,
		logger:    log.With().Str("component", "trend_filter").Logger(),
	}
}

// DefaultFilter returns the standard trend filter: 2 of 3 timeframes
// must agree with a weighted score of at least 0.6.
func DefaultFilter() *Filter {
	return NewFilter(2, 0.6)
}

// Detect computes the trend on one timeframe from the last 50 bars.
// Short series yield a neutral trend with zero strength.
func (f *Filter) Detect(cc []models.Candle, timeframe string) TimeframeTrend {
	if len(cc) < 50 {
		return TimeframeTrend{Timeframe: timeframe, Direction: models.DirectionNone}
	}
	recent := candles.Tail(cc, 50)
	closes := candles.Closes(recent)
	smaShort := candles.SMA(closes, 10)
	smaLong := candles.SMA(closes, 30)

	short := smaShort[len(smaShort)-1]
	long := smaLong[len(smaLong)-1]
	price := closes[len(closes)-1]

	t := TimeframeTrend{Timeframe: timeframe, SMAShort: short, SMALong: long}
	switch {
	case short > long && price > short:
		t.Direction = models.DirectionBuy
		t.Strength = math.Min(1.0, math.Abs(short-long)/long*100)
	case short < long && price < short:
		t.Direction = models.DirectionSell
		t.Strength = math.Min(1.0, math.Abs(short-long)/long*100)
	default:
		t.Direction = models.DirectionNone
		t.Strength = 0.3
	}
	return t
}

// timeframe weights, daily dominating
var weights = map[string]float64{"1d": 0.5, "4h": 0.3, "1h": 0.2}

// CheckAlignment combines per-timeframe trends into one verdict. The
// base series is required; higher timeframes may be nil.
func (f *Filter) CheckAlignment(base, fourH, daily []models.Candle) Alignment {
	trends := []TimeframeTrend{f.Detect(base, "1h")}
	if len(fourH) > 0 {
		trends = append(trends, f.Detect(fourH, "4h"))
	}
	if len(daily) > 0 {
		trends = append(trends, f.Detect(daily, "1d"))
	}

	var a Alignment
	a.Trends = trends
	for _, t := range trends {
		switch t.Direction {
		case models.DirectionBuy:
			a.BullishCount++
		case models.DirectionSell:
			a.BearishCount++
		default:
			a.NeutralCount++
		}
	}

	total := len(trends)
	switch {
	case a.BullishCount >= f.minAgree:
		a.Direction = models.DirectionBuy
		a.Strength = float64(a.BullishCount) / float64(total)
	case a.BearishCount >= f.minAgree:
		a.Direction = models.DirectionSell
		a.Strength = float64(a.BearishCount) / float64(total)
	default:
		a.Direction = models.DirectionNone
		a.Strength = float64(max(a.NeutralCount, max(a.BullishCount, a.BearishCount))) / float64(total)
	}

	for _, t := range trends {
		if t.Direction == a.Direction && a.Direction != models.DirectionNone {
			a.WeightedScore += weights[t.Timeframe] * t.Strength
		}
	}

	a.Aligned = a.Direction != models.DirectionNone &&
		a.Strength >= float64(f.minAgree)/float64(total) &&
		a.WeightedScore >= f.threshold

	f.logger.Info().
		Stringer("alignment", a.Direction).
		Int("bullish", a.BullishCount).
		Int("bearish", a.BearishCount).
		Int("neutral", a.NeutralCount).
		Bool("aligned", a.Aligned).
		Float64("score", a.WeightedScore).
		Msg("Multi-timeframe trend")
	return a
}

// Apply rejects a signal that contradicts the trend and boosts the
// confidence of one that rides it. Returns false when rejected.
func (f *Filter) Apply(sig *models.Signal, a Alignment) bool {
	if !a.Aligned {
		f.logger.Info().Str("pair", sig.Pair).Msg("Signal rejected, trend not aligned")
		return false
	}
	if sig.Direction == models.DirectionBuy && a.Direction == models.DirectionSell {
		f.logger.Info().Str("pair", sig.Pair).Msg("Signal rejected, buy against bearish trend")
		return false
	}
	if sig.Direction == models.DirectionSell && a.Direction == models.DirectionBuy {
		f.logger.Info().Str("pair", sig.Pair).Msg("Signal rejected, sell against bullish trend")
		return false
	}

	var boost float64
	switch {
	case a.WeightedScore > 0.8:
		boost = 5.0
	case a.WeightedScore > 0.6:
		boost = 3.0
	default:
		boost = 1.0
	}
	sig.Confidence = math.Min(100.0, sig.Confidence+boost)
	sig.TrendAligned = true
	sig.TrendStrength = a.WeightedScore
	return true
}
