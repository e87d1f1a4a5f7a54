// Package regime classifies market behaviour over a trailing window and
// scores strategy families against the detected regime.
package regime

import (
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Strategist/internal/candles"
	"github.com/Alias1177/Strategist/models"
)

// Classifier detects the current regime from recent candles
type Classifier struct {
	adxThreshold float64
	volMultiple  float64
	lookback     int
	logger       zerolog.Logger
}

// NewClassifier creates a classifier with the standard thresholds:
// ADX 25 for trend strength, 1.5x the 75th volatility percentile for
// the volatile regime, 50-bar lookback.
func NewClassifier() *Classifier {
	return &Classifier{
		adxThreshold: 25.0,
		volMultiple:  1.5,
		lookback:     50,
		logger:       log.With().Str("component", "regime").Logger(),
	}
}

// Classify returns the current regime and a confidence in [0,1].
// Insufficient data yields Ranging at 0.5, the safe neutral answer.
func (c *Classifier) Classify(cc []models.Candle) (models.Regime, float64) {
	if len(cc) < c.lookback {
		c.logger.Warn().Int("bars", len(cc)).Msg("Not enough data for regime detection")
		return models.RegimeRanging, 0.5
	}
	recent := candles.Tail(cc, c.lookback)

	adx, _, _ := candles.ADX(recent, 14)

	closes := candles.Closes(recent)
	smaShort := candles.SMA(closes, 20)
	smaLong := candles.SMA(closes, 50)
	trend := smaShort[len(smaShort)-1] - smaLong[len(smaLong)-1]

	returns := candles.Returns(recent)
	currentVol := candles.Std(tail(returns, 20))
	volHistory := candles.RollingStd(candles.Returns(cc), 20)
	volP75 := candles.Percentile(volHistory, 75)
	if math.IsNaN(volP75) {
		return models.RegimeRanging, 0.5
	}

	var regime models.Regime
	var confidence float64
	switch {
	case currentVol > volP75*c.volMultiple:
		regime = models.RegimeVolatile
		confidence = math.Min(1.0, (currentVol/volP75)/2.0)
	case adx >= c.adxThreshold:
		if trend > 0 {
			regime = models.RegimeTrendingUp
		} else {
			regime = models.RegimeTrendingDown
		}
		confidence = math.Min(1.0, adx/50.0)
	default:
		regime = models.RegimeRanging
		confidence = math.Max(0.5, 1.0-adx/c.adxThreshold)
	}

	c.logger.Debug().
		Stringer("regime", regime).
		Float64("confidence", confidence).
		Float64("adx", adx).
		Float64("volatility", currentVol).
		Msg("Regime detected")
	return regime, confidence
}

func tail(xs []float64, n int) []float64 {
	if len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}
