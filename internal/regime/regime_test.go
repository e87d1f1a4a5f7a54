package regime

import (
	"math"
	"testing"
	"time"

	"github.com/Alias1177/Strategist/models"
)

// wobble keeps the return volatility flat and non-zero so trend cases
// never trip the volatility branch.
func wobble(i int) float64 {
	if i%2 == 0 {
		return 1.0002
	}
	return 0.9998
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		candles  []models.Candle
		expected models.Regime
	}{
		{
			name:     "insufficient data",
			candles:  buildCandles(10, func(i int) float64 { return 100 }),
			expected: models.RegimeRanging,
		},
		{
			name: "volatility spike dominates",
			candles: buildCandles(200, func(i int) float64 {
				if i >= 180 {
					// wild 5% swings in the last stretch
					if i%2 == 0 {
						return 105
					}
					return 95
				}
				if i%2 == 0 {
					return 100.02
				}
				return 99.98
			}),
			expected: models.RegimeVolatile,
		},
		{
			name: "steady climb trends up",
			candles: buildCandles(200, func(i int) float64 {
				return 100 * math.Pow(1.002, float64(i)) * wobble(i)
			}),
			expected: models.RegimeTrendingUp,
		},
		{
			name: "steady decline trends down",
			candles: buildCandles(200, func(i int) float64 {
				return 200 * math.Pow(0.998, float64(i)) * wobble(i)
			}),
			expected: models.RegimeTrendingDown,
		},
		{
			name: "flat oscillation ranges",
			candles: buildCandles(200, func(i int) float64 {
				if i%2 == 0 {
					return 100.2
				}
				return 100
			}),
			expected: models.RegimeRanging,
		},
	}

	c := NewClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			regime, confidence := c.Classify(tt.candles)
			if regime != tt.expected {
				t.Errorf("Classify() = %v, want %v", regime, tt.expected)
			}
			if confidence < 0 || confidence > 1 {
				t.Errorf("confidence = %v, want in [0,1]", confidence)
			}
		})
	}
}

func TestClassifyShortSeriesConfidence(t *testing.T) {
	c := NewClassifier()
	regime, confidence := c.Classify(nil)
	if regime != models.RegimeRanging || confidence != 0.5 {
		t.Errorf("Classify(nil) = (%v, %v), want (ranging, 0.5)", regime, confidence)
	}
}

func TestCompatibility(t *testing.T) {
	tests := []struct {
		name     string
		family   models.Family
		regime   models.Regime
		expected float64
	}{
		{"trend follower in uptrend", models.FamilyEMACross, models.RegimeTrendingUp, 1.0},
		{"trend follower in range", models.FamilyEMACross, models.RegimeRanging, 0.3},
		{"mean reverter in range", models.FamilyRSIReversal, models.RegimeRanging, 1.0},
		{"mean reverter in trend", models.FamilyRSIReversal, models.RegimeTrendingDown, 0.4},
		{"composite is neutral everywhere", models.FamilyMultiIndicator, models.RegimeVolatile, 0.5},
		{"out of range family", models.FamilyCount, models.RegimeRanging, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compatibility(tt.family, tt.regime); got != tt.expected {
				t.Errorf("Compatibility() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestFilterByRegime(t *testing.T) {
	strategies := []models.Strategy{
		{ID: "ema", Family: models.FamilyEMACross},
		{ID: "rsi", Family: models.FamilyRSIReversal},
		{ID: "atr", Family: models.FamilyATRRange},
	}

	kept := FilterByRegime(strategies, models.RegimeTrendingUp, DefaultMinCompatibility)
	if len(kept) != 1 || kept[0].ID != "ema" {
		t.Errorf("trending regime kept %v, want only ema", ids(kept))
	}

	kept = FilterByRegime(strategies, models.RegimeRanging, DefaultMinCompatibility)
	if len(kept) != 2 {
		t.Errorf("ranging regime kept %v, want rsi and atr", ids(kept))
	}
}

func ids(ss []models.Strategy) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s.ID
	}
	return out
}

func buildCandles(n int, closeAt func(int) float64) []models.Candle {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	cc := make([]models.Candle, n)
	for i := range cc {
		c := closeAt(i)
		cc[i] = models.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
		}
	}
	return cc
}
