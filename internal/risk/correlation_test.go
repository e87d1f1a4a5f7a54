package risk

import (
	"math"
	"testing"
	"time"

	"github.com/Alias1177/Strategist/models"
)

func TestCorrelationStatic(t *testing.T) {
	m := NewCorrelationManager()

	tests := []struct {
		name     string
		pair1    string
		pair2    string
		expected float64
	}{
		{"table order", "EURUSD", "GBPUSD", 0.75},
		{"reversed order", "GBPUSD", "EURUSD", 0.75},
		{"inverse pair", "EURUSD", "USDJPY", -0.70},
		{"case insensitive", "eurusd", "gbpusd", 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Correlation(tt.pair1, tt.pair2, nil, nil); got != tt.expected {
				t.Errorf("Correlation() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestEstimateByCurrency(t *testing.T) {
	tests := []struct {
		name     string
		pair1    string
		pair2    string
		expected float64
	}{
		{"identical pair", "NZDUSD", "NZDUSD", 1.0},
		{"same quote", "NZDUSD", "CADUSD", 0.60},
		{"same base", "CADCHF", "CADJPY", -0.70},
		{"base quotes the other", "USDCHF", "NZDUSD", -0.65},
		{"no overlap", "NZDJPY", "CADCHF", 0.20},
		{"unknown symbol", "XAUUSD", "NZDUSD", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := estimateByCurrency(tt.pair1, tt.pair2); got != tt.expected {
				t.Errorf("estimateByCurrency() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDynamicCorrelation(t *testing.T) {
	m := NewCorrelationManager()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	series := func(scale float64) []models.Candle {
		cc := make([]models.Candle, 60)
		price := 100.0
		for i := range cc {
			cc[i] = models.Candle{Timestamp: base.Add(time.Duration(i) * time.Hour), Close: price}
			if i%2 == 0 {
				price *= 1 + 0.01*scale
			} else {
				price *= 1 - 0.01*scale
			}
		}
		return cc
	}

	// proportional moves on aligned timestamps correlate perfectly
	corr, ok := m.dynamicCorrelation(series(1), series(2))
	if !ok {
		t.Fatal("expected a dynamic correlation with 60 aligned bars")
	}
	if math.Abs(corr-1.0) > 1e-6 {
		t.Errorf("correlation = %v, want ~1.0", corr)
	}

	if _, ok := m.dynamicCorrelation(series(1)[:10], series(1)[:10]); ok {
		t.Error("fewer than 20 overlapping bars must not produce a dynamic value")
	}
}

func TestSplitPair(t *testing.T) {
	base, quote := splitPair("EURUSD")
	if base != "EUR" || quote != "USD" {
		t.Errorf("splitPair = %s/%s, want EUR/USD", base, quote)
	}
	base, quote = splitPair("XAUUSD")
	if base != "" || quote != "" {
		t.Errorf("unknown pair should not split, got %s/%s", base, quote)
	}
}

func TestCheckConflict(t *testing.T) {
	m := NewCorrelationManager()

	tests := []struct {
		name      string
		pair      string
		direction models.Direction
		positions []models.Position
		conflict  bool
	}{
		{
			name:      "no open positions",
			pair:      "EURUSD",
			direction: models.DirectionBuy,
			conflict:  false,
		},
		{
			name:      "correlated same-direction exposure",
			pair:      "EURUSD",
			direction: models.DirectionSell, // both sells accumulate USD
			positions: []models.Position{{Pair: "GBPUSD", Direction: models.DirectionSell}},
			conflict:  true,
		},
		{
			name:      "correlated but different bought currency",
			pair:      "EURUSD",
			direction: models.DirectionBuy,
			positions: []models.Position{{Pair: "GBPUSD", Direction: models.DirectionBuy}},
			conflict:  false,
		},
		{
			// the same pair skips the correlation check but still
			// counts against the currency exposure cap
			name:      "same pair still hits the exposure cap",
			pair:      "EURUSD",
			direction: models.DirectionBuy,
			positions: []models.Position{{Pair: "EURUSD", Direction: models.DirectionBuy}},
			conflict:  true,
		},
		{
			name:      "currency exposure limit",
			pair:      "EURJPY",
			direction: models.DirectionBuy,
			positions: []models.Position{{Pair: "EURUSD", Direction: models.DirectionBuy}},
			conflict:  true, // two positions long EUR
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := m.CheckConflict(tt.pair, tt.direction, tt.positions)
			if c.HasConflict != tt.conflict {
				t.Errorf("HasConflict = %v, want %v (reason %q)", c.HasConflict, tt.conflict, c.Reason)
			}
			if c.HasConflict && c.Reason == "" {
				t.Error("a conflict must carry a reason")
			}
		})
	}
}
