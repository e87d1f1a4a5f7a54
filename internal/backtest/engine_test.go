package backtest

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/Alias1177/Strategist/internal/strategy"
	"github.com/Alias1177/Strategist/models"
)

func TestRunProperties(t *testing.T) {
	engine := NewEngine(DefaultCosts())

	properties := gopter.NewProperties(nil)

	properties.Property("identical inputs give identical results", prop.ForAll(
		func(seed int64) bool {
			s := strategy.NewCatalog(seed).Generate()
			cc := randomWalk(seed, 400)
			return resultsIdentical(engine.Run(s, cc), engine.Run(s, cc))
		},
		gen.Int64(),
	))

	properties.Property("metrics stay within their bounds", prop.ForAll(
		func(seed int64) bool {
			s := strategy.NewCatalog(seed).Generate()
			r := engine.Run(s, randomWalk(seed, 400))
			return r.WinRate >= 0 && r.WinRate <= 1 &&
				r.MaxDrawdown >= 0 &&
				r.ConfidenceScore >= 0 && r.ConfidenceScore <= 100 &&
				r.WinningTrades+r.LosingTrades <= r.TotalTrades &&
				len(r.TradeReturns) == r.TotalTrades
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}

func TestRunEmptySeries(t *testing.T) {
	engine := NewEngine(DefaultCosts())
	s := strategy.NewCatalog(1).Generate()

	r := engine.Run(s, nil)
	if r.TotalTrades != 0 || r.MaxDrawdown != 1.0 || r.TotalReturn != -1.0 {
		t.Errorf("empty series should yield the worst-case result, got %+v", r)
	}
}

// randomWalk builds a deterministic hourly price series from a seed
func randomWalk(seed int64, n int) []models.Candle {
	rng := rand.New(rand.NewSource(seed))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	price := 1.1000

	cc := make([]models.Candle, n)
	for i := range cc {
		move := (rng.Float64() - 0.5) * 0.01
		next := price * (1 + move)
		hi := math.Max(price, next) * 1.001
		lo := math.Min(price, next) * 0.999
		cc[i] = models.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      price,
			High:      hi,
			Low:       lo,
			Close:     next,
			Volume:    int64(1000 + rng.Intn(1000)),
		}
		price = next
	}
	return cc
}

// resultsIdentical compares two results bit for bit, treating NaN as
// equal to itself.
func resultsIdentical(a, b models.BacktestResult) bool {
	floatEq := func(x, y float64) bool { return math.Float64bits(x) == math.Float64bits(y) }
	return a.StrategyID == b.StrategyID &&
		a.TotalTrades == b.TotalTrades &&
		a.WinningTrades == b.WinningTrades &&
		a.LosingTrades == b.LosingTrades &&
		floatEq(a.WinRate, b.WinRate) &&
		floatEq(a.MaxDrawdown, b.MaxDrawdown) &&
		floatEq(a.SharpeRatio, b.SharpeRatio) &&
		floatEq(a.TotalReturn, b.TotalReturn) &&
		floatEq(a.ProfitFactor, b.ProfitFactor) &&
		floatEq(a.ConfidenceScore, b.ConfidenceScore)
}
