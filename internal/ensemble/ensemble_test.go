package ensemble

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/Alias1177/Strategist/internal/backtest"
	"github.com/Alias1177/Strategist/internal/candles"
	"github.com/Alias1177/Strategist/internal/regime"
	"github.com/Alias1177/Strategist/internal/risk"
	"github.com/Alias1177/Strategist/internal/trend"
	"github.com/Alias1177/Strategist/models"
)

func testEngine(strategies []models.Strategy) *Engine {
	return NewEngine(
		strategies,
		backtest.NewEngine(backtest.DefaultCosts()),
		regime.NewClassifier(),
		trend.DefaultFilter(),
		risk.NewGate(risk.NewCorrelationManager(), risk.NewCalendar(0)),
		NewWeightStore(),
	)
}

func TestEvaluateNoData(t *testing.T) {
	e := testEngine([]models.Strategy{{ID: "s1"}})

	v := e.Evaluate(Input{Pair: "EURUSD"})
	if v.Signal != nil {
		t.Fatal("no data must never produce a signal")
	}
	if v.Reason == "" {
		t.Error("a withheld signal must carry a reason")
	}
}

// steadyUptrend builds an hourly series rising 0.02% per bar with a
// small alternating wobble, timed so the last bar lands inside active
// liquidity hours. A noisier patch well before the end keeps the
// closing volatility below its trailing history, so neither the regime
// classifier nor the risk gate reads the finish as a volatility spike.
func steadyUptrend(n int) []models.Candle {
	base := time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC)
	price := 1.10
	cc := make([]models.Candle, n)
	for i := range cc {
		wobble := 0.0002
		if i >= n-100 && i < n-50 {
			wobble = 0.0004
		}
		factor := 1.0002 + wobble
		if i%2 == 1 {
			factor = 1.0002 - wobble
		}
		open := price
		price *= factor
		cc[i] = models.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      open,
			High:      price * 1.001,
			Low:       price * 0.999,
			Close:     price,
			Volume:    1000,
		}
	}
	return cc
}

// votingStrategies builds bulls and bears that survive the trending
// regime filter. The family fixes regime compatibility; the params fix
// the vote: no params resolves to the momentum rule, which reads a
// steady rise as buy, while the reversal params read it as overbought.
func votingStrategies(bulls, bears int) []models.Strategy {
	exit := models.ExitRule{StopLossPct: 0.002, TakeProfitPct: 0.004}
	var out []models.Strategy
	for i := 0; i < bulls; i++ {
		out = append(out, models.Strategy{
			ID:     fmt.Sprintf("bull_%d", i),
			Family: models.FamilyEMACross,
			Exit:   exit,
		})
	}
	for i := 0; i < bears; i++ {
		out = append(out, models.Strategy{
			ID:     fmt.Sprintf("bear_%d", i),
			Family: models.FamilyEMACross,
			Params: models.RSIReversalParams{Period: 14, Oversold: 1, Overbought: 50},
			Exit:   exit,
		})
	}
	return out
}

func trendingInput(series []models.Candle) Input {
	return Input{
		Pair:     "EURUSD",
		Series:   series,
		FourHour: candles.Resample(series, 4),
		Daily:    candles.ResampleDaily(series),
	}
}

func TestEvaluateSupermajority(t *testing.T) {
	series := steadyUptrend(1440)
	e := testEngine(votingStrategies(9, 1))

	v := e.Evaluate(trendingInput(series))
	if v.Signal == nil {
		t.Fatalf("nine of ten buyers must clear the agreement gate, got reason %q", v.Reason)
	}
	if v.Signal.Direction != models.DirectionBuy {
		t.Errorf("direction = %v, want buy", v.Signal.Direction)
	}
	if math.Abs(v.Signal.Agreement-0.9) > 1e-9 {
		t.Errorf("agreement = %v, want 0.9", v.Signal.Agreement)
	}
	if len(v.Signal.Strategies) != 9 {
		t.Errorf("agreeing strategies = %d, want the 9 buyers", len(v.Signal.Strategies))
	}
	if v.Signal.Confidence < 80 {
		t.Errorf("confidence = %v, want at least the 80 threshold", v.Signal.Confidence)
	}
}

func TestEvaluateInsufficientAgreement(t *testing.T) {
	series := steadyUptrend(1440)
	e := testEngine(votingStrategies(6, 4))

	v := e.Evaluate(trendingInput(series))
	if v.Signal != nil {
		t.Fatal("a 6/4 split must not produce a signal")
	}
	if v.Reason != "insufficient agreement" {
		t.Errorf("reason = %q, want insufficient agreement", v.Reason)
	}
}

func TestAggregateLevels(t *testing.T) {
	votes := []vote{
		{entry: 1.10, stopLoss: 1.09, takeProfit: 1.12},
		{entry: 1.12, stopLoss: 1.11, takeProfit: 1.14},
	}

	zone, sl, tp := aggregateLevels(votes, models.DirectionBuy, 1.11)

	wantMid := 1.11
	if math.Abs(zone[0]-wantMid*0.999) > 1e-9 || math.Abs(zone[1]-wantMid*1.001) > 1e-9 {
		t.Errorf("entry zone = %v, want +-0.1%% around %v", zone, wantMid)
	}
	if math.Abs(sl-1.10) > 1e-9 {
		t.Errorf("stop loss = %v, want 1.10", sl)
	}
	if math.Abs(tp-1.13) > 1e-9 {
		t.Errorf("take profit = %v, want 1.13", tp)
	}
}

func TestAggregateLevelsFallbacks(t *testing.T) {
	votes := []vote{{entry: 1.10}} // no levels attached

	_, sl, tp := aggregateLevels(votes, models.DirectionBuy, 1.10)
	if math.Abs(sl-1.10*0.98) > 1e-9 {
		t.Errorf("buy stop fallback = %v, want 2%% below price", sl)
	}
	if math.Abs(tp-1.10*1.04) > 1e-9 {
		t.Errorf("buy take fallback = %v, want 4%% above price", tp)
	}

	_, sl, tp = aggregateLevels(votes, models.DirectionSell, 1.10)
	if math.Abs(sl-1.10*1.02) > 1e-9 {
		t.Errorf("sell stop fallback = %v, want 2%% above price", sl)
	}
	if math.Abs(tp-1.10*0.96) > 1e-9 {
		t.Errorf("sell take fallback = %v, want 4%% below price", tp)
	}
}

func TestCombinedConfidence(t *testing.T) {
	e := testEngine(nil)

	// 0.6*90 + 0.4*80 + 2*2 = 90
	agreeing := []vote{{confidence: 80}, {confidence: 80}}
	if got := e.combinedConfidence(0.9, agreeing); math.Abs(got-90) > 1e-9 {
		t.Errorf("combinedConfidence = %v, want 90", got)
	}

	// breadth bonus caps at 10 and the total at 100
	many := make([]vote, 20)
	for i := range many {
		many[i] = vote{confidence: 100}
	}
	if got := e.combinedConfidence(1.0, many); got != 100 {
		t.Errorf("combinedConfidence = %v, want the 100 cap", got)
	}
}

func TestRecordOutcomeRewards(t *testing.T) {
	e := testEngine(nil)
	state := models.MarketState{TrendBucket: 1}

	e.RecordOutcome(models.TradeOutcome{StrategyID: "s1", Return: 0.02}, state, nil)
	win := e.weights.Confidence("s1", state, 0)

	e.RecordOutcome(models.TradeOutcome{StrategyID: "s2", Return: -0.02}, state, nil)
	loss := e.weights.Confidence("s2", state, 50)

	if win <= 0 {
		t.Errorf("profit should leave positive confidence, got %v", win)
	}
	if loss != 0 {
		t.Errorf("loss should clamp to 0, got %v", loss)
	}
}

func TestSetStrategiesPrunesWeights(t *testing.T) {
	e := testEngine([]models.Strategy{{ID: "a"}, {ID: "b"}})
	state := models.MarketState{}
	e.weights.Confidence("a", state, 70)
	e.weights.Confidence("b", state, 70)

	e.SetStrategies([]models.Strategy{{ID: "a"}})
	if e.weights.Len() != 1 {
		t.Errorf("weights = %d, want only the kept strategy's entry", e.weights.Len())
	}
}
