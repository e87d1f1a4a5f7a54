// Package ensemble combines the votes of validated strategies into a
// single trade recommendation, gated by regime, trend and risk checks.
package ensemble

import (
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Strategist/internal/backtest"
	"github.com/Alias1177/Strategist/internal/candles"
	"github.com/Alias1177/Strategist/internal/regime"
	"github.com/Alias1177/Strategist/internal/risk"
	"github.com/Alias1177/Strategist/internal/trend"
	"github.com/Alias1177/Strategist/models"
)

const baseConfidence = 70.0

// Input carries everything the ensemble needs for one evaluation
type Input struct {
	Pair      string
	Series    []models.Candle
	FourHour  []models.Candle
	Daily     []models.Candle
	Positions []models.Position
}

// Verdict is the evaluation outcome: a signal, or nil with the reason
// it was withheld.
type Verdict struct {
	Signal *models.Signal
	Reason string
}

// Engine runs the full decision pipeline for one pair
type Engine struct {
	strategies    []models.Strategy
	minAgreement  float64
	minConfidence float64
	backtester    *backtest.Engine
	classifier    *regime.Classifier
	trendFilter   *trend.Filter
	gate          *risk.Gate
	weights       *WeightStore
	logger        zerolog.Logger
}

// NewEngine creates an ensemble over the validated strategies.
// Thresholds: 0.80 agreement, 80 confidence.
func NewEngine(strategies []models.Strategy, backtester *backtest.Engine, classifier *regime.Classifier, trendFilter *trend.Filter, gate *risk.Gate, weights *WeightStore) *Engine {
	return &Engine{
		strategies:    strategies,
		minAgreement:  0.80,
		minConfidence: 80.0,
		backtester:    backtester,
		classifier:    classifier,
		trendFilter:   trendFilter,
		gate:          gate,
		weights:       weights,
		logger:        log.With().Str("component", "ensemble").Logger(),
	}
}

// SetStrategies swaps the validated strategy set, used after a
// relearning cycle.
func (e *Engine) SetStrategies(strategies []models.Strategy) {
	e.strategies = strategies
	keep := make(map[string]bool, len(strategies))
	for _, s := range strategies {
		keep[s.ID] = true
	}
	e.weights.Prune(keep)
}

// vote is one strategy's opinion with its adaptive confidence
type vote struct {
	strategyID string
	direction  models.Direction
	confidence float64
	entry      float64
	stopLoss   float64
	takeProfit float64
}

// Evaluate runs the full pipeline: regime filter, strategy polling,
// agreement vote, level aggregation, trend filter and risk gate.
func (e *Engine) Evaluate(in Input) Verdict {
	if len(in.Series) == 0 {
		return Verdict{Reason: "no price data"}
	}
	currentPrice := in.Series[len(in.Series)-1].Close

	detected, regimeConf := e.classifier.Classify(in.Series)
	compatible := regime.FilterByRegime(e.strategies, detected, regime.DefaultMinCompatibility)
	if len(compatible) == 0 {
		return Verdict{Reason: "no strategies compatible with " + detected.String() + " regime"}
	}

	state := ExtractMarketState(in.Series)
	recent := candles.Tail(in.Series, 1000)

	var votes []vote
	for _, s := range compatible {
		sig := e.backtester.LatestSignal(s, recent)
		if sig == nil {
			continue
		}
		votes = append(votes, vote{
			strategyID: s.ID,
			direction:  sig.Direction,
			confidence: e.weights.Confidence(s.ID, state, baseConfidence),
			entry:      sig.Entry,
			stopLoss:   sig.StopLoss,
			takeProfit: sig.TakeProfit,
		})
	}
	if len(votes) == 0 {
		return Verdict{Reason: "no strategy signals"}
	}

	var buys, sells int
	for _, v := range votes {
		switch v.direction {
		case models.DirectionBuy:
			buys++
		case models.DirectionSell:
			sells++
		}
	}
	total := float64(len(votes))
	buyAgreement := float64(buys) / total
	sellAgreement := float64(sells) / total

	var direction models.Direction
	var agreement float64
	switch {
	case buyAgreement >= e.minAgreement:
		direction, agreement = models.DirectionBuy, buyAgreement
	case sellAgreement >= e.minAgreement:
		direction, agreement = models.DirectionSell, sellAgreement
	default:
		e.logger.Debug().
			Float64("buy_agreement", buyAgreement).
			Float64("sell_agreement", sellAgreement).
			Msg("No consensus")
		return Verdict{Reason: "insufficient agreement"}
	}

	agreeing := make([]vote, 0, len(votes))
	for _, v := range votes {
		if v.direction == direction {
			agreeing = append(agreeing, v)
		}
	}

	entryZone, stopLoss, takeProfit := aggregateLevels(agreeing, direction, currentPrice)
	confidence := e.combinedConfidence(agreement, agreeing)
	if confidence < e.minConfidence {
		e.logger.Debug().Float64("confidence", confidence).Msg("Confidence below threshold")
		return Verdict{Reason: "confidence below threshold"}
	}

	strategyIDs := make([]string, len(agreeing))
	for i, v := range agreeing {
		strategyIDs[i] = v.strategyID
	}

	sig := &models.Signal{
		Pair:             in.Pair,
		Direction:        direction,
		EntryZone:        entryZone,
		StopLoss:         stopLoss,
		TakeProfit:       takeProfit,
		Confidence:       confidence,
		Strategies:       strategyIDs,
		Agreement:        agreement,
		Timestamp:        time.Now().UTC(),
		Regime:           detected,
		RegimeConfidence: regimeConf,
	}

	alignment := e.trendFilter.CheckAlignment(in.Series, in.FourHour, in.Daily)
	if !e.trendFilter.Apply(sig, alignment) {
		return Verdict{Reason: "trend not aligned"}
	}
	if ok, reason := e.gate.Check(*sig, in.Series, in.Positions); !ok {
		return Verdict{Reason: reason}
	}

	e.logger.Info().
		Str("pair", in.Pair).
		Stringer("direction", direction).
		Float64("confidence", confidence).
		Float64("agreement", agreement).
		Int("strategies", len(agreeing)).
		Msg("Signal generated")
	return Verdict{Signal: sig}
}

// RecordOutcome feeds one realized trade back into the weight store
func (e *Engine) RecordOutcome(outcome models.TradeOutcome, state models.MarketState, next *models.MarketState) {
	var reward float64
	switch {
	case outcome.Return > 0:
		reward = 1
	case outcome.Return < 0:
		reward = -1
	}
	e.weights.Update(outcome.StrategyID, state, reward, next)
}

// aggregateLevels builds the entry zone and levels from the agreeing
// votes, with fixed-percentage fallbacks when a level is missing.
func aggregateLevels(agreeing []vote, direction models.Direction, currentPrice float64) ([2]float64, float64, float64) {
	var entries, stops, takes []float64
	for _, v := range agreeing {
		entries = append(entries, v.entry)
		if v.stopLoss != 0 && !math.IsNaN(v.stopLoss) {
			stops = append(stops, v.stopLoss)
		}
		if v.takeProfit != 0 && !math.IsNaN(v.takeProfit) {
			takes = append(takes, v.takeProfit)
		}
	}

	avgEntry := candles.Mean(entries)
	entryZone := [2]float64{avgEntry * (1 - 0.001), avgEntry * (1 + 0.001)}

	stopLoss := candles.Mean(stops)
	if len(stops) == 0 {
		if direction == models.DirectionBuy {
			stopLoss = currentPrice * 0.98
		} else {
			stopLoss = currentPrice * 1.02
		}
	}
	takeProfit := candles.Mean(takes)
	if len(takes) == 0 {
		if direction == models.DirectionBuy {
			takeProfit = currentPrice * 1.04
		} else {
			takeProfit = currentPrice * 0.96
		}
	}
	return entryZone, stopLoss, takeProfit
}

// combinedConfidence blends agreement with the mean strategy
// confidence and a small bonus for breadth.
func (e *Engine) combinedConfidence(agreement float64, agreeing []vote) float64 {
	confs := make([]float64, len(agreeing))
	for i, v := range agreeing {
		confs[i] = v.confidence
	}
	confidence := agreement*100*0.6 + candles.Mean(confs)*0.4
	confidence += math.Min(float64(len(agreeing))*2, 10)
	return math.Min(confidence, 100.0)
}
