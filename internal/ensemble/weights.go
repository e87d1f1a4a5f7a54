package ensemble

import (
	"math"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Strategist/internal/candles"
	"github.com/Alias1177/Strategist/models"
)

// stateKey identifies one (market state, strategy) weight
type stateKey struct {
	state      models.MarketState
	strategyID string
}

// WeightStore maps market states to per-strategy confidence, learned
// online from realized trade outcomes. Safe for concurrent use.
type WeightStore struct {
	mu           sync.RWMutex
	weights      map[stateKey]float64
	learningRate float64
	discount     float64
	logger       zerolog.Logger
}

// NewWeightStore creates a store with learning rate 0.1 and discount
// factor 0.95.
func NewWeightStore() *WeightStore {
	return &WeightStore{
		weights:      make(map[stateKey]float64),
		learningRate: 0.1,
		discount:     0.95,
		logger:       log.With().Str("component", "weight_store").Logger(),
	}
}

// Confidence returns the learned confidence (0-100) for a strategy in
// the given market state, seeding new entries from the base confidence.
func (w *WeightStore) Confidence(strategyID string, state models.MarketState, base float64) float64 {
	key := stateKey{state: state, strategyID: strategyID}

	w.mu.RLock()
	weight, ok := w.weights[key]
	w.mu.RUnlock()
	if !ok {
		weight = base / 100.0
		w.mu.Lock()
		if existing, ok := w.weights[key]; ok {
			weight = existing
		} else {
			w.weights[key] = weight
		}
		w.mu.Unlock()
	}
	return math.Max(0, math.Min(weight*100, 100))
}

// Update nudges the weight for a (state, strategy) pair towards the
// reward: +1 profit, -1 loss, 0 no trade. When the next state is known
// its value is discounted into the target.
func (w *WeightStore) Update(strategyID string, state models.MarketState, reward float64, next *models.MarketState) {
	key := stateKey{state: state, strategyID: strategyID}

	w.mu.Lock()
	defer w.mu.Unlock()

	current := w.weights[key]
	target := reward
	if next != nil {
		target = reward + w.discount*w.weights[stateKey{state: *next, strategyID: strategyID}]
	}
	updated := current + w.learningRate*(target-current)
	w.weights[key] = updated

	w.logger.Debug().
		Str("strategy", strategyID).
		Float64("before", current).
		Float64("after", updated).
		Msg("Updated strategy weight")
}

// Prune drops every weight not belonging to one of the kept strategies
func (w *WeightStore) Prune(keep map[string]bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for key := range w.weights {
		if !keep[key.strategyID] {
			delete(w.weights, key)
		}
	}
}

// Len returns the number of stored weights
func (w *WeightStore) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.weights)
}

// ExtractMarketState discretizes the trailing 50 bars into the bucket
// key used by the weight store. Short series map to the zero state.
func ExtractMarketState(cc []models.Candle) models.MarketState {
	if len(cc) < 50 {
		return models.MarketState{}
	}
	recent := candles.Tail(cc, 50)
	closes := candles.Closes(recent)

	smaShort := candles.SMA(closes, 10)
	smaLong := candles.SMA(closes, 30)
	short := smaShort[len(smaShort)-1]
	long := smaLong[len(smaLong)-1]
	trendStrength := math.Abs(short-long) / long

	vol := candles.RollingVolatility(recent, 20)
	currentVol := vol[len(vol)-1]
	volMedian := candles.Percentile(vol, 50)
	volRegime := math.Min(currentVol/(volMedian+1e-10), 2.0) / 2.0

	atr := candles.ATR(recent, 14)
	currentATR := atr[len(atr)-1]
	atrMedian := candles.Percentile(atr, 50)
	atrPct := math.Min(currentATR/(atrMedian+1e-10), 2.0) / 2.0

	hour := recent[len(recent)-1].Timestamp.UTC().Hour()
	session := 0
	if hour >= 8 && hour <= 20 {
		session = 1
	}

	returns := candles.Returns(recent)
	momentum := math.Abs(candles.Mean(tail(returns, 10)))

	return models.MarketState{
		TrendBucket:    bucket(trendStrength*10, 9),
		VolBucket:      bucket(volRegime*10, 9),
		ATRBucket:      bucket(atrPct*10, 9),
		ActiveSession:  session,
		MomentumBucket: bucket(momentum*1000, 9),
	}
}

func bucket(x float64, limit int) int {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	b := int(x)
	if b > limit {
		return limit
	}
	return b
}

func tail(xs []float64, n int) []float64 {
	if len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}
