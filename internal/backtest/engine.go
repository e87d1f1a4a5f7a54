// Package backtest replays price series against strategies and
// aggregates realized P&L into performance metrics.
package backtest

import (
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Strategist/models"
)

// Costs are the fixed per-trade execution costs applied to both sides
// of every simulated trade.
type Costs struct {
	Slippage float64
	Spread   float64
}

// DefaultCosts returns the standard cost assumptions
func DefaultCosts() Costs {
	return Costs{Slippage: 0.0002, Spread: 0.0001}
}

// Engine simulates strategies over historical candles
type Engine struct {
	costs  Costs
	logger zerolog.Logger
}

// NewEngine creates a backtest engine with the given cost model
func NewEngine(costs Costs) *Engine {
	return &Engine{
		costs:  costs,
		logger: log.With().Str("component", "backtest").Logger(),
	}
}

// Run backtests one strategy over a price series. Any failure during
// signal generation or trade execution is caught and replaced with a
// worst-case result so one bad strategy never aborts a batch.
func (e *Engine) Run(s models.Strategy, cc []models.Candle) (result models.BacktestResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Str("strategy", s.ID).
				Interface("panic", r).
				Msg("Backtest failed, recording worst-case result")
			result = WorstCase(s)
		}
	}()

	sigs, err := generateSignals(s, cc)
	if err != nil {
		e.logger.Error().Err(err).Str("strategy", s.ID).Msg("Signal generation failed")
		return WorstCase(s)
	}

	trades := e.executeTrades(s, cc, sigs)
	return calculateMetrics(s, trades)
}

// position is an open simulated position during the trade walk
type position struct {
	trade models.Trade
}

// executeTrades walks the series once: open when flat on a directional
// signal, close and re-open on reversal, close the final position at
// the last bar.
func (e *Engine) executeTrades(s models.Strategy, cc []models.Candle, sigs []barSignal) []models.Trade {
	var trades []models.Trade
	var open *position

	for i, sig := range sigs {
		if sig.Direction == models.DirectionNone {
			continue
		}

		if open != nil && sig.Direction == open.trade.Direction.Opposite() {
			trades = append(trades, e.closeTrade(open.trade, cc[i].Close, cc[i].Timestamp))
			open = nil
		}

		if open == nil {
			entry := sig.Entry
			if sig.Direction == models.DirectionBuy {
				entry *= 1 + e.costs.Slippage + e.costs.Spread
			} else {
				entry *= 1 - e.costs.Slippage - e.costs.Spread
			}
			open = &position{trade: models.Trade{
				StrategyID: s.ID,
				Direction:  sig.Direction,
				EntryTime:  cc[i].Timestamp,
				EntryPrice: entry,
				StopLoss:   sig.StopLoss,
				TakeProfit: sig.TakeProfit,
			}}
		}
	}

	if open != nil {
		last := cc[len(cc)-1]
		trades = append(trades, e.closeTrade(open.trade, last.Close, last.Timestamp))
	}
	return trades
}

// closeTrade realizes a position at the raw exit price, applying
// slippage and spread, then clamping the P&L at the stop-loss or
// take-profit level when the adjusted exit breached one.
func (e *Engine) closeTrade(t models.Trade, rawExit float64, exitTime time.Time) models.Trade {
	cost := e.costs.Slippage + e.costs.Spread
	var exit, pnl float64

	if t.Direction == models.DirectionBuy {
		exit = rawExit * (1 - cost)
		pnl = exit - t.EntryPrice
		if exit <= t.StopLoss {
			pnl = t.StopLoss - t.EntryPrice
		} else if exit >= t.TakeProfit {
			pnl = t.TakeProfit - t.EntryPrice
		}
	} else {
		exit = rawExit * (1 + cost)
		pnl = t.EntryPrice - exit
		if exit >= t.StopLoss && t.StopLoss > 0 {
			pnl = t.EntryPrice - t.StopLoss
		} else if exit <= t.TakeProfit {
			pnl = t.EntryPrice - t.TakeProfit
		}
	}

	t.ExitPrice = exit
	t.ExitTime = exitTime
	t.PnL = pnl
	if t.EntryPrice != 0 {
		t.PnLPct = pnl / t.EntryPrice * 100
	}
	return t
}

// StrategySignal is the latest directional opinion of one strategy,
// used by the ensemble when polling.
type StrategySignal struct {
	StrategyID string
	Direction  models.Direction
	Entry      float64
	StopLoss   float64
	TakeProfit float64
}

// LatestSignal returns the most recent non-neutral signal of a strategy
// over the series, or nil when the strategy is currently silent.
func (e *Engine) LatestSignal(s models.Strategy, cc []models.Candle) *StrategySignal {
	sigs, err := generateSignals(s, cc)
	if err != nil {
		return nil
	}
	for i := len(sigs) - 1; i >= 0; i-- {
		if sigs[i].Direction == models.DirectionNone {
			continue
		}
		if math.IsNaN(sigs[i].Entry) || sigs[i].Entry == 0 {
			return nil
		}
		return &StrategySignal{
			StrategyID: s.ID,
			Direction:  sigs[i].Direction,
			Entry:      sigs[i].Entry,
			StopLoss:   sigs[i].StopLoss,
			TakeProfit: sigs[i].TakeProfit,
		}
	}
	return nil
}
