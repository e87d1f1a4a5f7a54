package backtest

import (
	"math"

	"github.com/Alias1177/Strategist/internal/candles"
	"github.com/Alias1177/Strategist/models"
)

// WorstCase returns the result recorded for a strategy whose simulation
// failed: zero trades, zero confidence, maximum drawdown.
func WorstCase(s models.Strategy) models.BacktestResult {
	return models.BacktestResult{
		StrategyID:   s.ID,
		StrategyName: s.Name,
		MaxDrawdown:  1.0,
		TotalReturn:  -1.0,
	}
}

// calculateMetrics aggregates realized trades into a BacktestResult
func calculateMetrics(s models.Strategy, trades []models.Trade) models.BacktestResult {
	if len(trades) == 0 {
		return WorstCase(s)
	}

	var wins, losses []float64
	var totalReturn, totalWin, totalLoss float64
	pnls := make([]float64, len(trades))
	returns := make([]float64, len(trades))
	for i, t := range trades {
		pnls[i] = t.PnL
		returns[i] = t.PnLPct / 100
		totalReturn += t.PnL
		if t.PnL > 0 {
			wins = append(wins, t.PnL)
			totalWin += t.PnL
		} else if t.PnL < 0 {
			losses = append(losses, -t.PnL)
			totalLoss += -t.PnL
		}
	}

	winRate := float64(len(wins)) / float64(len(trades))
	avgWin := candles.Mean(wins)
	avgLoss := candles.Mean(losses)

	var riskReward float64
	if avgLoss > 0 {
		riskReward = avgWin / avgLoss
	}

	var profitFactor float64
	if totalLoss > 0 {
		profitFactor = totalWin / totalLoss
	}

	maxDrawdown := drawdown(pnls)

	var sharpe float64
	if std := candles.Std(pnls); len(pnls) > 1 && std > 0 {
		sharpe = candles.Mean(pnls) / std * math.Sqrt(252) // annualized
	}

	return models.BacktestResult{
		StrategyID:      s.ID,
		StrategyName:    s.Name,
		WinRate:         winRate,
		TotalTrades:     len(trades),
		WinningTrades:   len(wins),
		LosingTrades:    len(losses),
		MaxDrawdown:     maxDrawdown,
		SharpeRatio:     sharpe,
		RiskReward:      riskReward,
		TotalReturn:     totalReturn,
		AverageWin:      avgWin,
		AverageLoss:     avgLoss,
		ProfitFactor:    profitFactor,
		ConfidenceScore: confidenceScore(winRate, sharpe, maxDrawdown, profitFactor, len(trades)),
		TradeReturns:    returns,
	}
}

// drawdown computes the largest peak-to-trough dip of the cumulative
// P&L curve, as a fraction of the running peak.
func drawdown(pnls []float64) float64 {
	var cum, peak, maxDD float64
	for _, p := range pnls {
		cum += p
		if cum > peak {
			peak = cum
		}
		dd := (peak - cum) / (peak + 1e-10)
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// confidenceScore blends backtest quality signals into a composite
// [0,100] score: win rate 30%, Sharpe 25%, inverse drawdown 20%, profit
// factor 15%, trade-count adequacy 10%.
func confidenceScore(winRate, sharpe, maxDrawdown, profitFactor float64, totalTrades int) float64 {
	winRateScore := clip(winRate*100, 0, 100)
	sharpeScore := clip(sharpe*10, 0, 100)
	drawdownScore := clip(100-maxDrawdown*500, 0, 100)
	profitFactorScore := clip(profitFactor*25, 0, 100)
	tradeCountScore := clip(float64(totalTrades)/10, 0, 100)

	confidence := winRateScore*0.30 +
		sharpeScore*0.25 +
		drawdownScore*0.20 +
		profitFactorScore*0.15 +
		tradeCountScore*0.10

	return clip(confidence, 0, 100)
}

func clip(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(x, hi))
}
