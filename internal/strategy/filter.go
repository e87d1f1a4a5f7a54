package strategy

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Strategist/models"
)

// FilterCriteria holds the static threshold gate over backtest metrics
type FilterCriteria struct {
	MinSharpe       float64
	MaxDrawdown     float64
	MinTrades       int
	MinWinRate      float64
	MinProfitFactor float64
	MinConfidence   float64
}

// DefaultFilterCriteria returns the standard gate thresholds
func DefaultFilterCriteria() FilterCriteria {
	return FilterCriteria{
		MinSharpe:       0.5,
		MaxDrawdown:     0.25,
		MinTrades:       10,
		MinWinRate:      0.50,
		MinProfitFactor: 1.2,
		MinConfidence:   60.0,
	}
}

// Filter applies the threshold gate to backtest results
type Filter struct {
	criteria FilterCriteria
	logger   zerolog.Logger
}

// NewFilter creates a filter with the given criteria
func NewFilter(criteria FilterCriteria) *Filter {
	return &Filter{
		criteria: criteria,
		logger:   log.With().Str("component", "strategy_filter").Logger(),
	}
}

// Passes reports whether a result clears every threshold. Pure
// predicate, no side effects.
func (f *Filter) Passes(r models.BacktestResult) bool {
	return r.SharpeRatio >= f.criteria.MinSharpe &&
		r.MaxDrawdown <= f.criteria.MaxDrawdown &&
		r.TotalTrades >= f.criteria.MinTrades &&
		r.WinRate >= f.criteria.MinWinRate &&
		r.ProfitFactor >= f.criteria.MinProfitFactor &&
		r.ConfidenceScore >= f.criteria.MinConfidence
}

// Apply filters a result list down to those that pass
func (f *Filter) Apply(results []models.BacktestResult) []models.BacktestResult {
	filtered := make([]models.BacktestResult, 0, len(results))
	for _, r := range results {
		if f.Passes(r) {
			filtered = append(filtered, r)
			continue
		}
		f.logger.Debug().
			Str("strategy", r.StrategyID).
			Float64("sharpe", r.SharpeRatio).
			Float64("drawdown", r.MaxDrawdown).
			Int("trades", r.TotalTrades).
			Float64("confidence", r.ConfidenceScore).
			Msg("Strategy filtered out")
	}
	f.logger.Info().
		Int("before", len(results)).
		Int("after", len(filtered)).
		Msg("Applied strategy filter")
	return filtered
}
