// Package walkforward validates strategies on rolling out-of-sample
// windows to weed out overfit candidates.
package walkforward

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Strategist/internal/backtest"
	"github.com/Alias1177/Strategist/internal/candles"
	"github.com/Alias1177/Strategist/models"
)

// Policy holds the window geometry and acceptance thresholds
type Policy struct {
	TrainPeriod      time.Duration
	ValidationPeriod time.Duration
	Step             time.Duration
	MinPeriods       int
	MinDecay         float64
	MinConsistency   float64
	MinValidationWR  float64
}

// DefaultPolicy returns the standard walk-forward policy: two years of
// training, six months of validation, quarterly steps.
func DefaultPolicy() Policy {
	return Policy{
		TrainPeriod:      730 * 24 * time.Hour,
		ValidationPeriod: 180 * 24 * time.Hour,
		Step:             90 * 24 * time.Hour,
		MinPeriods:       3,
		MinDecay:         0.85,
		MinConsistency:   0.70,
		MinValidationWR:  0.45,
	}
}

// Report summarizes one strategy's walk-forward run
type Report struct {
	StrategyID          string  `json:"strategy_id"`
	Valid               bool    `json:"walk_forward_valid"`
	Periods             int     `json:"periods"`
	AvgTrainWinRate     float64 `json:"avg_train_win_rate"`
	AvgValidationWR     float64 `json:"avg_validation_win_rate"`
	WinRateDecay        float64 `json:"win_rate_decay"`
	ConsistencyScore    float64 `json:"consistency_score"`
	TrainSharpe         float64 `json:"train_sharpe"`
	ValidationSharpe    float64 `json:"validation_sharpe"`
	TrainDrawdown       float64 `json:"train_max_dd"`
	ValidationDrawdown  float64 `json:"validation_max_dd"`
}

// window is one train/validation split of the series
type window struct {
	train      []models.Candle
	validation []models.Candle
}

// Validator rolls a strategy across train/validation windows and
// checks that out-of-sample performance holds up.
type Validator struct {
	policy Policy
	engine *backtest.Engine
	logger zerolog.Logger
}

// NewValidator creates a validator backtesting with the given engine.
// The policy's window geometry is validated up front: a non-positive
// step would roll the same window forever.
func NewValidator(policy Policy, engine *backtest.Engine) (*Validator, error) {
	if policy.TrainPeriod <= 0 || policy.ValidationPeriod <= 0 {
		return nil, fmt.Errorf("train and validation periods must be positive, got %v/%v",
			policy.TrainPeriod, policy.ValidationPeriod)
	}
	if policy.Step <= 0 {
		return nil, fmt.Errorf("step must be positive, got %v", policy.Step)
	}
	if policy.MinPeriods < 1 {
		return nil, fmt.Errorf("min periods must be at least 1, got %d", policy.MinPeriods)
	}
	return &Validator{
		policy: policy,
		engine: engine,
		logger: log.With().Str("component", "walkforward").Logger(),
	}, nil
}

// generateWindows slices the series into rolling train/validation
// pairs. Windows with too few bars on either side are skipped.
func (v *Validator) generateWindows(cc []models.Candle) []window {
	if len(cc) == 0 {
		return nil
	}
	end := cc[len(cc)-1].Timestamp

	var windows []window
	trainStart := cc[0].Timestamp
	for {
		trainEnd := trainStart.Add(v.policy.TrainPeriod)
		valEnd := trainEnd.Add(v.policy.ValidationPeriod)
		if valEnd.After(end) {
			break
		}
		train := slice(cc, trainStart, trainEnd)
		validation := slice(cc, trainEnd, valEnd)
		if len(train) > 100 && len(validation) > 20 {
			windows = append(windows, window{train: train, validation: validation})
		}
		trainStart = trainStart.Add(v.policy.Step)
	}
	v.logger.Debug().Int("windows", len(windows)).Msg("Generated walk-forward windows")
	return windows
}

// slice returns the candles in [from, to)
func slice(cc []models.Candle, from, to time.Time) []models.Candle {
	out := make([]models.Candle, 0)
	for _, c := range cc {
		if !c.Timestamp.Before(from) && c.Timestamp.Before(to) {
			out = append(out, c)
		}
	}
	return out
}

// Run walk-forward backtests one strategy over the full series
func (v *Validator) Run(s models.Strategy, cc []models.Candle) Report {
	windows := v.generateWindows(cc)
	if len(windows) == 0 {
		return Report{StrategyID: s.ID, WinRateDecay: 1.0}
	}

	var trainWRs, valWRs []float64
	var trainSharpes, valSharpes []float64
	var trainDDs, valDDs []float64
	var consistencies []float64
	for _, w := range windows {
		trainRes := v.engine.Run(s, w.train)
		valRes := v.engine.Run(s, w.validation)

		trainSharpes = append(trainSharpes, trainRes.SharpeRatio)
		valSharpes = append(valSharpes, valRes.SharpeRatio)
		trainDDs = append(trainDDs, trainRes.MaxDrawdown)
		valDDs = append(valDDs, valRes.MaxDrawdown)

		if trainRes.TotalTrades > 0 {
			trainWRs = append(trainWRs, trainRes.WinRate)
		}
		if valRes.TotalTrades > 0 {
			valWRs = append(valWRs, valRes.WinRate)
		}
		if trainRes.TotalTrades > 0 && valRes.TotalTrades > 0 {
			consistencies = append(consistencies, 1.0-math.Abs(trainRes.WinRate-valRes.WinRate))
		}
	}

	avgTrainWR := candles.Mean(trainWRs)
	avgValWR := candles.Mean(valWRs)

	var decay float64
	if avgTrainWR > 0 {
		decay = avgValWR / avgTrainWR
	}
	consistency := candles.Mean(consistencies)

	r := Report{
		StrategyID:         s.ID,
		Periods:            len(windows),
		AvgTrainWinRate:    avgTrainWR,
		AvgValidationWR:    avgValWR,
		WinRateDecay:       decay,
		ConsistencyScore:   consistency,
		TrainSharpe:        candles.Mean(trainSharpes),
		ValidationSharpe:   candles.Mean(valSharpes),
		TrainDrawdown:      candles.Mean(trainDDs),
		ValidationDrawdown: candles.Mean(valDDs),
	}
	r.Valid = len(windows) >= v.policy.MinPeriods &&
		decay >= v.policy.MinDecay &&
		consistency >= v.policy.MinConsistency &&
		avgValWR >= v.policy.MinValidationWR

	v.logger.Info().
		Str("strategy", s.ID).
		Float64("train_wr", avgTrainWR).
		Float64("validation_wr", avgValWR).
		Float64("decay", decay).
		Bool("valid", r.Valid).
		Msg("Walk-forward complete")
	return r
}

// Filter keeps only the strategies that pass walk-forward validation,
// carrying their original backtest results along.
func (v *Validator) Filter(strategies []models.Strategy, cc []models.Candle, results []models.BacktestResult) ([]models.Strategy, []models.BacktestResult, []Report) {
	v.logger.Info().Int("strategies", len(strategies)).Msg("Running walk-forward validation")

	resultByID := make(map[string]models.BacktestResult, len(results))
	for _, r := range results {
		resultByID[r.StrategyID] = r
	}

	var (
		kept        []models.Strategy
		keptResults []models.BacktestResult
		reports     []Report
	)
	for i, s := range strategies {
		if (i+1)%100 == 0 {
			v.logger.Info().Int("done", i+1).Int("total", len(strategies)).Msg("Walk-forward progress")
		}
		report := v.Run(s, cc)
		reports = append(reports, report)
		if !report.Valid {
			continue
		}
		kept = append(kept, s)
		if r, ok := resultByID[s.ID]; ok {
			keptResults = append(keptResults, r)
		}
	}

	v.logger.Info().
		Int("before", len(strategies)).
		Int("after", len(kept)).
		Msg("Walk-forward filter complete")
	return kept, keptResults, reports
}
