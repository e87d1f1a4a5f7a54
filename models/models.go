package models

import "time"

// Candle represents a single OHLCV bar
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume,omitempty"`
}

// Direction of a signal or position
type Direction int

const (
	DirectionNone Direction = iota
	DirectionBuy
	DirectionSell
)

func (d Direction) String() string {
	switch d {
	case DirectionBuy:
		return "buy"
	case DirectionSell:
		return "sell"
	default:
		return "none"
	}
}

// Opposite returns the reverse direction
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionBuy:
		return DirectionSell
	case DirectionSell:
		return DirectionBuy
	default:
		return DirectionNone
	}
}

// Regime is a coarse market behaviour label
type Regime int

const (
	RegimeRanging Regime = iota
	RegimeTrendingUp
	RegimeTrendingDown
	RegimeVolatile
	RegimeCount // number of regimes, keep last
)

func (r Regime) String() string {
	switch r {
	case RegimeTrendingUp:
		return "trending_up"
	case RegimeTrendingDown:
		return "trending_down"
	case RegimeVolatile:
		return "volatile"
	default:
		return "ranging"
	}
}

// Session restricts a strategy to particular trading hours
type Session int

const (
	SessionAny Session = iota
	SessionLondon
	SessionNY
	SessionBoth
)

func (s Session) String() string {
	switch s {
	case SessionLondon:
		return "London"
	case SessionNY:
		return "NY"
	case SessionBoth:
		return "Both"
	default:
		return "Any"
	}
}

// ParseSession maps a session tag back to its enum value. Unknown tags
// fall back to SessionAny.
func ParseSession(s string) Session {
	switch s {
	case "London":
		return SessionLondon
	case "NY":
		return SessionNY
	case "Both":
		return SessionBoth
	default:
		return SessionAny
	}
}

// Trade is a single simulated position, created and closed within one
// backtest run
type Trade struct {
	StrategyID string    `json:"strategy_id"`
	Direction  Direction `json:"direction"`
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	PnL        float64   `json:"pnl"`
	PnLPct     float64   `json:"pnl_pct"`
}

// BacktestResult holds the performance metrics for one (strategy,
// price-window) pair. Immutable once computed.
type BacktestResult struct {
	StrategyID      string  `json:"strategy_id"`
	StrategyName    string  `json:"strategy_name"`
	WinRate         float64 `json:"win_rate"`
	TotalTrades     int     `json:"total_trades"`
	WinningTrades   int     `json:"winning_trades"`
	LosingTrades    int     `json:"losing_trades"`
	MaxDrawdown     float64 `json:"max_drawdown"`
	SharpeRatio     float64 `json:"sharpe_ratio"`
	RiskReward      float64 `json:"risk_reward_ratio"`
	TotalReturn     float64 `json:"total_return"`
	AverageWin      float64 `json:"average_win"`
	AverageLoss     float64 `json:"average_loss"`
	ProfitFactor    float64 `json:"profit_factor"`
	ConfidenceScore float64 `json:"confidence_score"`
	// TradeReturns are the per-trade fractional returns, kept as the
	// baseline sample for distributional drift checks.
	TradeReturns []float64 `json:"trade_returns,omitempty"`
}

// Signal is the ensemble's trade recommendation
type Signal struct {
	Pair             string     `json:"pair"`
	Direction        Direction  `json:"direction"`
	EntryZone        [2]float64 `json:"entry_zone"`
	StopLoss         float64    `json:"stop_loss"`
	TakeProfit       float64    `json:"take_profit"`
	Confidence       float64    `json:"confidence"`
	Strategies       []string   `json:"strategies_used"`
	Agreement        float64    `json:"agreement"`
	Timestamp        time.Time  `json:"timestamp"`
	Regime           Regime     `json:"regime"`
	RegimeConfidence float64    `json:"regime_confidence"`
	TrendAligned     bool       `json:"trend_aligned,omitempty"`
	TrendStrength    float64    `json:"trend_strength,omitempty"`
	MaxCorrelation   float64    `json:"max_correlation,omitempty"`
}

// Position is an open live position tracked for correlation checks
type Position struct {
	Pair      string    `json:"pair"`
	Direction Direction `json:"direction"`
}

// MarketState is a discretized market snapshot used as the key for
// adaptive confidence weighting. Comparable, so it can key a map.
type MarketState struct {
	TrendBucket    int `json:"trend_bucket"`
	VolBucket      int `json:"vol_bucket"`
	ATRBucket      int `json:"atr_bucket"`
	ActiveSession  int `json:"active_session"`
	MomentumBucket int `json:"momentum_bucket"`
}

// TradeOutcome is one realized live trade result fed back into the
// drift monitor and the adaptive weight store
type TradeOutcome struct {
	StrategyID string    `json:"strategy_id"`
	Pair       string    `json:"pair"`
	Return     float64   `json:"return"`
	ClosedAt   time.Time `json:"closed_at"`
}
