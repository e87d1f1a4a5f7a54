package models

import (
	"encoding/json"
	"fmt"
)

// Family identifies the rule family a strategy belongs to. The backtest
// engine dispatches its rule table on this tag.
type Family int

const (
	FamilyEMACross Family = iota
	FamilyRSIReversal
	FamilyMACDCross
	FamilyBollingerBreakout
	FamilyIchimokuTrend
	FamilySupportResistance
	FamilyVolumeBreakout
	FamilyATRRange
	FamilyMultiIndicator
	FamilyCount // number of families, keep last
)

func (f Family) String() string {
	switch f {
	case FamilyEMACross:
		return "ema_cross"
	case FamilyRSIReversal:
		return "rsi_reversal"
	case FamilyMACDCross:
		return "macd_cross"
	case FamilyBollingerBreakout:
		return "bollinger_breakout"
	case FamilyIchimokuTrend:
		return "ichimoku_trend"
	case FamilySupportResistance:
		return "support_resistance"
	case FamilyVolumeBreakout:
		return "volume_breakout"
	case FamilyATRRange:
		return "atr_range"
	case FamilyMultiIndicator:
		return "multi_indicator"
	default:
		return fmt.Sprintf("family(%d)", int(f))
	}
}

// ParseFamily maps a family tag back to its enum value
func ParseFamily(s string) (Family, error) {
	for f := Family(0); f < FamilyCount; f++ {
		if f.String() == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown strategy family %q", s)
}

// Params is the per-family parameter variant. Exactly one concrete type
// exists per Family and Kind reports which.
type Params interface {
	Kind() Family
}

// DecodeParams unmarshals a stored parameter payload into the concrete
// variant for the family.
func DecodeParams(family Family, data []byte) (Params, error) {
	var p Params
	switch family {
	case FamilyEMACross:
		p = &EMACrossParams{}
	case FamilyRSIReversal:
		p = &RSIReversalParams{}
	case FamilyMACDCross:
		p = &MACDCrossParams{}
	case FamilyBollingerBreakout:
		p = &BollingerParams{}
	case FamilyIchimokuTrend:
		p = &IchimokuParams{}
	case FamilySupportResistance:
		p = &SupportResistanceParams{}
	case FamilyVolumeBreakout:
		p = &VolumeBreakoutParams{}
	case FamilyATRRange:
		p = &ATRRangeParams{}
	case FamilyMultiIndicator:
		p = &MultiIndicatorParams{}
	default:
		return nil, fmt.Errorf("unknown strategy family %d", family)
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("decoding %s params: %w", family, err)
	}
	return deref(p), nil
}

// deref returns the value behind a decoded pointer variant so Params
// values stay comparable and type-switchable by value.
func deref(p Params) Params {
	switch v := p.(type) {
	case *EMACrossParams:
		return *v
	case *RSIReversalParams:
		return *v
	case *MACDCrossParams:
		return *v
	case *BollingerParams:
		return *v
	case *IchimokuParams:
		return *v
	case *SupportResistanceParams:
		return *v
	case *VolumeBreakoutParams:
		return *v
	case *ATRRangeParams:
		return *v
	case *MultiIndicatorParams:
		return *v
	default:
		return p
	}
}

type EMACrossParams struct {
	FastPeriod       int `json:"fast_period"`
	SlowPeriod       int `json:"slow_period"`
	ConfirmationBars int `json:"confirmation_bars"`
}

func (EMACrossParams) Kind() Family { return FamilyEMACross }

type RSIReversalParams struct {
	Period     int     `json:"period"`
	Oversold   float64 `json:"oversold"`
	Overbought float64 `json:"overbought"`
}

func (RSIReversalParams) Kind() Family { return FamilyRSIReversal }

type MACDCrossParams struct {
	FastPeriod   int `json:"fast_period"`
	SlowPeriod   int `json:"slow_period"`
	SignalPeriod int `json:"signal_period"`
}

func (MACDCrossParams) Kind() Family { return FamilyMACDCross }

type BollingerParams struct {
	Period int     `json:"period"`
	StdDev float64 `json:"std_dev"`
}

func (BollingerParams) Kind() Family { return FamilyBollingerBreakout }

type IchimokuParams struct {
	Tenkan int `json:"tenkan"`
	Kijun  int `json:"kijun"`
	Senkou int `json:"senkou"`
}

func (IchimokuParams) Kind() Family { return FamilyIchimokuTrend }

type SupportResistanceParams struct {
	Lookback int `json:"lookback"`
}

func (SupportResistanceParams) Kind() Family { return FamilySupportResistance }

type VolumeBreakoutParams struct {
	Period     int     `json:"period"`
	Multiplier float64 `json:"multiplier"`
}

func (VolumeBreakoutParams) Kind() Family { return FamilyVolumeBreakout }

type ATRRangeParams struct {
	Period     int     `json:"period"`
	Multiplier float64 `json:"multiplier"`
}

func (ATRRangeParams) Kind() Family { return FamilyATRRange }

// MultiIndicatorParams combines several basic indicators and requires
// all but one of them to agree before a signal fires.
type MultiIndicatorParams struct {
	Constituents []Family `json:"constituents"` // drawn from ema/rsi/macd/bollinger
	EMAPeriod    int      `json:"ema_period"`
	RSIPeriod    int      `json:"rsi_period"`
	Required     int      `json:"required"` // constituents that must agree
}

func (MultiIndicatorParams) Kind() Family { return FamilyMultiIndicator }

// ExitRule describes how a strategy places its protective levels.
// Either the percentage offsets or the ATR multiples are set, never
// both.
type ExitRule struct {
	StopLossPct   float64 `json:"stop_loss_pct,omitempty"`
	TakeProfitPct float64 `json:"take_profit_pct,omitempty"`
	StopLossATR   float64 `json:"stop_loss_atr,omitempty"`
	TakeProfitATR float64 `json:"take_profit_atr,omitempty"`
}

// Strategy is an immutable rule-based trading strategy. Created by the
// catalog, never mutated, referenced by every downstream component.
type Strategy struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Family     Family   `json:"family"`
	Timeframe  string   `json:"timeframe"`
	Session    Session  `json:"session_filter"`
	Exit       ExitRule `json:"exit_conditions"`
	Params     Params   `json:"parameters"`
	RiskReward float64  `json:"risk_reward_ratio"`
}
