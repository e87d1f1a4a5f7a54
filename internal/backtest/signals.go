package backtest

import (
	"fmt"
	"math"

	"github.com/Alias1177/Strategist/internal/candles"
	"github.com/Alias1177/Strategist/models"
)

// barSignal is the per-bar output of a strategy's rule table
type barSignal struct {
	Direction  models.Direction
	Entry      float64
	StopLoss   float64
	TakeProfit float64
}

// generateSignals evaluates the strategy family's rule table over every
// bar. The returned slice is aligned with the input series; bars with
// no signal have Direction none.
func generateSignals(s models.Strategy, cc []models.Candle) ([]barSignal, error) {
	if len(cc) == 0 {
		return nil, fmt.Errorf("empty price series")
	}

	closes := candles.Closes(cc)
	sigs := make([]barSignal, len(cc))

	switch p := s.Params.(type) {
	case models.EMACrossParams:
		emaCrossSignals(sigs, closes, p.FastPeriod, p.SlowPeriod)
	case models.RSIReversalParams:
		rsiSignals(sigs, closes, p.Period, p.Oversold, p.Overbought)
	case models.MACDCrossParams:
		macdSignals(sigs, closes, p.FastPeriod, p.SlowPeriod, p.SignalPeriod)
	case models.BollingerParams:
		bollingerSignals(sigs, closes, p.Period, p.StdDev)
	case models.IchimokuParams:
		ichimokuSignals(sigs, cc, p)
	case models.SupportResistanceParams:
		supportResistanceSignals(sigs, cc, p.Lookback)
	case models.VolumeBreakoutParams:
		volumeSignals(sigs, cc, p.Period, p.Multiplier)
	case models.ATRRangeParams:
		atrSignals(sigs, cc, p.Period, p.Multiplier)
	case models.MultiIndicatorParams:
		multiIndicatorSignals(sigs, closes, p)
	default:
		momentumFallbackSignals(sigs, closes)
	}

	applyExitLevels(sigs, s, cc)
	return sigs, nil
}

func emaCrossSignals(sigs []barSignal, closes []float64, fast, slow int) {
	emaFast := candles.EMA(closes, fast)
	emaSlow := candles.EMA(closes, slow)
	prev := models.DirectionNone
	for i := range closes {
		state := models.DirectionNone
		if emaFast[i] > emaSlow[i] {
			state = models.DirectionBuy
		} else if emaFast[i] < emaSlow[i] {
			state = models.DirectionSell
		}
		// signal only on a relationship change, not during consolidation
		if i > 0 && state != models.DirectionNone && state != prev {
			sigs[i].Direction = state
		}
		prev = state
	}
}

func rsiSignals(sigs []barSignal, closes []float64, period int, oversold, overbought float64) {
	rsi := candles.RSI(closes, period)
	for i := range closes {
		switch {
		case rsi[i] < oversold:
			sigs[i].Direction = models.DirectionBuy
		case rsi[i] > overbought:
			sigs[i].Direction = models.DirectionSell
		}
	}
}

func macdSignals(sigs []barSignal, closes []float64, fast, slow, signal int) {
	macd, signalLine, hist := candles.MACD(closes, fast, slow, signal)
	for i := 1; i < len(closes); i++ {
		switch {
		case macd[i] > signalLine[i] && hist[i-1] <= 0:
			sigs[i].Direction = models.DirectionBuy
		case macd[i] < signalLine[i] && hist[i-1] >= 0:
			sigs[i].Direction = models.DirectionSell
		}
	}
}

func bollingerSignals(sigs []barSignal, closes []float64, period int, stdDev float64) {
	middle, upper, lower := candles.Bollinger(closes, period, stdDev)
	for i := range closes {
		switch {
		case closes[i] <= lower[i]:
			sigs[i].Direction = models.DirectionBuy
			sigs[i].TakeProfit = middle[i] // mean reversion target
		case closes[i] >= upper[i]:
			sigs[i].Direction = models.DirectionSell
			sigs[i].TakeProfit = middle[i]
		}
	}
}

func ichimokuSignals(sigs []barSignal, cc []models.Candle, p models.IchimokuParams) {
	highs := make([]float64, len(cc))
	lows := make([]float64, len(cc))
	for i, c := range cc {
		highs[i] = c.High
		lows[i] = c.Low
	}
	tenkan := midline(highs, lows, p.Tenkan)
	kijun := midline(highs, lows, p.Kijun)
	senkou := midline(highs, lows, p.Senkou)

	prev := models.DirectionNone
	for i, c := range cc {
		spanA := (tenkan[i] + kijun[i]) / 2
		state := models.DirectionNone
		if tenkan[i] > kijun[i] && c.Close > math.Max(spanA, senkou[i]) {
			state = models.DirectionBuy
		} else if tenkan[i] < kijun[i] && c.Close < math.Min(spanA, senkou[i]) {
			state = models.DirectionSell
		}
		if i > 0 && state != models.DirectionNone && state != prev {
			sigs[i].Direction = state
		}
		prev = state
	}
}

func midline(highs, lows []float64, period int) []float64 {
	hi := candles.RollingMax(highs, period)
	lo := candles.RollingMin(lows, period)
	out := make([]float64, len(highs))
	for i := range out {
		out[i] = (hi[i] + lo[i]) / 2
	}
	return out
}

func supportResistanceSignals(sigs []barSignal, cc []models.Candle, lookback int) {
	highs := make([]float64, len(cc))
	lows := make([]float64, len(cc))
	for i, c := range cc {
		highs[i] = c.High
		lows[i] = c.Low
	}
	resistance := candles.RollingMax(highs, lookback)
	support := candles.RollingMin(lows, lookback)

	for i := 1; i < len(cc); i++ {
		sup, res := support[i-1], resistance[i-1]
		switch {
		case cc[i].Low <= sup && cc[i].Close > sup:
			sigs[i].Direction = models.DirectionBuy // bounce off support
		case cc[i].High >= res && cc[i].Close < res:
			sigs[i].Direction = models.DirectionSell // rejection at resistance
		}
	}
}

func volumeSignals(sigs []barSignal, cc []models.Candle, period int, multiplier float64) {
	vols := make([]float64, len(cc))
	for i, c := range cc {
		vols[i] = float64(c.Volume)
	}
	volMA := candles.SMA(vols, period)
	for i := 1; i < len(cc); i++ {
		if !(vols[i] > volMA[i]*multiplier) {
			continue
		}
		// spike must be confirmed by price direction
		switch {
		case cc[i].Close > cc[i-1].Close:
			sigs[i].Direction = models.DirectionBuy
		case cc[i].Close < cc[i-1].Close:
			sigs[i].Direction = models.DirectionSell
		}
	}
}

func atrSignals(sigs []barSignal, cc []models.Candle, period int, multiplier float64) {
	atr := candles.ATR(cc, period)
	for i := 1; i < len(cc); i++ {
		band := atr[i-1] * multiplier
		switch {
		case cc[i].Close > cc[i-1].Close+band:
			sigs[i].Direction = models.DirectionBuy
		case cc[i].Close < cc[i-1].Close-band:
			sigs[i].Direction = models.DirectionSell
		}
		if sigs[i].Direction == models.DirectionNone {
			continue
		}
		if sigs[i].Direction == models.DirectionBuy {
			sigs[i].StopLoss = cc[i].Close - atr[i]*multiplier
			sigs[i].TakeProfit = cc[i].Close + atr[i]*multiplier*2
		} else {
			sigs[i].StopLoss = cc[i].Close + atr[i]*multiplier
			sigs[i].TakeProfit = cc[i].Close - atr[i]*multiplier*2
		}
	}
}

func multiIndicatorSignals(sigs []barSignal, closes []float64, p models.MultiIndicatorParams) {
	type vote func(i int) models.Direction
	var votes []vote

	for _, constituent := range p.Constituents {
		switch constituent {
		case models.FamilyEMACross:
			ema := candles.EMA(closes, p.EMAPeriod)
			votes = append(votes, func(i int) models.Direction {
				if closes[i] > ema[i] {
					return models.DirectionBuy
				}
				return models.DirectionSell
			})
		case models.FamilyRSIReversal:
			rsi := candles.RSI(closes, p.RSIPeriod)
			votes = append(votes, func(i int) models.Direction {
				switch {
				case rsi[i] < 30:
					return models.DirectionBuy
				case rsi[i] > 70:
					return models.DirectionSell
				}
				return models.DirectionNone
			})
		case models.FamilyMACDCross:
			macd, signalLine, _ := candles.MACD(closes, 12, 26, 9)
			votes = append(votes, func(i int) models.Direction {
				if macd[i] > signalLine[i] {
					return models.DirectionBuy
				}
				return models.DirectionSell
			})
		case models.FamilyBollingerBreakout:
			_, upper, lower := candles.Bollinger(closes, 20, 2.0)
			votes = append(votes, func(i int) models.Direction {
				switch {
				case closes[i] <= lower[i]:
					return models.DirectionBuy
				case closes[i] >= upper[i]:
					return models.DirectionSell
				}
				return models.DirectionNone
			})
		}
	}

	required := p.Required
	if required <= 0 || required > len(votes) {
		required = len(votes)
	}
	for i := range closes {
		var buy, sell int
		for _, v := range votes {
			switch v(i) {
			case models.DirectionBuy:
				buy++
			case models.DirectionSell:
				sell++
			}
		}
		switch {
		case buy >= required:
			sigs[i].Direction = models.DirectionBuy
		case sell >= required:
			sigs[i].Direction = models.DirectionSell
		}
	}
}

// momentumFallbackSignals is the default rule for families without a
// dedicated table entry: a plain SMA 10/30 momentum state.
func momentumFallbackSignals(sigs []barSignal, closes []float64) {
	smaShort := candles.SMA(closes, 10)
	smaLong := candles.SMA(closes, 30)
	for i := range closes {
		switch {
		case smaShort[i] > smaLong[i]:
			sigs[i].Direction = models.DirectionBuy
		case smaShort[i] < smaLong[i]:
			sigs[i].Direction = models.DirectionSell
		}
	}
}

// applyExitLevels fills entry prices and any stop/take levels the rule
// table left unset, from the strategy's exit rule.
func applyExitLevels(sigs []barSignal, s models.Strategy, cc []models.Candle) {
	var atr []float64
	if s.Exit.StopLossATR > 0 || s.Exit.TakeProfitATR > 0 {
		atr = candles.ATR(cc, 14)
	}
	for i := range sigs {
		if sigs[i].Direction == models.DirectionNone {
			continue
		}
		close := cc[i].Close
		sigs[i].Entry = close

		sign := 1.0
		if sigs[i].Direction == models.DirectionSell {
			sign = -1.0
		}
		if sigs[i].StopLoss == 0 {
			if s.Exit.StopLossATR > 0 && atr != nil && !math.IsNaN(atr[i]) {
				sigs[i].StopLoss = close - sign*atr[i]*s.Exit.StopLossATR
			} else {
				sigs[i].StopLoss = close * (1 - sign*s.Exit.StopLossPct)
			}
		}
		if sigs[i].TakeProfit == 0 || math.IsNaN(sigs[i].TakeProfit) {
			if s.Exit.TakeProfitATR > 0 && atr != nil && !math.IsNaN(atr[i]) {
				sigs[i].TakeProfit = close + sign*atr[i]*s.Exit.TakeProfitATR
			} else {
				sigs[i].TakeProfit = close * (1 + sign*s.Exit.TakeProfitPct)
			}
		}
	}
}
