// Package strategy generates candidate strategies and filters their
// backtest results.
package strategy

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Strategist/models"
)

var timeframes = []string{"1h", "4h", "1d"}

var sessions = []models.Session{
	models.SessionLondon,
	models.SessionNY,
	models.SessionBoth,
	models.SessionAny,
}

// Catalog generates random valid strategies. Generation is a pure
// function of the catalog's random source.
type Catalog struct {
	rng    *rand.Rand
	logger zerolog.Logger
}

// NewCatalog creates a catalog seeded with the given value
func NewCatalog(seed int64) *Catalog {
	return &Catalog{
		rng:    rand.New(rand.NewSource(seed)),
		logger: log.With().Str("component", "catalog").Logger(),
	}
}

// Generate creates one random strategy from a random family
func (c *Catalog) Generate() models.Strategy {
	family := models.Family(c.rng.Intn(int(models.FamilyCount)))
	return c.GenerateFamily(family)
}

// GenerateFamily creates one random strategy of the given family
func (c *Catalog) GenerateFamily(family models.Family) models.Strategy {
	timeframe := timeframes[c.rng.Intn(len(timeframes))]
	session := sessions[c.rng.Intn(len(sessions))]

	var (
		name   string
		params models.Params
		exit   models.ExitRule
	)

	switch family {
	case models.FamilyEMACross:
		p := models.EMACrossParams{
			FastPeriod:       c.intRange(5, 25),
			SlowPeriod:       c.intRange(30, 100),
			ConfirmationBars: c.intRange(1, 3),
		}
		name = fmt.Sprintf("ema_cross_%d_%d", p.FastPeriod, p.SlowPeriod)
		params = p
		exit = c.pctExit()

	case models.FamilyRSIReversal:
		p := models.RSIReversalParams{
			Period:     c.intRange(10, 20),
			Oversold:   c.floatRange(25, 35),
			Overbought: c.floatRange(65, 75),
		}
		name = fmt.Sprintf("rsi_reversal_%d", p.Period)
		params = p
		exit = c.pctExit()

	case models.FamilyMACDCross:
		p := models.MACDCrossParams{
			FastPeriod:   c.intRange(8, 15),
			SlowPeriod:   c.intRange(20, 30),
			SignalPeriod: c.intRange(7, 12),
		}
		name = fmt.Sprintf("macd_%d_%d_%d", p.FastPeriod, p.SlowPeriod, p.SignalPeriod)
		params = p
		exit = c.pctExit()

	case models.FamilyBollingerBreakout:
		p := models.BollingerParams{
			Period: c.intRange(15, 25),
			StdDev: c.floatRange(1.8, 2.2),
		}
		name = fmt.Sprintf("bollinger_%d_%.1f", p.Period, p.StdDev)
		params = p
		exit = c.pctExit()

	case models.FamilyIchimokuTrend:
		p := models.IchimokuParams{Tenkan: 9, Kijun: 26, Senkou: 52}
		name = "ichimoku_base"
		params = p
		exit = c.pctExit()

	case models.FamilySupportResistance:
		p := models.SupportResistanceParams{Lookback: c.intRange(20, 50)}
		name = fmt.Sprintf("sr_%d", p.Lookback)
		params = p
		exit = models.ExitRule{
			StopLossPct:   c.floatRange(0.0015, 0.004),
			TakeProfitPct: c.floatRange(0.02, 0.06),
		}

	case models.FamilyVolumeBreakout:
		p := models.VolumeBreakoutParams{
			Period:     c.intRange(10, 30),
			Multiplier: c.floatRange(1.5, 3.0),
		}
		name = fmt.Sprintf("volume_%d_%.1f", p.Period, p.Multiplier)
		params = p
		exit = c.pctExit()

	case models.FamilyATRRange:
		p := models.ATRRangeParams{
			Period:     c.intRange(10, 20),
			Multiplier: c.floatRange(1.5, 2.5),
		}
		name = fmt.Sprintf("atr_%d_%.1f", p.Period, p.Multiplier)
		params = p
		exit = models.ExitRule{
			StopLossATR:   p.Multiplier,
			TakeProfitATR: p.Multiplier * c.floatRange(1.5, 2.5),
		}

	default: // multi indicator
		basics := []models.Family{
			models.FamilyEMACross,
			models.FamilyRSIReversal,
			models.FamilyMACDCross,
			models.FamilyBollingerBreakout,
		}
		c.rng.Shuffle(len(basics), func(i, j int) { basics[i], basics[j] = basics[j], basics[i] })
		count := c.intRange(2, 4)
		picked := append([]models.Family(nil), basics[:count]...)
		p := models.MultiIndicatorParams{
			Constituents: picked,
			EMAPeriod:    c.intRange(10, 50),
			RSIPeriod:    c.intRange(10, 20),
			Required:     count - 1,
		}
		name = "multi"
		for _, f := range picked {
			name += "_" + f.String()
		}
		params = p
		exit = c.pctExit()
	}

	return models.Strategy{
		ID:         deriveID(family, params, c.rng.Int63()),
		Name:       name,
		Family:     family,
		Timeframe:  timeframe,
		Session:    session,
		Exit:       exit,
		Params:     params,
		RiskReward: c.floatRange(1.5, 3.0),
	}
}

// GenerateBatch creates n independent strategies
func (c *Catalog) GenerateBatch(n int) ([]models.Strategy, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid batch size %d", n)
	}
	strategies := make([]models.Strategy, n)
	for i := range strategies {
		strategies[i] = c.Generate()
		if (i+1)%1000 == 0 {
			c.logger.Info().Int("count", i+1).Msg("Generated strategies")
		}
	}
	c.logger.Info().Int("count", n).Msg("Strategy batch complete")
	return strategies, nil
}

func (c *Catalog) pctExit() models.ExitRule {
	return models.ExitRule{
		StopLossPct:   c.floatRange(0.0015, 0.003),
		TakeProfitPct: c.floatRange(0.003, 0.006),
	}
}

func (c *Catalog) intRange(low, high int) int {
	return low + c.rng.Intn(high-low)
}

func (c *Catalog) floatRange(low, high float64) float64 {
	return low + c.rng.Float64()*(high-low)
}

// deriveID hashes the family tag, a canonical parameter encoding and a
// random seed component into a stable identifier, unique in practice
// without a central counter.
func deriveID(family models.Family, params models.Params, seed int64) string {
	encoded, _ := json.Marshal(params)
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%s_%d", family, encoded, seed)))
	return fmt.Sprintf("%s_%x", family, sum[:4])
}
