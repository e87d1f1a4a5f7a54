package regime

import (
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Strategist/models"
)

// DefaultMinCompatibility is the cutoff below which a strategy family
// is excluded from voting in the detected regime.
const DefaultMinCompatibility = 0.6

// compatibility scores each (family, regime) pair. Trend followers
// score high in trends, mean reverters in ranges, breakout families in
// between. MultiIndicator is neutral everywhere.
var compatibility = [models.FamilyCount][models.RegimeCount]float64{
	models.FamilyEMACross:          {0.3, 1.0, 1.0, 0.4},
	models.FamilyRSIReversal:       {1.0, 0.4, 0.4, 0.6},
	models.FamilyMACDCross:         {0.2, 0.9, 0.9, 0.3},
	models.FamilyBollingerBreakout: {1.0, 0.5, 0.5, 0.7},
	models.FamilyIchimokuTrend:     {0.2, 0.9, 0.9, 0.3},
	models.FamilySupportResistance: {0.8, 0.6, 0.6, 0.6},
	models.FamilyVolumeBreakout:    {0.4, 0.8, 0.8, 0.5},
	models.FamilyATRRange:          {0.9, 0.3, 0.3, 0.7},
	models.FamilyMultiIndicator:    {0.5, 0.5, 0.5, 0.5},
}

// Compatibility returns the score for a family under a regime
func Compatibility(family models.Family, regime models.Regime) float64 {
	if family < 0 || family >= models.FamilyCount || regime < 0 || regime >= models.RegimeCount {
		return 0.5
	}
	return compatibility[family][regime]
}

// FilterByRegime drops strategies whose family scores below the cutoff
// under the given regime.
func FilterByRegime(strategies []models.Strategy, regime models.Regime, minCompatibility float64) []models.Strategy {
	compatible := make([]models.Strategy, 0, len(strategies))
	for _, s := range strategies {
		if Compatibility(s.Family, regime) >= minCompatibility {
			compatible = append(compatible, s)
		}
	}
	log.Info().
		Str("component", "regime").
		Stringer("regime", regime).
		Int("before", len(strategies)).
		Int("after", len(compatible)).
		Msg("Regime compatibility filter")
	return compatible
}
