package candles

import (
	"time"

	"github.com/Alias1177/Strategist/models"
)

// Resample aggregates consecutive groups of factor bars into one,
// keeping the first open, last close, extreme high/low and summed
// volume. The trailing partial group is dropped.
func Resample(cc []models.Candle, factor int) []models.Candle {
	if factor <= 1 || len(cc) == 0 {
		return cc
	}
	out := make([]models.Candle, 0, len(cc)/factor)
	for i := 0; i+factor <= len(cc); i += factor {
		out = append(out, merge(cc[i:i+factor]))
	}
	return out
}

// ResampleDaily aggregates bars by UTC calendar day
func ResampleDaily(cc []models.Candle) []models.Candle {
	if len(cc) == 0 {
		return cc
	}
	var out []models.Candle
	start := 0
	day := dayOf(cc[0].Timestamp)
	for i := 1; i < len(cc); i++ {
		d := dayOf(cc[i].Timestamp)
		if !d.Equal(day) {
			out = append(out, merge(cc[start:i]))
			start, day = i, d
		}
	}
	out = append(out, merge(cc[start:]))
	return out
}

func merge(group []models.Candle) models.Candle {
	agg := models.Candle{
		Timestamp: group[0].Timestamp,
		Open:      group[0].Open,
		High:      group[0].High,
		Low:       group[0].Low,
		Close:     group[len(group)-1].Close,
	}
	for _, c := range group {
		if c.High > agg.High {
			agg.High = c.High
		}
		if c.Low < agg.Low {
			agg.Low = c.Low
		}
		agg.Volume += c.Volume
	}
	return agg
}

func dayOf(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
