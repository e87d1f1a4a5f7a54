package risk

import (
	"strings"
	"testing"
	"time"

	"github.com/Alias1177/Strategist/models"
)

// quietGate builds a gate whose calendar is pinned to a clear moment
func quietGate() *Gate {
	calendar := NewCalendar(30 * time.Minute)
	calendar.now = func() time.Time {
		return time.Date(2025, 6, 9, 15, 0, 0, 0, time.UTC) // quiet Monday
	}
	return NewGate(NewCorrelationManager(), calendar)
}

// calmSeries ends inside liquid hours with steady volatility
func calmSeries(n int) []models.Candle {
	// walk backwards so the last bar lands at 14:00 UTC
	end := time.Date(2025, 6, 9, 14, 0, 0, 0, time.UTC)
	cc := make([]models.Candle, n)
	for i := range cc {
		price := 1.10
		if i%2 == 0 {
			price = 1.101
		}
		cc[i] = models.Candle{
			Timestamp: end.Add(time.Duration(i-n+1) * time.Hour),
			Open:      price,
			High:      price + 0.001,
			Low:       price - 0.001,
			Close:     price,
		}
	}
	return cc
}

func TestGateAcceptsCleanSignal(t *testing.T) {
	g := quietGate()
	sig := models.Signal{
		Pair:       "EURUSD",
		Direction:  models.DirectionBuy,
		StopLoss:   1.099,
		TakeProfit: 1.103,
	}

	ok, reason := g.Check(sig, calmSeries(200), nil)
	if !ok {
		t.Errorf("clean signal rejected: %q", reason)
	}
}

func TestGateRejections(t *testing.T) {
	g := quietGate()
	base := models.Signal{
		Pair:       "EURUSD",
		Direction:  models.DirectionBuy,
		StopLoss:   1.099,
		TakeProfit: 1.103,
	}

	t.Run("volatility spike", func(t *testing.T) {
		cc := calmSeries(200)
		// violent swings over the last stretch push the current
		// volatility past its trailing 95th percentile
		for i := len(cc) - 10; i < len(cc); i++ {
			if i%2 == 0 {
				cc[i].Close = 1.20
			} else {
				cc[i].Close = 1.00
			}
		}
		ok, reason := g.Check(base, cc, nil)
		if ok || !strings.Contains(reason, "volatility") {
			t.Errorf("Check() = %v (%q), want a volatility rejection", ok, reason)
		}
	})

	t.Run("illiquid hour", func(t *testing.T) {
		cc := calmSeries(200)
		for i := range cc {
			cc[i].Timestamp = cc[i].Timestamp.Add(13 * time.Hour) // last bar at 03:00
		}
		ok, reason := g.Check(base, cc, nil)
		if ok || !strings.Contains(reason, "liquidity") {
			t.Errorf("Check() = %v (%q), want a liquidity rejection", ok, reason)
		}
	})

	t.Run("levels out of range", func(t *testing.T) {
		sig := base
		sig.StopLoss = 0.90 // far beyond 3x the recent range
		ok, reason := g.Check(sig, calmSeries(200), nil)
		if ok || !strings.Contains(reason, "range") {
			t.Errorf("Check() = %v (%q), want a price-sanity rejection", ok, reason)
		}
	})

	t.Run("news blackout", func(t *testing.T) {
		calendar := NewCalendar(30 * time.Minute)
		calendar.now = func() time.Time {
			return time.Date(2025, 6, 10, 13, 30, 0, 0, time.UTC) // Tuesday release
		}
		g := NewGate(NewCorrelationManager(), calendar)
		ok, reason := g.Check(base, calmSeries(200), nil)
		if ok || !strings.Contains(reason, "news blackout") {
			t.Errorf("Check() = %v (%q), want a news rejection", ok, reason)
		}
	})

	t.Run("correlated exposure", func(t *testing.T) {
		positions := []models.Position{{Pair: "GBPUSD", Direction: models.DirectionBuy}}
		sig := base
		sig.Direction = models.DirectionSell
		sig.StopLoss = 1.103
		sig.TakeProfit = 1.099
		positions[0].Direction = models.DirectionSell // both sells accumulate USD
		ok, reason := g.Check(sig, calmSeries(200), positions)
		if ok || !strings.Contains(reason, "correlation") {
			t.Errorf("Check() = %v (%q), want a correlation rejection", ok, reason)
		}
	})
}
