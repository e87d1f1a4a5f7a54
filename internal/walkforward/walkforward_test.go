package walkforward

import (
	"testing"
	"time"

	"github.com/Alias1177/Strategist/internal/backtest"
	"github.com/Alias1177/Strategist/models"
)

// defaultValidator builds a validator with the standard policy
func defaultValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator(DefaultPolicy(), backtest.NewEngine(backtest.DefaultCosts()))
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestNewValidatorRejectsBadPolicy(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Policy)
	}{
		{"zero step", func(p *Policy) { p.Step = 0 }},
		{"negative step", func(p *Policy) { p.Step = -time.Hour }},
		{"zero train period", func(p *Policy) { p.TrainPeriod = 0 }},
		{"zero validation period", func(p *Policy) { p.ValidationPeriod = 0 }},
		{"zero min periods", func(p *Policy) { p.MinPeriods = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := DefaultPolicy()
			tt.mutate(&policy)
			if _, err := NewValidator(policy, backtest.NewEngine(backtest.DefaultCosts())); err == nil {
				t.Error("invalid policy must be rejected")
			}
		})
	}
}

func TestGenerateWindows(t *testing.T) {
	v := defaultValidator(t)

	tests := []struct {
		name     string
		days     int
		expected int
	}{
		{name: "four years of data", days: 1460, expected: 7},
		{name: "just one split", days: 911, expected: 1},
		{name: "too short for any split", days: 900, expected: 0},
		{name: "empty series", days: 0, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.generateWindows(sixHourlySeries(tt.days))
			if len(got) != tt.expected {
				t.Errorf("generateWindows() = %d windows, want %d", len(got), tt.expected)
			}
		})
	}
}

func TestGenerateWindowsDisjoint(t *testing.T) {
	v := defaultValidator(t)
	windows := v.generateWindows(sixHourlySeries(1460))

	for i, w := range windows {
		trainEnd := w.train[len(w.train)-1].Timestamp
		valStart := w.validation[0].Timestamp
		if !trainEnd.Before(valStart) {
			t.Errorf("window %d: validation overlaps training (%v >= %v)", i, trainEnd, valStart)
		}
	}
}

func TestRunInsufficientData(t *testing.T) {
	v := defaultValidator(t)
	s := models.Strategy{ID: "wf_test"}

	r := v.Run(s, sixHourlySeries(100))
	if r.Valid {
		t.Error("strategy must not validate without enough windows")
	}
	if r.WinRateDecay != 1.0 {
		t.Errorf("WinRateDecay = %v, want the neutral 1.0", r.WinRateDecay)
	}
	if r.Periods != 0 {
		t.Errorf("Periods = %d, want 0", r.Periods)
	}
}

func TestFilterCarriesResults(t *testing.T) {
	// a silent strategy never trades, so it can never pass validation
	v := defaultValidator(t)
	strategies := []models.Strategy{{ID: "a"}, {ID: "b"}}
	results := []models.BacktestResult{{StrategyID: "a"}, {StrategyID: "b"}}

	kept, keptResults, reports := v.Filter(strategies, sixHourlySeries(100), results)
	if len(kept) != 0 || len(keptResults) != 0 {
		t.Errorf("kept %d strategies and %d results, want none", len(kept), len(keptResults))
	}
	if len(reports) != 2 {
		t.Errorf("reports = %d, want one per strategy", len(reports))
	}
}

// sixHourlySeries builds a flat series spanning the given number of
// days at four bars per day.
func sixHourlySeries(days int) []models.Candle {
	base := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	cc := make([]models.Candle, days*4)
	for i := range cc {
		cc[i] = models.Candle{
			Timestamp: base.Add(time.Duration(i) * 6 * time.Hour),
			Open:      1.10,
			High:      1.101,
			Low:       1.099,
			Close:     1.10,
		}
	}
	return cc
}
