// Package drift watches live strategy performance for degradation
// relative to the backtest baseline.
package drift

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Strategist/internal/candles"
	"github.com/Alias1177/Strategist/models"
)

// Severity ranks how badly a strategy has degraded
type Severity int

const (
	SeverityNone Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "CRITICAL"
	case SeverityHigh:
		return "HIGH"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityLow:
		return "LOW"
	default:
		return "NONE"
	}
}

// metricDrift is the outcome of one baseline-vs-recent comparison
type metricDrift struct {
	HasDrift    bool
	Recent      float64
	Baseline    float64
	Degradation float64
}

// Report describes one strategy's drift check
type Report struct {
	StrategyID   string
	Timestamp    time.Time
	RecentTrades int
	HasDrift     bool
	Severity     Severity
	WinRate      metricDrift
	ProfitFactor metricDrift
	Sharpe       metricDrift
	Distribution struct {
		HasDrift  bool
		Statistic float64
		PValue    float64
	}
}

// Summary aggregates drift status across strategies
type Summary struct {
	TotalStrategies   int
	DriftedStrategies int
	DriftRate         float64
	CriticalCount     int
	HighCount         int
	MediumCount       int
	LowCount          int
	HealthyCount      int
}

// Monitor compares recent live outcomes with backtest baselines
type Monitor struct {
	threshold float64
	minTrades int
	cooldown  time.Duration

	mu        sync.Mutex
	lastAlert map[string]time.Time

	now    func() time.Time
	logger zerolog.Logger
}

// NewMonitor creates a monitor with the standard policy: 15% metric
// degradation, 30 trades minimum, 24h alert cooldown.
func NewMonitor() *Monitor {
	return &Monitor{
		threshold: 0.15,
		minTrades: 30,
		cooldown:  24 * time.Hour,
		lastAlert: make(map[string]time.Time),
		now:       func() time.Time { return time.Now().UTC() },
		logger:    log.With().Str("component", "drift").Logger(),
	}
}

// Check compares recent trade returns against the baseline result and
// its return distribution. Too few recent trades yields a clean report.
func (m *Monitor) Check(strategyID string, recentReturns []float64, baseline models.BacktestResult, baselineReturns []float64) Report {
	r := Report{StrategyID: strategyID, Timestamp: m.now(), RecentTrades: len(recentReturns)}
	if len(recentReturns) < m.minTrades {
		m.logger.Debug().
			Str("strategy", strategyID).
			Int("trades", len(recentReturns)).
			Msg("Insufficient trades for drift detection")
		return r
	}

	recentWR, recentPF, recentSharpe := recentMetrics(recentReturns)

	r.WinRate = m.checkMetric(recentWR, baseline.WinRate)
	r.ProfitFactor = m.checkMetric(recentPF, baseline.ProfitFactor)
	r.Sharpe = m.checkMetric(recentSharpe, baseline.SharpeRatio)

	if len(recentReturns) >= 20 && len(baselineReturns) >= 20 {
		stat, p := ksTwoSample(recentReturns, baselineReturns)
		r.Distribution.Statistic = stat
		r.Distribution.PValue = p
		r.Distribution.HasDrift = p < 0.05
	}

	r.HasDrift = r.WinRate.HasDrift || r.ProfitFactor.HasDrift || r.Sharpe.HasDrift || r.Distribution.HasDrift
	r.Severity = m.severity(r)

	if r.HasDrift {
		m.logger.Warn().
			Str("strategy", strategyID).
			Float64("recent_wr", recentWR).
			Float64("baseline_wr", baseline.WinRate).
			Float64("recent_pf", recentPF).
			Stringer("severity", r.Severity).
			Msg("Drift detected")
	}
	return r
}

// checkMetric flags drift when the recent value degrades past the
// threshold relative to baseline. Non-positive baselines are skipped.
func (m *Monitor) checkMetric(recent, baseline float64) metricDrift {
	d := metricDrift{Recent: recent, Baseline: baseline}
	if baseline <= 0 {
		return d
	}
	d.Degradation = (baseline - recent) / baseline
	d.HasDrift = d.Degradation > m.threshold
	return d
}

func (m *Monitor) severity(r Report) Severity {
	count := 0
	for _, drifted := range []bool{r.WinRate.HasDrift, r.ProfitFactor.HasDrift, r.Sharpe.HasDrift, r.Distribution.HasDrift} {
		if drifted {
			count++
		}
	}
	maxDeg := math.Max(r.WinRate.Degradation, math.Max(r.ProfitFactor.Degradation, r.Sharpe.Degradation))

	switch {
	case count >= 3:
		return SeverityCritical
	case count == 2 || maxDeg > 0.30:
		return SeverityHigh
	case count == 1 || maxDeg > 0.20:
		return SeverityMedium
	case maxDeg > 0:
		return SeverityLow
	default:
		return SeverityNone
	}
}

// ShouldAlert reports whether the cooldown for a strategy has expired
func (m *Monitor) ShouldAlert(strategyID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	last, ok := m.lastAlert[strategyID]
	if !ok {
		return true
	}
	return m.now().Sub(last) >= m.cooldown
}

// MarkAlerted records that an alert went out for a strategy
func (m *Monitor) MarkAlerted(strategyID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastAlert[strategyID] = m.now()
}

// Summarize aggregates per-strategy reports
func Summarize(reports []Report) Summary {
	s := Summary{TotalStrategies: len(reports)}
	for _, r := range reports {
		switch r.Severity {
		case SeverityCritical:
			s.CriticalCount++
		case SeverityHigh:
			s.HighCount++
		case SeverityMedium:
			s.MediumCount++
		case SeverityLow:
			s.LowCount++
		default:
			s.HealthyCount++
		}
	}
	s.DriftedStrategies = s.CriticalCount + s.HighCount + s.MediumCount + s.LowCount
	if len(reports) > 0 {
		s.DriftRate = float64(s.DriftedStrategies) / float64(len(reports))
	}
	return s
}

// RecommendAction maps a severity to operator guidance
func RecommendAction(severity Severity) string {
	switch severity {
	case SeverityCritical:
		return "IMMEDIATE ACTION REQUIRED: disable strategy, review recent market conditions, retrain or replace, investigate root cause"
	case SeverityHigh:
		return "HIGH PRIORITY: reduce position size by 50%, monitor closely for 24-48 hours, prepare backup strategy, schedule retraining if drift continues"
	case SeverityMedium:
		return "MONITOR CLOSELY: continue with caution, review next 10-20 trades, check for regime changes, consider retraining if pattern continues"
	case SeverityLow:
		return "ADVISORY: continue normal operation, log for future analysis, monitor weekly performance"
	default:
		return "HEALTHY: strategy performing within expected parameters"
	}
}

// recentMetrics computes win rate, profit factor and annualized Sharpe
// over a return series.
func recentMetrics(returns []float64) (winRate, profitFactor, sharpe float64) {
	var wins int
	var totalWin, totalLoss float64
	for _, r := range returns {
		if r > 0 {
			wins++
			totalWin += r
		} else if r < 0 {
			totalLoss += -r
		}
	}
	winRate = float64(wins) / float64(len(returns))
	if totalLoss > 0 {
		profitFactor = totalWin / totalLoss
	}
	if std := candles.Std(returns); len(returns) > 1 && std > 0 {
		sharpe = candles.Mean(returns) / std * math.Sqrt(252)
	}
	return winRate, profitFactor, sharpe
}

// ksTwoSample computes the two-sample Kolmogorov-Smirnov statistic and
// its asymptotic p-value.
func ksTwoSample(a, b []float64) (statistic, pValue float64) {
	x := append([]float64(nil), a...)
	y := append([]float64(nil), b...)
	sort.Float64s(x)
	sort.Float64s(y)

	var i, j int
	var d float64
	for i < len(x) && j < len(y) {
		xi, yj := x[i], y[j]
		if xi <= yj {
			i++
		}
		if yj <= xi {
			j++
		}
		diff := math.Abs(float64(i)/float64(len(x)) - float64(j)/float64(len(y)))
		if diff > d {
			d = diff
		}
	}
	statistic = d

	n := float64(len(x)) * float64(len(y)) / float64(len(x)+len(y))
	lambda := (math.Sqrt(n) + 0.12 + 0.11/math.Sqrt(n)) * d
	pValue = kolmogorovQ(lambda)
	return statistic, pValue
}

// kolmogorovQ evaluates the asymptotic Kolmogorov survival function
func kolmogorovQ(lambda float64) float64 {
	if lambda <= 0 {
		return 1
	}
	var sum float64
	sign := 1.0
	for k := 1; k <= 100; k++ {
		term := sign * math.Exp(-2*float64(k)*float64(k)*lambda*lambda)
		sum += term
		if math.Abs(term) < 1e-10 {
			break
		}
		sign = -sign
	}
	p := 2 * sum
	return math.Max(0, math.Min(1, p))
}
