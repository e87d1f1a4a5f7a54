// Live service: periodically evaluates the ensemble for each pair,
// publishes signals to Telegram and monitors strategy drift.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Strategist/config"
	"github.com/Alias1177/Strategist/internal/backtest"
	"github.com/Alias1177/Strategist/internal/candles"
	"github.com/Alias1177/Strategist/internal/database"
	"github.com/Alias1177/Strategist/internal/datafeed"
	"github.com/Alias1177/Strategist/internal/drift"
	"github.com/Alias1177/Strategist/internal/ensemble"
	"github.com/Alias1177/Strategist/internal/logging"
	"github.com/Alias1177/Strategist/internal/notify"
	"github.com/Alias1177/Strategist/internal/regime"
	"github.com/Alias1177/Strategist/internal/risk"
	"github.com/Alias1177/Strategist/internal/scheduler"
	"github.com/Alias1177/Strategist/internal/trend"
	"github.com/Alias1177/Strategist/models"
)

// service wires the live pipeline together
type service struct {
	cfg      *config.Config
	db       *database.DB
	feed     datafeed.PriceProvider
	engine   *ensemble.Engine
	notifier notify.Notifier
	monitor  *drift.Monitor

	mu        sync.Mutex
	positions []models.Position
	outcomes  map[string][]models.TradeOutcome
	signals   int
	noTrades  int
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logging.Setup(cfg.LogLevel, cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(database.ConnectionParams{
		Host:     cfg.DatabaseHost,
		Port:     cfg.DatabasePort,
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		DBName:   cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	strategies, err := db.LoadTopStrategies(50.0, 1, 50)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load strategies")
	}
	if len(strategies) == 0 {
		log.Fatal().Msg("No validated strategies in database, run the batch pipeline first")
	}
	log.Info().Int("strategies", len(strategies)).Msg("Loaded validated strategies")

	notifier, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create telegram notifier")
	}

	backtester := backtest.NewEngine(backtest.DefaultCosts())
	gate := risk.NewGate(risk.NewCorrelationManager(), risk.NewCalendar(30*time.Minute))
	eng := ensemble.NewEngine(
		strategies,
		backtester,
		regime.NewClassifier(),
		trend.DefaultFilter(),
		gate,
		ensemble.NewWeightStore(),
	)

	svc := &service{
		cfg:      cfg,
		db:       db,
		feed:     datafeed.NewClient(cfg.TwelveAPIKey, time.Duration(cfg.RequestTimeout)*time.Second),
		engine:   eng,
		notifier: notifier,
		monitor:  drift.NewMonitor(),
		outcomes: make(map[string][]models.TradeOutcome),
	}

	sched := scheduler.New(cfg.Pairs, scheduler.Tasks{
		CheckSignals: svc.checkSignals,
		Status:       svc.sendStatus,
		Learn:        svc.runLearning,
	})
	sched.Run(ctx)
}

// checkSignals evaluates one pair and publishes the outcome
func (s *service) checkSignals(ctx context.Context, pair string) error {
	series, err := s.feed.Candles(ctx, pair, s.cfg.Interval, s.cfg.CandleCount)
	if err != nil {
		return fmt.Errorf("fetching %s candles: %w", pair, err)
	}

	verdict := s.engine.Evaluate(ensemble.Input{
		Pair:      pair,
		Series:    series,
		FourHour:  candles.Resample(series, 4),
		Daily:     candles.ResampleDaily(series),
		Positions: s.currentPositions(),
	})

	s.mu.Lock()
	if verdict.Signal != nil {
		s.signals++
	} else {
		s.noTrades++
	}
	s.mu.Unlock()

	if verdict.Signal == nil {
		log.Info().Str("pair", pair).Str("reason", verdict.Reason).Msg("No trade")
		return s.notifier.SendNoTrade(pair, verdict.Reason)
	}

	if err := s.db.SaveSignal(*verdict.Signal); err != nil {
		log.Error().Err(err).Str("pair", pair).Msg("Failed to persist signal")
	}
	s.trackPosition(models.Position{Pair: pair, Direction: verdict.Signal.Direction})
	return s.notifier.SendSignal(*verdict.Signal)
}

// sendStatus delivers the hourly activity summary
func (s *service) sendStatus(ctx context.Context) error {
	s.mu.Lock()
	signals, noTrades := s.signals, s.noTrades
	s.signals, s.noTrades = 0, 0
	s.mu.Unlock()

	return s.notifier.SendStatus(fmt.Sprintf(
		"Hourly summary: %d signals, %d evaluations without a trade", signals, noTrades))
}

// runLearning checks recent outcomes for drift and alerts on degraded
// strategies.
func (s *service) runLearning(ctx context.Context) error {
	s.mu.Lock()
	outcomes := make(map[string][]models.TradeOutcome, len(s.outcomes))
	for id, oo := range s.outcomes {
		outcomes[id] = append([]models.TradeOutcome(nil), oo...)
	}
	s.mu.Unlock()

	for strategyID, oo := range outcomes {
		baseline, err := s.db.GetResult(strategyID)
		if err != nil || baseline == nil {
			continue
		}
		returns := make([]float64, len(oo))
		for i, o := range oo {
			returns[i] = o.Return
		}
		report := s.monitor.Check(strategyID, returns, *baseline, baseline.TradeReturns)
		if !report.HasDrift || !s.monitor.ShouldAlert(strategyID) {
			continue
		}
		s.monitor.MarkAlerted(strategyID)
		if err := s.notifier.SendDriftAlert(report); err != nil {
			log.Error().Err(err).Str("strategy", strategyID).Msg("Failed to send drift alert")
		}
	}
	return nil
}

// RecordOutcome feeds a realized trade back into the learner and the
// drift window. Exposed for the trade-reconciliation path.
func (s *service) RecordOutcome(outcome models.TradeOutcome, state models.MarketState) {
	s.mu.Lock()
	s.outcomes[outcome.StrategyID] = append(s.outcomes[outcome.StrategyID], outcome)
	s.mu.Unlock()
	s.engine.RecordOutcome(outcome, state, nil)
}

func (s *service) currentPositions() []models.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Position(nil), s.positions...)
}

func (s *service) trackPosition(p models.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.positions {
		if existing.Pair == p.Pair {
			s.positions[i] = p
			return
		}
	}
	s.positions = append(s.positions, p)
}
