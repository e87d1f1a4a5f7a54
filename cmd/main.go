// Batch pipeline: generate candidate strategies, backtest them over
// historical data, filter, walk-forward validate and persist the
// survivors.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Strategist/config"
	"github.com/Alias1177/Strategist/internal/backtest"
	"github.com/Alias1177/Strategist/internal/database"
	"github.com/Alias1177/Strategist/internal/datafeed"
	"github.com/Alias1177/Strategist/internal/logging"
	"github.com/Alias1177/Strategist/internal/strategy"
	"github.com/Alias1177/Strategist/internal/walkforward"
	"github.com/Alias1177/Strategist/models"
)

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

	feed := datafeed.NewClient(cfg.TwelveAPIKey, time.Duration(cfg.RequestTimeout)*time.Second)
	engine := backtest.NewEngine(backtest.DefaultCosts())
	catalog := strategy.NewCatalog(cfg.RandomSeed)
	filter := strategy.NewFilter(strategy.DefaultFilterCriteria())

	policy := walkforward.DefaultPolicy()
	policy.MinPeriods = cfg.WalkForwardMin
	validator, err := walkforward.NewValidator(policy, engine)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid walk-forward policy")
	}

	for _, pair := range cfg.Pairs {
		if ctx.Err() != nil {
			break
		}
		if err := runPair(ctx, pair, cfg, feed, engine, catalog, filter, validator, db); err != nil {
			log.Error().Err(err).Str("pair", pair).Msg("Pipeline failed for pair")
		}
	}
}

func runPair(
	ctx context.Context,
	pair string,
	cfg *config.Config,
	feed *datafeed.Client,
	engine *backtest.Engine,
	catalog *strategy.Catalog,
	filter *strategy.Filter,
	validator *walkforward.Validator,
	db *database.DB,
) error {
	log.Info().Str("pair", pair).Msg("Starting pipeline")

	candles, err := feed.HistoricalCandles(ctx, pair, cfg.Interval, cfg.BacktestDays)
	if err != nil {
		return err
	}
	log.Info().Str("pair", pair).Int("candles", len(candles)).Msg("Fetched history")

	strategies, err := catalog.GenerateBatch(cfg.StrategyCount)
	if err != nil {
		return err
	}

	outcomes, report := engine.RunBatch(ctx, strategies, candles, cfg.WorkerCount)
	log.Info().
		Str("pair", pair).
		Int("completed", report.Completed).
		Int("aborted", report.Aborted).
		Msg("Backtests complete")

	results := make([]models.BacktestResult, 0, len(outcomes))
	byID := make(map[string]models.Strategy, len(outcomes))
	for _, o := range outcomes {
		if o.Err != nil {
			continue
		}
		results = append(results, o.Result)
		byID[o.Strategy.ID] = o.Strategy
	}

	passed := filter.Apply(results)
	candidates := make([]models.Strategy, 0, len(passed))
	for _, r := range passed {
		candidates = append(candidates, byID[r.StrategyID])
	}

	valid, validResults, _ := validator.Filter(candidates, candles, passed)

	for i, s := range valid {
		if err := db.SaveStrategy(s); err != nil {
			log.Error().Err(err).Str("strategy", s.ID).Msg("Failed to save strategy")
			continue
		}
		if err := db.SaveResult(validResults[i], true); err != nil {
			log.Error().Err(err).Str("strategy", s.ID).Msg("Failed to save result")
		}
	}

	log.Info().
		Str("pair", pair).
		Int("generated", len(strategies)).
		Int("filtered", len(passed)).
		Int("validated", len(valid)).
		Msg("Pipeline complete")
	return nil
}
