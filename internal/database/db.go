// Package database persists strategies, backtest results and signals
// in PostgreSQL.
package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Alias1177/Strategist/models"
)

// DB represents a database connection
type DB struct {
	*sql.DB
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// New creates a new database connection
func New(params ConnectionParams) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

// createTables creates the necessary tables if they don't exist
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS strategies (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			family TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			session TEXT NOT NULL,
			params JSONB NOT NULL,
			exit_rule JSONB NOT NULL,
			risk_reward DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS backtest_results (
			strategy_id TEXT PRIMARY KEY REFERENCES strategies(id) ON DELETE CASCADE,
			win_rate DOUBLE PRECISION NOT NULL,
			total_trades INTEGER NOT NULL,
			max_drawdown DOUBLE PRECISION NOT NULL,
			sharpe_ratio DOUBLE PRECISION NOT NULL,
			total_return DOUBLE PRECISION NOT NULL,
			profit_factor DOUBLE PRECISION NOT NULL,
			confidence_score DOUBLE PRECISION NOT NULL,
			trade_returns JSONB NOT NULL DEFAULT '[]',
			walk_forward_valid BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS signals (
			id SERIAL PRIMARY KEY,
			pair TEXT NOT NULL,
			direction TEXT NOT NULL,
			entry_low DOUBLE PRECISION NOT NULL,
			entry_high DOUBLE PRECISION NOT NULL,
			stop_loss DOUBLE PRECISION NOT NULL,
			take_profit DOUBLE PRECISION NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			agreement DOUBLE PRECISION NOT NULL,
			regime TEXT NOT NULL,
			strategies JSONB NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	return err
}

// SaveStrategy upserts one strategy definition
func (db *DB) SaveStrategy(s models.Strategy) error {
	params, err := json.Marshal(s.Params)
	if err != nil {
		return fmt.Errorf("encoding params: %w", err)
	}
	exit, err := json.Marshal(s.Exit)
	if err != nil {
		return fmt.Errorf("encoding exit rule: %w", err)
	}
	_, err = db.Exec(`
		INSERT INTO strategies (id, name, family, timeframe, session, params, exit_rule, risk_reward)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id)
		DO UPDATE SET
			name = EXCLUDED.name,
			family = EXCLUDED.family,
			timeframe = EXCLUDED.timeframe,
			session = EXCLUDED.session,
			params = EXCLUDED.params,
			exit_rule = EXCLUDED.exit_rule,
			risk_reward = EXCLUDED.risk_reward
	`, s.ID, s.Name, s.Family.String(), s.Timeframe, s.Session.String(), params, exit, s.RiskReward)
	return err
}

// LoadTopStrategies reconstructs the best walk-forward-valid strategies
// for the live ensemble.
func (db *DB) LoadTopStrategies(minConfidence float64, minTrades, limit int) ([]models.Strategy, error) {
	rows, err := db.Query(`
		SELECT s.id, s.name, s.family, s.timeframe, s.session, s.params, s.exit_rule, s.risk_reward
		FROM strategies s
		JOIN backtest_results r ON r.strategy_id = s.id
		WHERE r.walk_forward_valid
		  AND r.confidence_score >= $1
		  AND r.total_trades >= $2
		ORDER BY r.confidence_score DESC
		LIMIT $3
	`, minConfidence, minTrades, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Strategy
	for rows.Next() {
		var (
			s         models.Strategy
			family    string
			session   string
			rawParams []byte
			rawExit   []byte
		)
		if err := rows.Scan(&s.ID, &s.Name, &family, &s.Timeframe, &session, &rawParams, &rawExit, &s.RiskReward); err != nil {
			return nil, err
		}
		s.Family, err = models.ParseFamily(family)
		if err != nil {
			return nil, err
		}
		s.Session = models.ParseSession(session)
		if s.Params, err = models.DecodeParams(s.Family, rawParams); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(rawExit, &s.Exit); err != nil {
			return nil, fmt.Errorf("decoding exit rule: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SaveResult upserts one backtest result, flagging walk-forward status.
// The per-trade return sample is stored alongside the metrics as the
// baseline for drift detection.
func (db *DB) SaveResult(r models.BacktestResult, walkForwardValid bool) error {
	returns, err := json.Marshal(r.TradeReturns)
	if err != nil {
		return fmt.Errorf("encoding trade returns: %w", err)
	}
	_, err = db.Exec(`
		INSERT INTO backtest_results (
			strategy_id, win_rate, total_trades, max_drawdown, sharpe_ratio,
			total_return, profit_factor, confidence_score, trade_returns,
			walk_forward_valid, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (strategy_id)
		DO UPDATE SET
			win_rate = EXCLUDED.win_rate,
			total_trades = EXCLUDED.total_trades,
			max_drawdown = EXCLUDED.max_drawdown,
			sharpe_ratio = EXCLUDED.sharpe_ratio,
			total_return = EXCLUDED.total_return,
			profit_factor = EXCLUDED.profit_factor,
			confidence_score = EXCLUDED.confidence_score,
			trade_returns = EXCLUDED.trade_returns,
			walk_forward_valid = EXCLUDED.walk_forward_valid,
			updated_at = NOW()
	`, r.StrategyID, r.WinRate, r.TotalTrades, r.MaxDrawdown, r.SharpeRatio,
		r.TotalReturn, r.ProfitFactor, r.ConfidenceScore, returns, walkForwardValid)
	return err
}

// SaveSignal records a published signal
func (db *DB) SaveSignal(sig models.Signal) error {
	strategies, err := json.Marshal(sig.Strategies)
	if err != nil {
		return fmt.Errorf("encoding strategies: %w", err)
	}
	_, err = db.Exec(`
		INSERT INTO signals (
			pair, direction, entry_low, entry_high, stop_loss, take_profit,
			confidence, agreement, regime, strategies, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, sig.Pair, sig.Direction.String(), sig.EntryZone[0], sig.EntryZone[1],
		sig.StopLoss, sig.TakeProfit, sig.Confidence, sig.Agreement,
		sig.Regime.String(), strategies, sig.Timestamp)
	return err
}

// TopStrategy is one row of the top-strategies query
type TopStrategy struct {
	StrategyID      string
	Name            string
	ConfidenceScore float64
	WinRate         float64
	TotalTrades     int
	UpdatedAt       time.Time
}

// GetTopStrategies returns walk-forward-valid strategies above the
// confidence and trade-count floors, best first.
func (db *DB) GetTopStrategies(minConfidence float64, minTrades, limit int) ([]TopStrategy, error) {
	rows, err := db.Query(`
		SELECT s.id, s.name, r.confidence_score, r.win_rate, r.total_trades, r.updated_at
		FROM strategies s
		JOIN backtest_results r ON r.strategy_id = s.id
		WHERE r.walk_forward_valid
		  AND r.confidence_score >= $1
		  AND r.total_trades >= $2
		ORDER BY r.confidence_score DESC
		LIMIT $3
	`, minConfidence, minTrades, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TopStrategy
	for rows.Next() {
		var t TopStrategy
		if err := rows.Scan(&t.StrategyID, &t.Name, &t.ConfidenceScore, &t.WinRate, &t.TotalTrades, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetResult fetches one strategy's stored backtest result
func (db *DB) GetResult(strategyID string) (*models.BacktestResult, error) {
	var r models.BacktestResult
	var rawReturns []byte
	err := db.QueryRow(`
		SELECT strategy_id, win_rate, total_trades, max_drawdown, sharpe_ratio,
		       total_return, profit_factor, confidence_score, trade_returns
		FROM backtest_results
		WHERE strategy_id = $1
	`, strategyID).Scan(
		&r.StrategyID, &r.WinRate, &r.TotalTrades, &r.MaxDrawdown, &r.SharpeRatio,
		&r.TotalReturn, &r.ProfitFactor, &r.ConfidenceScore, &rawReturns,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(rawReturns, &r.TradeReturns); err != nil {
		return nil, fmt.Errorf("decoding trade returns: %w", err)
	}
	return &r, nil
}

// PruneStrategies deletes strategies not in the kept set
func (db *DB) PruneStrategies(keepIDs []string) error {
	encoded, err := json.Marshal(keepIDs)
	if err != nil {
		return err
	}
	_, err = db.Exec(`
		DELETE FROM strategies
		WHERE NOT (id = ANY (SELECT jsonb_array_elements_text($1::jsonb)))
	`, encoded)
	return err
}
