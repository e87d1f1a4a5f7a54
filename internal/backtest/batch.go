package backtest

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Strategist/models"
)

// Outcome pairs one strategy with its backtest result. Err is set when
// the run was aborted by context cancellation rather than completed.
type Outcome struct {
	Strategy models.Strategy
	Result   models.BacktestResult
	Err      error
}

// BatchReport summarizes a completed batch run
type BatchReport struct {
	Total     int
	Completed int
	Aborted   int
	Elapsed   time.Duration
}

// RunBatch backtests every strategy over the same series using a
// bounded worker pool. Output order matches input order. Workers stop
// draining once ctx is cancelled; unfinished entries carry ctx.Err().
func (e *Engine) RunBatch(ctx context.Context, strategies []models.Strategy, cc []models.Candle, workers int) ([]Outcome, BatchReport) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	start := time.Now()
	outcomes := make([]Outcome, len(strategies))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				outcomes[idx] = Outcome{
					Strategy: strategies[idx],
					Result:   e.Run(strategies[idx], cc),
				}
			}
		}()
	}

feed:
	for i := range strategies {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	report := BatchReport{Total: len(strategies), Elapsed: time.Since(start)}
	for i := range outcomes {
		if outcomes[i].Strategy.ID == "" {
			outcomes[i] = Outcome{Strategy: strategies[i], Err: ctx.Err()}
		}
		if outcomes[i].Err != nil {
			report.Aborted++
		} else {
			report.Completed++
		}
	}

	log.Info().
		Str("component", "backtest").
		Int("total", report.Total).
		Int("completed", report.Completed).
		Int("aborted", report.Aborted).
		Dur("elapsed", report.Elapsed).
		Msg("Batch backtest finished")
	return outcomes, report
}
