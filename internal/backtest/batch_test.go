package backtest

import (
	"context"
	"testing"

	"github.com/Alias1177/Strategist/internal/strategy"
)

func TestRunBatch(t *testing.T) {
	engine := NewEngine(DefaultCosts())
	catalog := strategy.NewCatalog(7)
	strategies, err := catalog.GenerateBatch(25)
	if err != nil {
		t.Fatal(err)
	}
	cc := randomWalk(7, 300)

	outcomes, report := engine.RunBatch(context.Background(), strategies, cc, 4)

	if len(outcomes) != len(strategies) {
		t.Fatalf("outcomes = %d, want %d", len(outcomes), len(strategies))
	}
	if report.Completed != len(strategies) || report.Aborted != 0 {
		t.Errorf("report = %+v, want all completed", report)
	}
	for i, o := range outcomes {
		if o.Strategy.ID != strategies[i].ID {
			t.Errorf("outcome %d out of order: %s != %s", i, o.Strategy.ID, strategies[i].ID)
		}
		if o.Err != nil {
			t.Errorf("outcome %d carries error: %v", i, o.Err)
		}
	}
}

func TestRunBatchCancelled(t *testing.T) {
	engine := NewEngine(DefaultCosts())
	strategies, err := strategy.NewCatalog(7).GenerateBatch(50)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes, report := engine.RunBatch(ctx, strategies, randomWalk(7, 300), 2)

	if report.Completed+report.Aborted != len(strategies) {
		t.Errorf("report does not account for every strategy: %+v", report)
	}
	if report.Aborted == 0 {
		t.Error("cancelled batch should abort at least some strategies")
	}
	for _, o := range outcomes {
		if o.Err != nil && o.Err != context.Canceled {
			t.Errorf("unexpected error: %v", o.Err)
		}
	}
}
