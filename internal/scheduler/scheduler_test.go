package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRunImmediateFirstPass(t *testing.T) {
	var mu sync.Mutex
	checked := make(map[string]int)

	s := New([]string{"EURUSD", "GBPUSD"}, Tasks{
		CheckSignals: func(ctx context.Context, pair string) error {
			mu.Lock()
			checked[pair]++
			mu.Unlock()
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// the first pass runs before any ticker fires
	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		complete := checked["EURUSD"] >= 1 && checked["GBPUSD"] >= 1
		mu.Unlock()
		if complete {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first signal pass did not run")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestRunSkipsFailingPair(t *testing.T) {
	var mu sync.Mutex
	var order []string

	s := New([]string{"BAD", "GOOD"}, Tasks{
		CheckSignals: func(ctx context.Context, pair string) error {
			mu.Lock()
			order = append(order, pair)
			mu.Unlock()
			if pair == "BAD" {
				return errors.New("feed unavailable")
			}
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()
	s.Run(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(order) < 2 || order[0] != "BAD" || order[1] != "GOOD" {
		t.Errorf("a failing pair must not stop the pass, got %v", order)
	}
}

func TestCheckAllStopsOnCancelledContext(t *testing.T) {
	calls := 0
	s := New([]string{"A", "B", "C"}, Tasks{
		CheckSignals: func(ctx context.Context, pair string) error {
			calls++
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.checkAll(ctx)

	if calls != 0 {
		t.Errorf("cancelled context ran %d checks, want 0", calls)
	}
}
