package breaker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aryankumar/costfleet/internal/util"
)

var errUpstream = errors.New("upstream down")

// clockBreaker returns a breaker whose clock can be advanced manually.
func clockBreaker(config Config) (*Breaker, *time.Time) {
	b := NewBreaker("test", config, nil)
	now := time.Now()
	b.now = func() time.Time { return now }
	return b, &now
}

func failingOp(calls *atomic.Int32) func(context.Context) (interface{}, error) {
	return func(ctx context.Context) (interface{}, error) {
		calls.Add(1)
		return nil, errUpstream
	}
}

func succeedingOp(calls *atomic.Int32) func(context.Context) (interface{}, error) {
	return func(ctx context.Context) (interface{}, error) {
		calls.Add(1)
		return "ok", nil
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.expected)
		}
	}
}

func TestBreakerTripsAtThreshold(t *testing.T) {
	b, _ := clockBreaker(Config{FailureThreshold: 3, CoolDown: time.Minute})
	ctx := context.Background()

	var calls atomic.Int32
	for i := 0; i < 3; i++ {
		if _, err := b.Guard(ctx, failingOp(&calls)); !errors.Is(err, errUpstream) {
			t.Fatalf("call %d: expected upstream error, got %v", i, err)
		}
	}

	if b.State() != StateOpen {
		t.Fatalf("after threshold failures state = %v, want open", b.State())
	}

	// Fourth call short-circuits without invoking the operation.
	_, err := b.Guard(ctx, failingOp(&calls))
	if !util.IsCircuitOpen(err) {
		t.Errorf("expected circuit-open error, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("open circuit must not invoke the operation, got %d calls", calls.Load())
	}
}

func TestSuccessResetsFailureStreak(t *testing.T) {
	b, _ := clockBreaker(Config{FailureThreshold: 3, CoolDown: time.Minute})
	ctx := context.Background()

	var calls atomic.Int32
	b.Guard(ctx, failingOp(&calls))
	b.Guard(ctx, failingOp(&calls))
	b.Guard(ctx, succeedingOp(&calls))

	if got := b.ConsecutiveFailures(); got != 0 {
		t.Errorf("success should reset streak, got %d", got)
	}

	// Two more failures still within a fresh streak: circuit stays closed.
	b.Guard(ctx, failingOp(&calls))
	b.Guard(ctx, failingOp(&calls))
	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed", b.State())
	}
}

func TestRecoveryThroughHalfOpen(t *testing.T) {
	t.Run("trial success closes", func(t *testing.T) {
		b, now := clockBreaker(Config{FailureThreshold: 2, CoolDown: 30 * time.Second})
		ctx := context.Background()

		var calls atomic.Int32
		b.Guard(ctx, failingOp(&calls))
		b.Guard(ctx, failingOp(&calls))
		if b.State() != StateOpen {
			t.Fatal("breaker should be open")
		}

		// Before cool-down: still fails fast.
		*now = now.Add(10 * time.Second)
		if _, err := b.Guard(ctx, succeedingOp(&calls)); !util.IsCircuitOpen(err) {
			t.Fatalf("expected fast fail before cool-down, got %v", err)
		}

		// After cool-down: the trial goes through and closes the circuit.
		*now = now.Add(25 * time.Second)
		value, err := b.Guard(ctx, succeedingOp(&calls))
		if err != nil {
			t.Fatalf("trial call failed: %v", err)
		}
		if value != "ok" {
			t.Errorf("trial value = %v", value)
		}
		if b.State() != StateClosed {
			t.Errorf("state after trial success = %v, want closed", b.State())
		}
		if b.ConsecutiveFailures() != 0 {
			t.Errorf("failure streak should reset on recovery, got %d", b.ConsecutiveFailures())
		}
	})

	t.Run("trial failure re-opens", func(t *testing.T) {
		b, now := clockBreaker(Config{FailureThreshold: 2, CoolDown: 30 * time.Second})
		ctx := context.Background()

		var calls atomic.Int32
		b.Guard(ctx, failingOp(&calls))
		b.Guard(ctx, failingOp(&calls))

		*now = now.Add(31 * time.Second)
		if _, err := b.Guard(ctx, failingOp(&calls)); !errors.Is(err, errUpstream) {
			t.Fatalf("trial should reach upstream, got %v", err)
		}
		if b.State() != StateOpen {
			t.Errorf("state after trial failure = %v, want open", b.State())
		}

		// The cool-down restarts from the failed trial.
		*now = now.Add(20 * time.Second)
		if _, err := b.Guard(ctx, failingOp(&calls)); !util.IsCircuitOpen(err) {
			t.Errorf("cool-down should restart after failed trial, got %v", err)
		}
	})
}

func TestHalfOpenAllowsSingleTrial(t *testing.T) {
	b, now := clockBreaker(Config{FailureThreshold: 1, CoolDown: time.Second})
	ctx := context.Background()

	var calls atomic.Int32
	b.Guard(ctx, failingOp(&calls))
	*now = now.Add(2 * time.Second)

	// Hold the trial open while other callers knock.
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		b.Guard(ctx, func(ctx context.Context) (interface{}, error) {
			calls.Add(1)
			<-release
			return "ok", nil
		})
	}()

	// Give the trial goroutine time to claim the slot.
	for i := 0; i < 100 && calls.Load() < 2; i++ {
		time.Sleep(time.Millisecond)
	}

	var rejected atomic.Int32
	_, err := b.Guard(ctx, succeedingOp(&rejected))
	if !util.IsCircuitOpen(err) {
		t.Errorf("second caller during trial should fail fast, got %v", err)
	}
	if rejected.Load() != 0 {
		t.Error("second caller's operation must not run during trial")
	}

	close(release)
	wg.Wait()

	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed after trial success", b.State())
	}
}

func TestRegistryIsolatesClasses(t *testing.T) {
	r := NewRegistry(Config{FailureThreshold: 1, CoolDown: time.Minute}, nil)
	ctx := context.Background()

	var calls atomic.Int32
	r.Guard(ctx, "compute", failingOp(&calls))

	if r.Get("compute").State() != StateOpen {
		t.Error("compute breaker should be open")
	}
	if r.Get("network").State() != StateClosed {
		t.Error("network breaker must be unaffected")
	}

	// The healthy class still executes.
	value, err := r.Guard(ctx, "network", succeedingOp(&calls))
	if err != nil || value != "ok" {
		t.Errorf("network call = (%v, %v), want (ok, nil)", value, err)
	}
}

func TestRegistryGetSameInstance(t *testing.T) {
	r := NewRegistry(DefaultConfig(), nil)

	var wg sync.WaitGroup
	breakers := make([]*Breaker, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			breakers[i] = r.Get("shared")
		}(i)
	}
	wg.Wait()

	for i := 1; i < 10; i++ {
		if breakers[i] != breakers[0] {
			t.Fatal("concurrent Get must return the same breaker instance")
		}
	}
}
