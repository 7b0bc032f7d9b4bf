package engine_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aryankumar/costfleet/internal/engine"
	"github.com/aryankumar/costfleet/internal/util"
)

// Example demonstrates fanning one operation out across subscriptions
func Example() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	eng, err := engine.New(engine.DefaultConfig(), logger)
	if err != nil {
		fmt.Println(err)
		return
	}

	subscriptions := []string{"prod", "staging", "dev"}

	report, err := eng.Run(context.Background(), subscriptions, engine.Operation{
		Name: "list_resources",
		Do: func(ctx context.Context, sub string) (interface{}, error) {
			// A real operation would call the cloud API here
			return fmt.Sprintf("resources from %s", sub), nil
		},
	})
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Printf("%d succeeded, %d failed\n", report.Summary.Succeeded, report.Summary.Failed)
	// Output:
	// 3 succeeded, 0 failed
}

// Example_partialFailure demonstrates that one bad subscription never fails
// the run: its outcome carries the classified error while the others carry
// values.
func Example_partialFailure() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	eng, err := engine.New(engine.DefaultConfig(), logger)
	if err != nil {
		fmt.Println(err)
		return
	}

	report, err := eng.Run(context.Background(), []string{"sub-a", "sub-b", "sub-c"}, engine.Operation{
		Name: "audit",
		Do: func(ctx context.Context, sub string) (interface{}, error) {
			if sub == "sub-b" {
				return nil, util.Permanent(fmt.Errorf("authorization failed"))
			}
			return "ok", nil
		},
	})
	if err != nil {
		fmt.Println(err)
		return
	}

	for _, o := range report.Outcomes {
		if o.Succeeded() {
			fmt.Printf("%s: %v\n", o.SubscriptionID, o.Value)
		} else {
			fmt.Printf("%s: failed (%s)\n", o.SubscriptionID, o.Kind)
		}
	}
	// Output:
	// sub-a: ok
	// sub-b: failed (permanent)
	// sub-c: ok
}

// ExamplePool_ExecuteWithProgress demonstrates progress reporting
func ExamplePool_ExecuteWithProgress() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	pool := engine.NewPool(2, logger)

	for i := 1; i <= 5; i++ {
		pool.Submit(engine.Task{
			SubscriptionID: fmt.Sprintf("sub-%d", i),
			Execute: func(ctx context.Context) (interface{}, error) {
				time.Sleep(10 * time.Millisecond)
				return "done", nil
			},
		})
	}

	results := pool.ExecuteWithProgress(context.Background(), func(completed, total int) {
		// A real application would update a progress bar here
	})

	fmt.Printf("Completed %d tasks\n", len(results))
	// Output:
	// Completed 5 tasks
}
