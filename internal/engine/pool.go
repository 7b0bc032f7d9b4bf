package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aryankumar/costfleet/internal/util"
)

// Task is one unit of work targeting a single subscription
type Task struct {
	// SubscriptionID identifies which subscription this task targets
	SubscriptionID string

	// Execute performs the work. The context carries the overall run
	// deadline; implementations must treat cancellation as best-effort
	// abandonment, not guaranteed interruption.
	Execute func(ctx context.Context) (interface{}, error)
}

// TaskResult is the raw outcome of one task before aggregation
type TaskResult struct {
	SubscriptionID string
	Value          interface{}
	Err            error
	Duration       time.Duration
}

// Pool fans tasks out over a bounded set of workers and fans results back in.
// A Pool is built for one run: submit every task, call Execute once, read the
// results. Results always come back in submission order regardless of
// completion order, and every submitted task yields exactly one result.
type Pool struct {
	workers int
	logger  *slog.Logger

	mu      sync.Mutex
	tasks   []Task
	running atomic.Bool
}

// NewPool creates a worker pool bounded to the given concurrency.
// workers must be >= 1; callers validate beforehand, but a bad value is
// clamped rather than panicking mid-run.
func NewPool(workers int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		workers: workers,
		logger:  logger,
	}
}

// Submit queues a task. Returns an error for malformed tasks or when the
// pool is already executing.
func (p *Pool) Submit(task Task) error {
	if p.running.Load() {
		return util.NewPreconditionError("pool", nil, "cannot submit while executing")
	}
	if task.SubscriptionID == "" {
		return util.NewPreconditionError("task.subscriptionID", nil, "must not be empty")
	}
	if task.Execute == nil {
		return util.NewPreconditionError("task.execute", nil, "must not be nil")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks = append(p.tasks, task)
	return nil
}

// TaskCount returns the number of queued tasks
func (p *Pool) TaskCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

// WorkerCount returns the pool's concurrency bound
func (p *Pool) WorkerCount() int {
	return p.workers
}

// Execute runs all submitted tasks and returns one result per task, in
// submission order. If ctx expires first, still-pending tasks are reported
// as run-timeout failures and in-flight work is abandoned cooperatively.
func (p *Pool) Execute(ctx context.Context) []TaskResult {
	return p.ExecuteWithProgress(ctx, nil)
}

// ExecuteWithProgress runs all tasks, invoking progressFn after each task
// completes with (completed, total) counts.
func (p *Pool) ExecuteWithProgress(ctx context.Context, progressFn func(completed, total int)) []TaskResult {
	if !p.running.CompareAndSwap(false, true) {
		p.logger.Error("pool is already executing")
		return nil
	}
	defer p.running.Store(false)

	p.mu.Lock()
	tasks := make([]Task, len(p.tasks))
	copy(tasks, p.tasks)
	p.mu.Unlock()

	total := len(tasks)
	if total == 0 {
		return nil
	}

	workers := p.workers
	if workers > total {
		workers = total
	}

	p.logger.Debug("starting fan-out", "tasks", total, "workers", workers)
	start := time.Now()

	type indexed struct {
		index int
		task  Task
	}
	taskCh := make(chan indexed, total)
	for i, t := range tasks {
		taskCh <- indexed{index: i, task: t}
	}
	close(taskCh)

	// Results land directly in their submission slot; each slot is written
	// by exactly one worker, so no lock is needed beyond the WaitGroup.
	results := make([]TaskResult, total)
	done := make([]atomic.Bool, total)
	var completed atomic.Int32

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for item := range taskCh {
				// A run past its deadline stops picking up work; the
				// remaining tasks are reported below.
				if ctx.Err() != nil {
					return
				}

				results[item.index] = p.runTask(ctx, item.task)
				done[item.index].Store(true)

				n := completed.Add(1)
				if progressFn != nil {
					progressFn(int(n), total)
				}
			}
		}(w)
	}
	wg.Wait()

	// Tasks that never ran (deadline hit while they were queued) still get
	// exactly one result each.
	for i := range results {
		if !done[i].Load() {
			results[i] = TaskResult{
				SubscriptionID: tasks[i].SubscriptionID,
				Err:            util.WrapErrorf(util.ErrRunTimeout, "task never started"),
			}
		}
	}

	p.logger.Debug("fan-out finished",
		"tasks", total,
		"completed", completed.Load(),
		"duration", time.Since(start))

	return results
}

// runTask executes one task, translating deadline expiry into the run-timeout
// taxonomy.
func (p *Pool) runTask(ctx context.Context, task Task) TaskResult {
	start := time.Now()
	value, err := task.Execute(ctx)
	duration := time.Since(start)

	if err != nil && ctx.Err() == context.DeadlineExceeded {
		// The overall run deadline expired while this task was in flight.
		err = util.WrapErrorf(util.ErrRunTimeout, "abandoned after %s", duration.Round(time.Millisecond))
	}

	if err != nil {
		p.logger.Warn("task failed",
			"subscription", task.SubscriptionID,
			"duration", duration,
			"error", err)
	} else {
		p.logger.Debug("task succeeded",
			"subscription", task.SubscriptionID,
			"duration", duration)
	}

	return TaskResult{
		SubscriptionID: task.SubscriptionID,
		Value:          value,
		Err:            err,
		Duration:       duration,
	}
}
