package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/aryankumar/costfleet/internal/breaker"
	"github.com/aryankumar/costfleet/internal/cache"
	"github.com/aryankumar/costfleet/internal/ratelimit"
	"github.com/aryankumar/costfleet/internal/retry"
	"github.com/aryankumar/costfleet/internal/util"
)

// Operation is the work the engine fans out, one invocation per
// subscription. The engine never interprets Args or the returned value; both
// belong to the caller's domain.
type Operation struct {
	// Name identifies the operation for cache keying and logging
	Name string

	// UpstreamClass selects the circuit breaker guarding this operation's
	// upstream (for example "compute", "network", "cost"). Empty means
	// Name.
	UpstreamClass string

	// Args are the operation's caller-supplied query parameters. They are
	// folded into the cache key so distinct queries never collide.
	Args map[string]string

	// Cacheable marks the operation's results as memoizable
	Cacheable bool

	// Do performs the operation against one subscription. Failures must
	// be classified with util.Transient or util.Permanent; unclassified
	// errors are reported but never retried.
	Do func(ctx context.Context, subscriptionID string) (interface{}, error)
}

func (op Operation) upstreamClass() string {
	if op.UpstreamClass != "" {
		return op.UpstreamClass
	}
	return op.Name
}

// Config holds the knobs for one engine instance
type Config struct {
	// MaxWorkers bounds concurrently executing tasks. Default: 5.
	MaxWorkers int

	// OverallTimeout bounds one whole run. Default: 30s.
	OverallTimeout time.Duration

	// CacheEnabled turns on memoization for cacheable operations
	CacheEnabled bool

	// CacheTTL is the lifetime of cached results. Default: 300s.
	CacheTTL time.Duration

	// Retry is the per-call retry policy
	Retry retry.Policy

	// Breaker configures the per-upstream-class circuit breakers
	Breaker breaker.Config

	// RateLimit configures per-subscription request spacing
	RateLimit ratelimit.Config
}

// DefaultConfig returns the standard engine configuration
func DefaultConfig() Config {
	return Config{
		MaxWorkers:     5,
		OverallTimeout: 30 * time.Second,
		CacheEnabled:   true,
		CacheTTL:       300 * time.Second,
		Retry:          retry.DefaultPolicy(),
		Breaker:        breaker.DefaultConfig(),
		RateLimit:      ratelimit.DefaultConfig(),
	}
}

func (c Config) withDefaults() Config {
	if c.MaxWorkers == 0 {
		c.MaxWorkers = 5
	}
	if c.OverallTimeout == 0 {
		c.OverallTimeout = 30 * time.Second
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 300 * time.Second
	}
	if c.Retry == (retry.Policy{}) {
		c.Retry = retry.DefaultPolicy()
	}
	return c
}

// Validate reports the first problem with the configuration, or nil
func (c Config) Validate() error {
	if c.MaxWorkers < 1 {
		return util.NewPreconditionError("maxWorkers", c.MaxWorkers, "must be at least 1")
	}
	if c.OverallTimeout <= 0 {
		return util.NewPreconditionError("overallTimeout", c.OverallTimeout, "must be positive")
	}
	if c.CacheEnabled && c.CacheTTL <= 0 {
		return util.NewPreconditionError("cacheTTL", c.CacheTTL, "must be positive when caching is enabled")
	}
	return c.Retry.Validate()
}

// Engine aggregates one operation across many subscriptions without letting
// one slow or failing subscription block or poison the others. Cache,
// breaker, and limiter state live on the instance and are explicitly
// injected into every run; there are no package-level singletons.
type Engine struct {
	config   Config
	cache    *cache.Cache
	breakers *breaker.Registry
	limiter  *ratelimit.Registry
	retryer  *retry.Executor
	logger   *slog.Logger
}

// New creates an engine. Returns a precondition error for invalid
// configuration; zero-valued fields take their defaults first.
func New(config Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Engine{
		config:   config,
		cache:    cache.New(logger),
		breakers: breaker.NewRegistry(config.Breaker, logger),
		limiter:  ratelimit.NewRegistry(config.RateLimit),
		retryer:  retry.NewExecutor(config.Retry, logger),
		logger:   logger,
	}, nil
}

// Config returns the engine's effective configuration
func (e *Engine) Config() Config {
	return e.config
}

// SweepCache drops expired cache entries; safe to call between runs
func (e *Engine) SweepCache() int {
	return e.cache.Sweep()
}

// Run fans op out across the given subscriptions and returns the merged
// report. Per-subscription failures are captured as outcomes, never raised;
// the error return is reserved for precondition violations. The returned
// report always holds exactly one outcome per distinct subscription, in input
// order.
func (e *Engine) Run(ctx context.Context, subscriptions []string, op Operation) (*AggregateResult, error) {
	if len(subscriptions) == 0 {
		return nil, util.NewPreconditionError("subscriptions", nil, "list must not be empty")
	}
	if op.Do == nil {
		return nil, util.NewPreconditionError("operation", op.Name, "must carry a Do function")
	}
	if op.Name == "" {
		return nil, util.NewPreconditionError("operation.name", nil, "must not be empty")
	}

	subscriptions = dedupe(subscriptions)

	runCtx, cancel := context.WithTimeout(ctx, e.config.OverallTimeout)
	defer cancel()

	e.logger.Info("starting run",
		"operation", op.Name,
		"subscriptions", len(subscriptions),
		"max_workers", e.config.MaxWorkers,
		"cache_enabled", e.config.CacheEnabled && op.Cacheable)

	pool := NewPool(e.config.MaxWorkers, e.logger)
	for _, sub := range subscriptions {
		sub := sub
		if err := pool.Submit(Task{
			SubscriptionID: sub,
			Execute: func(taskCtx context.Context) (interface{}, error) {
				return e.invoke(taskCtx, op, sub)
			},
		}); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	results := pool.Execute(runCtx)
	report := aggregate(results, time.Since(start))

	e.logger.Info("run finished",
		"operation", op.Name,
		"succeeded", report.Summary.Succeeded,
		"failed", report.Summary.Failed,
		"duration", report.Duration)

	return report, nil
}

// invoke is the per-task pipeline: breaker first (fail fast takes precedence
// over a cached hit), then cache, then the rate-limited, retried call.
func (e *Engine) invoke(ctx context.Context, op Operation, subscriptionID string) (interface{}, error) {
	return e.breakers.Guard(ctx, op.upstreamClass(), func(ctx context.Context) (interface{}, error) {
		if e.config.CacheEnabled && op.Cacheable {
			key := e.cacheKey(op, subscriptionID)
			return e.cache.GetOrCompute(ctx, key, e.config.CacheTTL, func(ctx context.Context) (interface{}, error) {
				return e.call(ctx, op, subscriptionID)
			})
		}
		return e.call(ctx, op, subscriptionID)
	})
}

// call runs the underlying operation under the retry policy, spacing each
// attempt through the subscription's rate-limit bucket.
func (e *Engine) call(ctx context.Context, op Operation, subscriptionID string) (interface{}, error) {
	return e.retryer.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		if err := e.limiter.Wait(ctx, subscriptionID); err != nil {
			return nil, err
		}
		return op.Do(ctx, subscriptionID)
	})
}

func (e *Engine) cacheKey(op Operation, subscriptionID string) string {
	args := make(map[string]string, len(op.Args)+1)
	for k, v := range op.Args {
		args[k] = v
	}
	args["subscription"] = subscriptionID
	return cache.Key(op.Name, args)
}

// dedupe drops repeated subscriptions, keeping first-occurrence order
func dedupe(subscriptions []string) []string {
	seen := make(map[string]struct{}, len(subscriptions))
	out := make([]string, 0, len(subscriptions))
	for _, s := range subscriptions {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
