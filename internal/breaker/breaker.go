// Package breaker implements a per-upstream-class circuit breaker.
//
// Each upstream class (for example "compute", "network", "cost") gets its own
// state machine: Closed until the failure threshold is reached, Open for the
// cool-down period, then HalfOpen for exactly one trial call that decides
// between closing and re-opening. The breaker wraps the fully-retried
// operation, so transient blips already absorbed by retries never trip it.
package breaker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aryankumar/costfleet/internal/util"
)

// State represents the breaker state for one upstream class
type State int

const (
	// StateClosed means calls flow through normally
	StateClosed State = iota
	// StateOpen means calls fail fast without reaching the upstream
	StateOpen
	// StateHalfOpen means one trial call is probing the upstream
	StateHalfOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config configures breakers created by a Registry
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit. Default: 5.
	FailureThreshold int

	// CoolDown is how long an open circuit blocks calls before allowing a
	// half-open trial. Default: 30s.
	CoolDown time.Duration
}

// DefaultConfig returns the standard breaker configuration
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		CoolDown:         30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.CoolDown <= 0 {
		c.CoolDown = 30 * time.Second
	}
	return c
}

// Breaker is the state machine for a single upstream class. All state is
// guarded by its own mutex so unrelated classes never contend.
type Breaker struct {
	config Config
	logger *slog.Logger
	class  string

	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	openedAt            time.Time
	trialInFlight       bool

	// now is swappable for tests
	now func() time.Time
}

// NewBreaker creates a breaker for one upstream class
func NewBreaker(class string, config Config, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Breaker{
		config: config.withDefaults(),
		logger: logger,
		class:  class,
		state:  StateClosed,
		now:    time.Now,
	}
}

// Guard runs op through the breaker. When the circuit is open it fails fast
// with util.ErrCircuitOpen without invoking op.
func (b *Breaker) Guard(ctx context.Context, op func(context.Context) (interface{}, error)) (interface{}, error) {
	if err := b.before(); err != nil {
		return nil, err
	}

	value, err := op(ctx)
	b.after(err)
	return value, err
}

// State returns the current state, applying the Open -> HalfOpen transition
// if the cool-down has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

// ConsecutiveFailures returns the current failure streak
func (b *Breaker) ConsecutiveFailures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consecutiveFailures
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.stateLocked() {
	case StateOpen:
		return util.WrapErrorf(util.ErrCircuitOpen, "upstream class %q", b.class)
	case StateHalfOpen:
		// Exactly one trial call may probe the upstream.
		if b.trialInFlight {
			return util.WrapErrorf(util.ErrCircuitOpen, "upstream class %q (trial in flight)", b.class)
		}
		b.trialInFlight = true
	}
	return nil
}

func (b *Breaker) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		if err != nil {
			b.consecutiveFailures++
			if b.consecutiveFailures >= b.config.FailureThreshold {
				b.state = StateOpen
				b.openedAt = b.now()
				b.logger.Warn("circuit opened",
					"class", b.class,
					"consecutive_failures", b.consecutiveFailures,
					"cool_down", b.config.CoolDown)
			}
		} else {
			b.consecutiveFailures = 0
		}

	case StateHalfOpen:
		b.trialInFlight = false
		if err != nil {
			// Trial failed, back to open with a fresh cool-down window.
			b.state = StateOpen
			b.openedAt = b.now()
			b.logger.Warn("circuit re-opened after failed trial", "class", b.class)
		} else {
			b.state = StateClosed
			b.consecutiveFailures = 0
			b.logger.Info("circuit closed after successful trial", "class", b.class)
		}
	}
}

func (b *Breaker) stateLocked() State {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.config.CoolDown {
		b.state = StateHalfOpen
		b.trialInFlight = false
		b.logger.Debug("circuit half-open, allowing trial", "class", b.class)
	}
	return b.state
}

// Registry holds one breaker per upstream class. The map is guarded by a
// read-write lock; each breaker carries its own mutex, so steady-state guard
// calls on different classes only share a read lock.
type Registry struct {
	config Config
	logger *slog.Logger

	mu       sync.RWMutex
	breakers map[string]*Breaker
}

// NewRegistry creates an empty breaker registry
func NewRegistry(config Config, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		config:   config.withDefaults(),
		logger:   logger,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for the given upstream class, creating it on first
// use.
func (r *Registry) Get(class string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[class]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[class]; ok {
		return b
	}
	b = NewBreaker(class, r.config, r.logger)
	r.breakers[class] = b
	return b
}

// Guard runs op through the breaker for the given upstream class
func (r *Registry) Guard(ctx context.Context, class string, op func(context.Context) (interface{}, error)) (interface{}, error) {
	return r.Get(class).Guard(ctx, op)
}
