// Package ratelimit spaces upstream API calls with per-subscription token
// buckets.
//
// Cloud management APIs throttle per subscription, so each subscription gets
// its own bucket; callers that pass an empty key share one global bucket.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

const globalKey = "global"

// Config configures limiters created by a Registry
type Config struct {
	// Enabled turns rate limiting on. When false, Wait always returns
	// immediately.
	Enabled bool

	// RequestsPerSecond is the sustained request rate per bucket.
	// Default: 10.
	RequestsPerSecond float64

	// Burst is the bucket capacity. Default: 20.
	Burst int
}

// DefaultConfig returns the standard rate limiter configuration
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		RequestsPerSecond: 10,
		Burst:             20,
	}
}

func (c Config) withDefaults() Config {
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 10
	}
	if c.Burst <= 0 {
		c.Burst = 20
	}
	return c
}

// Registry holds one token bucket per subscription
type Registry struct {
	config Config

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// NewRegistry creates an empty limiter registry
func NewRegistry(config Config) *Registry {
	return &Registry{
		config:  config.withDefaults(),
		buckets: make(map[string]*rate.Limiter),
	}
}

func (r *Registry) bucket(key string) *rate.Limiter {
	if key == "" {
		key = globalKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.buckets[key]
	if !ok {
		l = rate.NewLimiter(rate.Limit(r.config.RequestsPerSecond), r.config.Burst)
		r.buckets[key] = l
	}
	return l
}

// Wait blocks until the subscription's bucket has a token or the context is
// cancelled. A disabled registry never blocks.
func (r *Registry) Wait(ctx context.Context, key string) error {
	if !r.config.Enabled {
		return nil
	}
	return r.bucket(key).Wait(ctx)
}

// Allow reports whether a call may proceed right now without waiting
func (r *Registry) Allow(key string) bool {
	if !r.config.Enabled {
		return true
	}
	return r.bucket(key).Allow()
}

// Tokens returns the tokens currently available to the subscription's bucket
func (r *Registry) Tokens(key string) float64 {
	if !r.config.Enabled {
		return float64(r.config.Burst)
	}
	return r.bucket(key).Tokens()
}
