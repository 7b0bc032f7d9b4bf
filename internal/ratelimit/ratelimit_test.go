package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestDisabledNeverBlocks(t *testing.T) {
	r := NewRegistry(Config{Enabled: false, RequestsPerSecond: 0.001, Burst: 1})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := r.Wait(ctx, "sub-1"); err != nil {
			t.Fatalf("disabled Wait returned %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("disabled limiter blocked for %v", elapsed)
	}
}

func TestBurstThenLimit(t *testing.T) {
	r := NewRegistry(Config{Enabled: true, RequestsPerSecond: 5, Burst: 3})

	for i := 0; i < 3; i++ {
		if !r.Allow("sub-1") {
			t.Fatalf("call %d within burst should be allowed", i)
		}
	}
	if r.Allow("sub-1") {
		t.Error("call past the burst should be denied")
	}
}

func TestBucketsAreIndependent(t *testing.T) {
	r := NewRegistry(Config{Enabled: true, RequestsPerSecond: 1, Burst: 1})

	if !r.Allow("sub-1") {
		t.Fatal("sub-1 first call should pass")
	}
	if r.Allow("sub-1") {
		t.Error("sub-1 second call should be limited")
	}
	if !r.Allow("sub-2") {
		t.Error("sub-2 must have its own bucket")
	}
}

func TestEmptyKeySharesGlobalBucket(t *testing.T) {
	r := NewRegistry(Config{Enabled: true, RequestsPerSecond: 1, Burst: 1})

	if !r.Allow("") {
		t.Fatal("first global call should pass")
	}
	if r.Allow("") {
		t.Error("second global call should be limited")
	}
}

func TestWaitRespectsContext(t *testing.T) {
	r := NewRegistry(Config{Enabled: true, RequestsPerSecond: 0.1, Burst: 1})

	// Drain the bucket.
	if err := r.Wait(context.Background(), "sub-1"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := r.Wait(ctx, "sub-1")
	if err == nil {
		t.Fatal("expected context error while waiting for refill")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Wait should give up with the context, took %v", elapsed)
	}
}

func TestWaitRefills(t *testing.T) {
	r := NewRegistry(Config{Enabled: true, RequestsPerSecond: 50, Burst: 1})
	ctx := context.Background()

	if err := r.Wait(ctx, "sub-1"); err != nil {
		t.Fatal(err)
	}

	// The next token arrives after ~20ms at 50 rps.
	start := time.Now()
	if err := r.Wait(ctx, "sub-1"); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("second call should have waited for refill, took %v", elapsed)
	}
}
