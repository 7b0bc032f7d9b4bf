package azure

import (
	"context"
	"sync"
	"time"

	"github.com/aryankumar/costfleet/internal/util"
)

// Fake is an in-memory API implementation for tests and for the CLI's
// offline demo mode. Data is keyed by subscription ID; unknown subscriptions
// return a permanent not-found error like the real ARM endpoint.
type Fake struct {
	mu sync.Mutex

	Subscriptions []Subscription
	VMs           map[string][]VM
	Disks         map[string][]Disk
	PublicIPs     map[string][]PublicIP
	Costs         map[string]CostSummary

	// Errs injects a failure per subscription; it takes precedence over data
	Errs map[string]error

	// Latency delays every call, for timeout and concurrency tests
	Latency time.Duration

	calls map[string]int
}

// NewFake returns an empty fake ready to be populated
func NewFake() *Fake {
	return &Fake{
		VMs:       make(map[string][]VM),
		Disks:     make(map[string][]Disk),
		PublicIPs: make(map[string][]PublicIP),
		Costs:     make(map[string]CostSummary),
		Errs:      make(map[string]error),
		calls:     make(map[string]int),
	}
}

// Calls returns how many API calls were made against the subscription
func (f *Fake) Calls(subscriptionID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[subscriptionID]
}

func (f *Fake) before(ctx context.Context, subscriptionID string) error {
	f.mu.Lock()
	f.calls[subscriptionID]++
	err := f.Errs[subscriptionID]
	latency := f.Latency
	f.mu.Unlock()

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *Fake) known(subscriptionID string) bool {
	if _, ok := f.VMs[subscriptionID]; ok {
		return true
	}
	if _, ok := f.Disks[subscriptionID]; ok {
		return true
	}
	if _, ok := f.PublicIPs[subscriptionID]; ok {
		return true
	}
	_, ok := f.Costs[subscriptionID]
	return ok
}

// ListSubscriptions implements API
func (f *Fake) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	if err := f.before(ctx, ""); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Subscription(nil), f.Subscriptions...), nil
}

// ListVMs implements API
func (f *Fake) ListVMs(ctx context.Context, subscriptionID string) ([]VM, error) {
	if err := f.before(ctx, subscriptionID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.known(subscriptionID) {
		return nil, util.Permanent(util.WrapErrorf(util.ErrNotFound, "subscription %s", subscriptionID))
	}
	return append([]VM(nil), f.VMs[subscriptionID]...), nil
}

// ListDisks implements API
func (f *Fake) ListDisks(ctx context.Context, subscriptionID string) ([]Disk, error) {
	if err := f.before(ctx, subscriptionID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.known(subscriptionID) {
		return nil, util.Permanent(util.WrapErrorf(util.ErrNotFound, "subscription %s", subscriptionID))
	}
	return append([]Disk(nil), f.Disks[subscriptionID]...), nil
}

// ListPublicIPs implements API
func (f *Fake) ListPublicIPs(ctx context.Context, subscriptionID string) ([]PublicIP, error) {
	if err := f.before(ctx, subscriptionID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.known(subscriptionID) {
		return nil, util.Permanent(util.WrapErrorf(util.ErrNotFound, "subscription %s", subscriptionID))
	}
	return append([]PublicIP(nil), f.PublicIPs[subscriptionID]...), nil
}

// CostSummary implements API
func (f *Fake) CostSummary(ctx context.Context, subscriptionID string, from, to time.Time) (*CostSummary, error) {
	if err := f.before(ctx, subscriptionID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	seeded, ok := f.Costs[subscriptionID]
	if !ok {
		return nil, util.Permanent(util.WrapErrorf(util.ErrNotFound, "subscription %s", subscriptionID))
	}

	out := seeded
	out.SubscriptionID = subscriptionID
	out.From = from
	out.To = to
	out.ByService = make(map[string]float64, len(seeded.ByService))
	for k, v := range seeded.ByService {
		out.ByService[k] = v
	}
	return &out, nil
}

var _ API = (*Fake)(nil)
var _ API = (*Client)(nil)
