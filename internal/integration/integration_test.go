package integration

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aryankumar/costfleet/internal/audit"
	"github.com/aryankumar/costfleet/internal/azure"
	"github.com/aryankumar/costfleet/internal/config"
	"github.com/aryankumar/costfleet/internal/engine"
	"github.com/aryankumar/costfleet/internal/output"
	"github.com/aryankumar/costfleet/internal/util"
)

const testConfig = `
defaultSubscription: prod
subscriptions:
  prod:
    id: 11111111-1111-1111-1111-111111111111
    enabled: true
  dev:
    id: 22222222-2222-2222-2222-222222222222
    enabled: true
  sandbox:
    id: 33333333-3333-3333-3333-333333333333
    enabled: false
defaults:
  timeout: 10s
  parallel: 3
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(testConfig), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

// seedSubscription gives a subscription one stopped VM, one orphaned disk,
// and one orphaned static IP: 30.37 + 5.00 + 3.65 = 39.02 monthly.
func seedSubscription(f *azure.Fake, id string) {
	f.VMs[id] = []azure.VM{
		{Name: "web-1", ResourceGroup: "rg-app", Location: "eastus", Size: "Standard_B2s", PowerState: "deallocated"},
		{Name: "web-2", ResourceGroup: "rg-app", Location: "eastus", Size: "Standard_B2s", PowerState: "running"},
	}
	f.Disks[id] = []azure.Disk{
		{Name: "old-data", ResourceGroup: "rg-app", Location: "eastus", SizeGB: 100, SKU: "Standard_LRS", State: "Unattached"},
	}
	f.PublicIPs[id] = []azure.PublicIP{
		{Name: "lb-ip", ResourceGroup: "rg-app", Location: "eastus", Address: "1.2.3.4", AllocationMethod: "Static"},
	}
}

// TestFullWorkflow runs the complete pipeline: config resolution, the fanned
// out audit through the engine, and report rendering.
func TestFullWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	logger := testLogger()

	m := config.NewManager(writeConfig(t))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}

	// Empty selection resolves to the enabled subscriptions
	subs, err := cfg.ResolveSubscriptions(nil)
	if err != nil {
		t.Fatalf("resolving subscriptions: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("resolved %d subscriptions, want 2 (sandbox is disabled)", len(subs))
	}

	fake := azure.NewFake()
	for _, sub := range subs {
		seedSubscription(fake, sub)
	}
	auditor := audit.New(fake, logger)

	ec := engine.DefaultConfig()
	ec.MaxWorkers = cfg.Defaults.Parallel
	ec.OverallTimeout = cfg.Defaults.Timeout
	ec.RateLimit.Enabled = false

	eng, err := engine.New(ec, logger)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}

	report, err := eng.Run(context.Background(), subs, engine.Operation{
		Name:          "audit_all",
		UpstreamClass: "arm",
		Cacheable:     true,
		Do: func(ctx context.Context, sub string) (interface{}, error) {
			return auditor.Everything(ctx, sub, audit.Options{})
		},
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if !report.AllSucceeded() {
		t.Fatalf("run had failures: %v", report.Errors)
	}
	if report.Summary.Total != 2 {
		t.Fatalf("got %d outcomes, want 2", report.Summary.Total)
	}

	// Each subscription wastes 39.02/month
	if report.Summary.MergedTotal != 78.04 {
		t.Errorf("MergedTotal = %v, want 78.04", report.Summary.MergedTotal)
	}

	for _, o := range report.Outcomes {
		full, ok := o.Value.(*audit.FullReport)
		if !ok {
			t.Fatalf("outcome value is %T, want *audit.FullReport", o.Value)
		}
		if len(full.VMs.StoppedVMs) != 1 {
			t.Errorf("%s: got %d stopped VMs, want 1", o.SubscriptionID, len(full.VMs.StoppedVMs))
		}
		if len(full.Disks.Unattached) != 1 {
			t.Errorf("%s: got %d unattached disks, want 1", o.SubscriptionID, len(full.Disks.Unattached))
		}
		if len(full.IPs.Orphaned) != 1 {
			t.Errorf("%s: got %d orphaned IPs, want 1", o.SubscriptionID, len(full.IPs.Orphaned))
		}
		if full.MonthlyWaste != 39.02 {
			t.Errorf("%s: MonthlyWaste = %v, want 39.02", o.SubscriptionID, full.MonthlyWaste)
		}
	}

	// Render the report through each formatter
	var buf strings.Builder
	f := output.NewFormatter(output.FormatTable, output.WithNoColor(true))
	if err := f.FormatReport(&buf, report); err != nil {
		t.Fatalf("table render: %v", err)
	}
	rendered := buf.String()
	if !strings.Contains(rendered, "2 succeeded, 0 failed") {
		t.Errorf("table output missing summary line:\n%s", rendered)
	}
	if !strings.Contains(rendered, "$78.04") {
		t.Errorf("table output missing fleet total:\n%s", rendered)
	}

	buf.Reset()
	jf := output.NewFormatter(output.FormatJSON)
	if err := jf.FormatReport(&buf, report); err != nil {
		t.Fatalf("json render: %v", err)
	}
	if !strings.Contains(buf.String(), `"monthlyWasteTotal": 78.04`) {
		t.Errorf("json output missing merged total:\n%s", buf.String())
	}
}

// TestPartialFailureWorkflow verifies one broken subscription degrades the
// run instead of failing it, end to end.
func TestPartialFailureWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	logger := testLogger()

	fake := azure.NewFake()
	seedSubscription(fake, "sub-good")
	fake.Errs["sub-bad"] = util.Permanent(util.WrapErrorf(util.ErrAuthFailed, "listing resources"))

	auditor := audit.New(fake, logger)

	ec := engine.DefaultConfig()
	ec.RateLimit.Enabled = false
	eng, err := engine.New(ec, logger)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}

	report, err := eng.Run(context.Background(), []string{"sub-good", "sub-bad"}, engine.Operation{
		Name:          "audit_vms",
		UpstreamClass: "compute",
		Do: func(ctx context.Context, sub string) (interface{}, error) {
			return auditor.StoppedVMs(ctx, sub, audit.Options{})
		},
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if report.Summary.Succeeded != 1 || report.Summary.Failed != 1 {
		t.Fatalf("got %d/%d succeeded/failed, want 1/1",
			report.Summary.Succeeded, report.Summary.Failed)
	}

	bad, ok := report.Outcome("sub-bad")
	if !ok {
		t.Fatal("missing outcome for sub-bad")
	}
	if bad.Kind != engine.ErrorKindPermanent {
		t.Errorf("Kind = %q, want permanent", bad.Kind)
	}
	if _, ok := report.Errors["sub-bad"]; !ok {
		t.Error("Errors map missing sub-bad")
	}

	// Only the VM list call should have hit the broken subscription, with no
	// retries for a permanent failure
	if calls := fake.Calls("sub-bad"); calls != 1 {
		t.Errorf("sub-bad received %d calls, want 1", calls)
	}

	// The failure must not contaminate the merged total
	if report.Summary.MergedTotal != 30.37 {
		t.Errorf("MergedTotal = %v, want 30.37", report.Summary.MergedTotal)
	}
}

// TestCachedWorkflow verifies a second identical run is served from cache
// without touching the upstream again.
func TestCachedWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	logger := testLogger()

	fake := azure.NewFake()
	seedSubscription(fake, "sub-a")
	auditor := audit.New(fake, logger)

	ec := engine.DefaultConfig()
	ec.RateLimit.Enabled = false
	eng, err := engine.New(ec, logger)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}

	op := engine.Operation{
		Name:          "audit_ips",
		UpstreamClass: "network",
		Cacheable:     true,
		Do: func(ctx context.Context, sub string) (interface{}, error) {
			return auditor.OrphanedIPs(ctx, sub, audit.Options{})
		},
	}

	for i := 0; i < 3; i++ {
		report, err := eng.Run(context.Background(), []string{"sub-a"}, op)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if !report.AllSucceeded() {
			t.Fatalf("run %d had failures: %v", i, report.Errors)
		}
	}

	if calls := fake.Calls("sub-a"); calls != 1 {
		t.Errorf("upstream received %d calls across 3 runs, want 1", calls)
	}
}

// TestSlowSubscriptionTimesOutAlone verifies the run deadline converts a
// stuck subscription into a timeout outcome while fast ones still succeed.
func TestSlowSubscriptionTimesOutAlone(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	logger := testLogger()

	fast := azure.NewFake()
	seedSubscription(fast, "sub-fast")

	slow := azure.NewFake()
	seedSubscription(slow, "sub-slow")
	slow.Latency = 5 * time.Second

	auditors := map[string]*audit.Auditor{
		"sub-fast": audit.New(fast, logger),
		"sub-slow": audit.New(slow, logger),
	}

	ec := engine.DefaultConfig()
	ec.OverallTimeout = 300 * time.Millisecond
	ec.RateLimit.Enabled = false
	eng, err := engine.New(ec, logger)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}

	report, err := eng.Run(context.Background(), []string{"sub-fast", "sub-slow"}, engine.Operation{
		Name:          "audit_disks",
		UpstreamClass: "compute",
		Do: func(ctx context.Context, sub string) (interface{}, error) {
			return auditors[sub].UnattachedDisks(ctx, sub, audit.Options{})
		},
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	fastOut, _ := report.Outcome("sub-fast")
	if !fastOut.Succeeded() {
		t.Errorf("sub-fast failed: %v", fastOut.Err)
	}

	slowOut, _ := report.Outcome("sub-slow")
	if slowOut.Succeeded() {
		t.Fatal("sub-slow should have timed out")
	}
	if slowOut.Kind != engine.ErrorKindTimeout {
		t.Errorf("Kind = %q, want timeout", slowOut.Kind)
	}
}
