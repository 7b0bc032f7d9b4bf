// Package audit implements the costfleet audit command family. Each
// subcommand fans one waste audit out across the selected subscriptions and
// renders the merged report.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aryankumar/costfleet/internal/audit"
	"github.com/aryankumar/costfleet/internal/azure"
	"github.com/aryankumar/costfleet/internal/config"
	"github.com/aryankumar/costfleet/internal/engine"
	"github.com/aryankumar/costfleet/internal/output"
	"github.com/aryankumar/costfleet/internal/ratelimit"
)

// NewAuditCmd creates the audit parent command
func NewAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit subscriptions for wasted spend",
		Long: `Audit Azure subscriptions for resources that cost money without doing
anything: stopped VMs, unattached managed disks, and orphaned public IPs.

Subscriptions are audited in parallel; a failing subscription is reported
in the summary without blocking the others.`,
		Example: `  # Audit everything across all enabled subscriptions
  costfleet audit all

  # Find stopped VMs in two specific subscriptions
  costfleet audit vms --subscriptions prod,staging

  # Unattached disks, counting Kubernetes PVC disks too
  costfleet audit disks --include-pvc

  # Orphaned public IPs in one region, as JSON
  costfleet audit ips --regions eastus -o json`,
	}

	cmd.AddCommand(newAuditVMsCmd())
	cmd.AddCommand(newAuditDisksCmd())
	cmd.AddCommand(newAuditIPsCmd())
	cmd.AddCommand(newAuditAllCmd())

	return cmd
}

// run wires config, client, engine, and auditor together and executes one
// audit operation across the selected subscriptions.
func run(ctx context.Context, name, upstreamClass string, opts audit.Options,
	do func(a *audit.Auditor, ctx context.Context, sub string, opts audit.Options) (interface{}, error)) error {

	logger := slog.Default()

	mgr := config.NewManager(viper.GetString("config"))
	cfg, err := mgr.Load()
	if err != nil {
		return err
	}

	subs, err := cfg.ResolveSubscriptions(viper.GetStringSlice("subscriptions"))
	if err != nil {
		return err
	}

	if len(opts.Regions) == 0 {
		opts.Regions = cfg.Defaults.Regions
	}

	client, err := buildClient(cfg, logger)
	if err != nil {
		return err
	}
	auditor := audit.New(client, logger)

	eng, err := engine.New(engineConfig(cfg), logger)
	if err != nil {
		return err
	}

	report, err := eng.Run(ctx, subs, engine.Operation{
		Name:          name,
		UpstreamClass: upstreamClass,
		Cacheable:     true,
		Args:          cacheArgs(opts),
		Do: func(ctx context.Context, sub string) (interface{}, error) {
			return do(auditor, ctx, sub, opts)
		},
	})
	if err != nil {
		return err
	}

	return render(report)
}

// buildClient creates the ARM client from flags and config
func buildClient(cfg *config.CostfleetConfig, logger *slog.Logger) (*azure.Client, error) {
	endpoint := viper.GetString("endpoint")
	if endpoint == "" {
		endpoint = cfg.Azure.Endpoint
	}
	return azure.NewClient(endpoint, azure.StaticToken(viper.GetString("token")), nil, logger)
}

// engineConfig maps flags and config defaults onto the engine configuration
func engineConfig(cfg *config.CostfleetConfig) engine.Config {
	ec := engine.DefaultConfig()
	ec.MaxWorkers = viper.GetInt("parallel")
	ec.OverallTimeout = viper.GetDuration("timeout")
	ec.CacheEnabled = !viper.GetBool("no-cache") && !cfg.Defaults.NoCache
	ec.CacheTTL = viper.GetDuration("cache-ttl")
	if cfg.Defaults.Retries > 0 {
		ec.Retry.MaxAttempts = cfg.Defaults.Retries
	}
	if cfg.Azure.RequestsPerSecond > 0 {
		ec.RateLimit = ratelimit.Config{
			Enabled:           true,
			RequestsPerSecond: cfg.Azure.RequestsPerSecond,
			Burst:             int(cfg.Azure.RequestsPerSecond * 2),
		}
	}
	return ec
}

// cacheArgs folds audit options into the cache key so different filters
// never share an entry.
func cacheArgs(opts audit.Options) map[string]string {
	args := map[string]string{}
	if len(opts.Regions) > 0 {
		args["regions"] = strings.Join(opts.Regions, ",")
	}
	if opts.IncludePVC {
		args["include_pvc"] = "true"
	}
	if opts.IncludeAKSManaged {
		args["include_aks"] = "true"
	}
	return args
}

// render writes the merged report in the requested format
func render(report *engine.AggregateResult) error {
	var format output.Format
	switch viper.GetString("output") {
	case "json":
		format = output.FormatJSON
	case "yaml":
		format = output.FormatYAML
	default:
		format = output.FormatTable
	}

	formatter := output.NewFormatter(format,
		output.WithNoColor(viper.GetBool("no-color")),
		output.WithWide(viper.GetBool("verbose")))

	if err := formatter.FormatReport(os.Stdout, report); err != nil {
		return err
	}

	if report.Summary.Succeeded == 0 {
		return fmt.Errorf("every subscription failed")
	}
	return nil
}

// regionsFromFlags reads the persistent regions selection
func regionsFromFlags() []string {
	return viper.GetStringSlice("regions")
}
