package cost

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aryankumar/costfleet/internal/audit"
	"github.com/aryankumar/costfleet/internal/azure"
	"github.com/aryankumar/costfleet/internal/config"
	"github.com/aryankumar/costfleet/internal/engine"
	"github.com/aryankumar/costfleet/internal/output"
	"github.com/aryankumar/costfleet/internal/util"
)

// SummaryRow is one subscription's waste roll-up for display
type SummaryRow struct {
	Subscription string  `json:"subscription" yaml:"subscription"`
	Status       string  `json:"status" yaml:"status"`
	StoppedVMs   int     `json:"stoppedVMs" yaml:"stoppedVMs"`
	Disks        int     `json:"unattachedDisks" yaml:"unattachedDisks"`
	IPs          int     `json:"orphanedIPs" yaml:"orphanedIPs"`
	Monthly      float64 `json:"monthlyWaste" yaml:"monthlyWaste"`
	Annual       float64 `json:"annualWaste" yaml:"annualWaste"`
	Error        string  `json:"error,omitempty" yaml:"error,omitempty"`
}

func newCostSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Per-subscription waste totals",
		Long: `Run the full audit against each selected subscription and print one
line per subscription: finding counts and estimated monthly and annual
waste, with a fleet-wide total.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCostSummary(cmd.Context())
		},
	}

	return cmd
}

func runCostSummary(ctx context.Context) error {
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

	endpoint := viper.GetString("endpoint")
	if endpoint == "" {
		endpoint = cfg.Azure.Endpoint
	}
	client, err := azure.NewClient(endpoint, azure.StaticToken(viper.GetString("token")), nil, logger)
	if err != nil {
		return err
	}
	auditor := audit.New(client, logger)

	ec := engine.DefaultConfig()
	ec.MaxWorkers = viper.GetInt("parallel")
	ec.OverallTimeout = viper.GetDuration("timeout")
	ec.CacheEnabled = !viper.GetBool("no-cache") && !cfg.Defaults.NoCache
	ec.CacheTTL = viper.GetDuration("cache-ttl")
	if cfg.Defaults.Retries > 0 {
		ec.Retry.MaxAttempts = cfg.Defaults.Retries
	}

	eng, err := engine.New(ec, logger)
	if err != nil {
		return err
	}

	opts := audit.Options{Regions: viper.GetStringSlice("regions")}
	if len(opts.Regions) == 0 {
		opts.Regions = cfg.Defaults.Regions
	}

	report, err := eng.Run(ctx, subs, engine.Operation{
		Name:          "cost_summary",
		UpstreamClass: "arm",
		Cacheable:     true,
		Do: func(ctx context.Context, sub string) (interface{}, error) {
			return auditor.Everything(ctx, sub, opts)
		},
	})
	if err != nil {
		return err
	}

	rows := summaryRows(report)

	switch viper.GetString("output") {
	case "json":
		return output.NewFormatter(output.FormatJSON).Format(os.Stdout, rows)
	case "yaml":
		return output.NewFormatter(output.FormatYAML).Format(os.Stdout, rows)
	default:
		return printSummaryTable(rows, report, viper.GetBool("no-color"))
	}
}

// summaryRows flattens the report into display rows, one per subscription
func summaryRows(report *engine.AggregateResult) []SummaryRow {
	rows := make([]SummaryRow, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		row := SummaryRow{Subscription: o.SubscriptionID}

		if !o.Succeeded() {
			row.Status = string(o.Kind)
			row.Error = o.Message
			rows = append(rows, row)
			continue
		}

		row.Status = "ok"
		if full, ok := o.Value.(*audit.FullReport); ok {
			row.StoppedVMs = len(full.VMs.StoppedVMs)
			row.Disks = len(full.Disks.Unattached)
			row.IPs = len(full.IPs.Orphaned)
			row.Monthly = full.MonthlyWaste
			row.Annual = full.AnnualWaste
		}
		rows = append(rows, row)
	}
	return rows
}

func printSummaryTable(rows []SummaryRow, report *engine.AggregateResult, noColor bool) error {
	if len(rows) == 0 {
		fmt.Println("No results")
		return nil
	}

	colors := output.NewColorScheme(os.Stdout, noColor)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)

	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		colors.Header("SUBSCRIPTION"),
		colors.Header("STATUS"),
		colors.Header("VMS"),
		colors.Header("DISKS"),
		colors.Header("IPS"),
		colors.Header("MONTHLY"),
		colors.Header("ANNUAL"))

	for _, row := range rows {
		status := row.Status
		if row.Error != "" {
			status = colors.Error(status)
		} else {
			status = colors.Success(status)
		}

		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			colors.Subscription(util.ShortSubscriptionID(row.Subscription)),
			status,
			row.StoppedVMs,
			row.Disks,
			row.IPs,
			colors.Money(output.Money(row.Monthly)),
			colors.Money(output.Money(row.Annual)))
	}

	w.Flush()

	fmt.Fprintf(os.Stdout, "\nFleet total: %s/month (%s/year) across %d subscriptions, %d failed\n",
		output.Money(report.Summary.MergedTotal),
		output.Money(report.Summary.MergedTotal*12),
		report.Summary.Total,
		report.Summary.Failed)

	return nil
}
