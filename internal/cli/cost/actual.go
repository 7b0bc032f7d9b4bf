package cost

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aryankumar/costfleet/internal/azure"
	"github.com/aryankumar/costfleet/internal/config"
	"github.com/aryankumar/costfleet/internal/engine"
	"github.com/aryankumar/costfleet/internal/output"
	"github.com/aryankumar/costfleet/internal/util"
)

// ActualRow is one subscription's billed spend for display
type ActualRow struct {
	Subscription string             `json:"subscription" yaml:"subscription"`
	Status       string             `json:"status" yaml:"status"`
	Currency     string             `json:"currency,omitempty" yaml:"currency,omitempty"`
	Spend        float64            `json:"spend" yaml:"spend"`
	ByService    map[string]float64 `json:"byService,omitempty" yaml:"byService,omitempty"`
	Error        string             `json:"error,omitempty" yaml:"error,omitempty"`
}

func newCostActualCmd() *cobra.Command {
	var period int

	cmd := &cobra.Command{
		Use:   "actual",
		Short: "Billed spend per subscription",
		Long: `Query Cost Management for what each selected subscription actually
spent, grouped by service.

The period is the last N days; zero means month to date.`,
		Example: `  # Month-to-date spend across all enabled subscriptions
  costfleet cost actual

  # Spend over the last 7 days, as JSON
  costfleet cost actual --period 7 -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCostActual(cmd.Context(), period)
		},
	}

	cmd.Flags().IntVar(&period, "period", 0, "period in days (0 means month to date)")

	return cmd
}

func runCostActual(ctx context.Context, period int) error {
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

	from, to := spendPeriod(time.Now(), period)

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

	report, err := eng.Run(ctx, subs, engine.Operation{
		Name:          "cost_actual",
		UpstreamClass: "cost",
		Cacheable:     true,
		Args:          map[string]string{"period": strconv.Itoa(period)},
		Do: func(ctx context.Context, sub string) (interface{}, error) {
			return client.CostSummary(ctx, sub, from, to)
		},
	})
	if err != nil {
		return err
	}

	rows := actualRows(report)

	switch viper.GetString("output") {
	case "json":
		return output.NewFormatter(output.FormatJSON).Format(os.Stdout, rows)
	case "yaml":
		return output.NewFormatter(output.FormatYAML).Format(os.Stdout, rows)
	default:
		return printActualTable(rows, report, from, to, viper.GetBool("no-color"))
	}
}

// spendPeriod resolves the query window: the last N days, or month to date
// when N is zero.
func spendPeriod(now time.Time, days int) (time.Time, time.Time) {
	if days > 0 {
		return now.AddDate(0, 0, -days), now
	}
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), now
}

func actualRows(report *engine.AggregateResult) []ActualRow {
	rows := make([]ActualRow, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		row := ActualRow{Subscription: o.SubscriptionID}

		if !o.Succeeded() {
			row.Status = string(o.Kind)
			row.Error = o.Message
			rows = append(rows, row)
			continue
		}

		row.Status = "ok"
		if spend, ok := o.Value.(*azure.CostSummary); ok {
			row.Currency = spend.Currency
			row.Spend = spend.TotalSpend
			row.ByService = spend.ByService
		}
		rows = append(rows, row)
	}
	return rows
}

func printActualTable(rows []ActualRow, report *engine.AggregateResult, from, to time.Time, noColor bool) error {
	if len(rows) == 0 {
		fmt.Println("No results")
		return nil
	}

	fmt.Fprintf(os.Stdout, "Period: %s to %s\n\n",
		from.Format("2006-01-02"), to.Format("2006-01-02"))

	colors := output.NewColorScheme(os.Stdout, noColor)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)

	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		colors.Header("SUBSCRIPTION"),
		colors.Header("STATUS"),
		colors.Header("SPEND"),
		colors.Header("TOP SERVICE"))

	for _, row := range rows {
		status := row.Status
		if row.Error != "" {
			status = colors.Error(status)
		} else {
			status = colors.Success(status)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			colors.Subscription(util.ShortSubscriptionID(row.Subscription)),
			status,
			colors.Money(output.Money(row.Spend)),
			topService(row.ByService))
	}

	w.Flush()

	fmt.Fprintf(os.Stdout, "\nFleet spend: %s across %d subscriptions, %d failed\n",
		output.Money(report.Summary.MergedTotal),
		report.Summary.Total,
		report.Summary.Failed)

	return nil
}

// topService names the most expensive service in the breakdown
func topService(byService map[string]float64) string {
	if len(byService) == 0 {
		return ""
	}

	names := make([]string, 0, len(byService))
	for name := range byService {
		names = append(names, name)
	}
	// Stable winner when two services tie
	sort.Strings(names)

	best := names[0]
	for _, name := range names[1:] {
		if byService[name] > byService[best] {
			best = name
		}
	}
	return fmt.Sprintf("%s (%s)", best, output.Money(byService[best]))
}
