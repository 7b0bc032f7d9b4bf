// Package cost implements the costfleet cost command family
package cost

import (
	"github.com/spf13/cobra"
)

// NewCostCmd creates the cost parent command
func NewCostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cost",
		Short: "Summarize estimated waste across subscriptions",
		Long: `Roll the waste audits up into per-subscription cost summaries.

Where the audit commands show individual findings, cost commands show the
money: estimated monthly and annual waste per subscription and fleet-wide.`,
		Example: `  # Waste summary across all enabled subscriptions
  costfleet cost summary

  # Summary for two subscriptions as YAML
  costfleet cost summary --subscriptions prod,dev -o yaml

  # What was actually billed over the last 30 days
  costfleet cost actual --period 30`,
	}

	cmd.AddCommand(newCostSummaryCmd())
	cmd.AddCommand(newCostActualCmd())

	return cmd
}
