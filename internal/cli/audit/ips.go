package audit

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aryankumar/costfleet/internal/audit"
)

func newAuditIPsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ips",
		Short: "Find orphaned public IP addresses",
		Long: `Find public IP addresses attached to no network interface or load
balancer. A static orphaned IP bills every hour it sits idle.`,
		Example: `  # Orphaned IPs across all enabled subscriptions
  costfleet audit ips

  # One region, machine-readable
  costfleet audit ips --regions westeurope -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := audit.Options{Regions: regionsFromFlags()}
			return run(cmd.Context(), "audit_ips", "network", opts,
				func(a *audit.Auditor, ctx context.Context, sub string, opts audit.Options) (interface{}, error) {
					return a.OrphanedIPs(ctx, sub, opts)
				})
		},
	}

	return cmd
}
