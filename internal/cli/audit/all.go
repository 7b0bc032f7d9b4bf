package audit

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aryankumar/costfleet/internal/audit"
)

func newAuditAllCmd() *cobra.Command {
	var includePVC bool
	var includeAKS bool

	cmd := &cobra.Command{
		Use:   "all",
		Short: "Run every audit against each subscription",
		Long: `Run the stopped-VM, unattached-disk, and orphaned-IP audits against
each selected subscription and merge the waste into one total.`,
		Example: `  # The full picture
  costfleet audit all

  # Full audit of production with a longer deadline
  costfleet audit all --subscriptions prod --timeout 2m`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := audit.Options{
				Regions:           regionsFromFlags(),
				IncludePVC:        includePVC,
				IncludeAKSManaged: includeAKS,
			}
			return run(cmd.Context(), "audit_all", "arm", opts,
				func(a *audit.Auditor, ctx context.Context, sub string, opts audit.Options) (interface{}, error) {
					return a.Everything(ctx, sub, opts)
				})
		},
	}

	cmd.Flags().BoolVar(&includePVC, "include-pvc", false, "count Kubernetes PVC disks as waste")
	cmd.Flags().BoolVar(&includeAKS, "include-aks-managed", false, "count AKS-managed disks as waste")

	return cmd
}
