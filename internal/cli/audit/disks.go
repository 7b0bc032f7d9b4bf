package audit

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aryankumar/costfleet/internal/audit"
)

func newAuditDisksCmd() *cobra.Command {
	var includePVC bool
	var includeAKS bool

	cmd := &cobra.Command{
		Use:   "disks",
		Short: "Find unattached managed disks",
		Long: `Find managed disks that no VM owns.

Kubernetes PVC disks (name pvc-*) and disks in AKS-managed resource groups
(MC_*) are listed but excluded from the waste totals unless opted in, since
those are usually released on purpose.`,
		Example: `  # Orphaned disks across all enabled subscriptions
  costfleet audit disks

  # Count PVC and AKS-managed disks as waste too
  costfleet audit disks --include-pvc --include-aks-managed`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := audit.Options{
				Regions:           regionsFromFlags(),
				IncludePVC:        includePVC,
				IncludeAKSManaged: includeAKS,
			}
			return run(cmd.Context(), "audit_disks", "compute", opts,
				func(a *audit.Auditor, ctx context.Context, sub string, opts audit.Options) (interface{}, error) {
					return a.UnattachedDisks(ctx, sub, opts)
				})
		},
	}

	cmd.Flags().BoolVar(&includePVC, "include-pvc", false, "count Kubernetes PVC disks as waste")
	cmd.Flags().BoolVar(&includeAKS, "include-aks-managed", false, "count AKS-managed disks as waste")

	return cmd
}
