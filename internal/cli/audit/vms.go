package audit

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aryankumar/costfleet/internal/audit"
)

func newAuditVMsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vms",
		Short: "Find stopped VMs that still accrue charges",
		Long: `Find virtual machines that are stopped or deallocated.

A stopped (not deallocated) VM keeps billing for its compute allocation;
a deallocated one still bills for its disks and reserved IPs. Each finding
carries a rough monthly cost estimate based on the VM size.`,
		Example: `  # Stopped VMs across all enabled subscriptions
  costfleet audit vms

  # Only production, only East US
  costfleet audit vms --subscriptions prod --regions eastus`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := audit.Options{Regions: regionsFromFlags()}
			return run(cmd.Context(), "audit_vms", "compute", opts,
				func(a *audit.Auditor, ctx context.Context, sub string, opts audit.Options) (interface{}, error) {
					return a.StoppedVMs(ctx, sub, opts)
				})
		},
	}

	return cmd
}
