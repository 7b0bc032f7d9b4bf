// Package subscription implements the costfleet subscription command family
package subscription

import (
	"github.com/spf13/cobra"
)

// NewSubscriptionCmd creates the subscription management command
func NewSubscriptionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subscription",
		Aliases: []string{"subscriptions", "sub"},
		Short:   "Manage audited subscriptions",
		Long: `Manage the subscriptions costfleet audits.

Subscriptions live in the costfleet config file with an optional alias,
labels, and an enabled flag. Audit commands target the enabled set unless
told otherwise.`,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newRemoveCmd())

	return cmd
}
