package subscription

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aryankumar/costfleet/internal/config"
)

// newRemoveCmd creates the subscription remove command
func newRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove NAME",
		Short:   "Remove a subscription from the costfleet config",
		Aliases: []string{"rm", "delete"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(args[0])
		},
	}

	return cmd
}

func runRemove(name string) error {
	logger := slog.Default()

	mgr := config.NewManager(viper.GetString("config"))
	cfg, err := mgr.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if _, ok := cfg.Subscriptions[name]; !ok {
		return fmt.Errorf("subscription %q not found in config", name)
	}

	mgr.RemoveSubscriptionConfig(name)

	if err := mgr.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	logger.Debug("removed subscription", "name", name)
	fmt.Printf("Removed subscription %q\n", name)

	return nil
}
