package subscription

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aryankumar/costfleet/internal/config"
)

// newAddCmd creates the subscription add command
func newAddCmd() *cobra.Command {
	var (
		id       string
		alias    string
		labels   map[string]string
		disabled bool
	)

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a subscription to the costfleet config",
		Long: `Add a subscription to the costfleet config file so audit commands can
target it by name or alias.`,
		Example: `  # Add a production subscription
  costfleet subscription add prod --id 11111111-1111-1111-1111-111111111111

  # Add with an alias and labels
  costfleet subscription add sandbox --id 22222222-2222-2222-2222-222222222222 \
    --alias sbx --labels env=sandbox,team=platform`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(args[0], id, alias, labels, !disabled)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "subscription ID (GUID, required)")
	cmd.Flags().StringVar(&alias, "alias", "", "short alias for the subscription")
	cmd.Flags().StringToStringVar(&labels, "labels", nil, "labels as key=value pairs")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "add the subscription but leave it out of audits")
	cmd.MarkFlagRequired("id")

	return cmd
}

func runAdd(name, id, alias string, labels map[string]string, enabled bool) error {
	logger := slog.Default()

	if !config.IsSubscriptionID(id) {
		return fmt.Errorf("invalid subscription ID %q: expected a GUID", id)
	}

	mgr := config.NewManager(viper.GetString("config"))
	cfg, err := mgr.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if existing, ok := cfg.Subscriptions[name]; ok && existing.ID != id {
		return fmt.Errorf("subscription %q already configured with ID %s", name, existing.ID)
	}

	mgr.SetSubscriptionConfig(name, config.SubscriptionConfig{
		ID:      id,
		Alias:   alias,
		Labels:  labels,
		Enabled: enabled,
	})

	if err := mgr.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	logger.Debug("added subscription", "name", name, "id", id)
	fmt.Printf("Added subscription %q (%s)\n", name, id)

	return nil
}
