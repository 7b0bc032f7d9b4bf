package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	auditcmd "github.com/aryankumar/costfleet/internal/cli/audit"
	"github.com/aryankumar/costfleet/internal/cli/cost"
	"github.com/aryankumar/costfleet/internal/cli/subscription"
)

var (
	cfgFile string
)

// Execute runs the root command with the provided context
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

// newRootCmd creates the root command
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "costfleet",
		Short: "Costfleet - Azure cost and waste auditing across subscriptions",
		Long: `Costfleet audits many Azure subscriptions in parallel and reports the
resources quietly burning money: stopped VMs that still bill, managed
disks nothing owns, and public IPs attached to nothing.

One slow or broken subscription never blocks the rest; its failure is
reported alongside the merged results.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.costfleet.yaml)")
	rootCmd.PersistentFlags().StringSlice("subscriptions", []string{}, "target subscriptions by GUID, name, or alias (empty means all enabled)")
	rootCmd.PersistentFlags().StringSlice("regions", []string{}, "restrict audits to these Azure regions")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output format (json, yaml, table)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output with debug logging")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "timeout for one whole audit run")
	rootCmd.PersistentFlags().IntP("parallel", "p", 5, "number of subscriptions audited concurrently")
	rootCmd.PersistentFlags().Bool("no-cache", false, "bypass the result cache")
	rootCmd.PersistentFlags().Duration("cache-ttl", 300*time.Second, "lifetime of cached audit results")
	rootCmd.PersistentFlags().String("token", "", "ARM access token (or set COSTFLEET_TOKEN)")
	rootCmd.PersistentFlags().String("endpoint", "", "ARM endpoint override, for sovereign clouds")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("subscriptions", rootCmd.PersistentFlags().Lookup("subscriptions"))
	viper.BindPFlag("regions", rootCmd.PersistentFlags().Lookup("regions"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("no-color", rootCmd.PersistentFlags().Lookup("no-color"))
	viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("parallel", rootCmd.PersistentFlags().Lookup("parallel"))
	viper.BindPFlag("no-cache", rootCmd.PersistentFlags().Lookup("no-cache"))
	viper.BindPFlag("cache-ttl", rootCmd.PersistentFlags().Lookup("cache-ttl"))
	viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
	viper.BindPFlag("endpoint", rootCmd.PersistentFlags().Lookup("endpoint"))

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())
	rootCmd.AddCommand(auditcmd.NewAuditCmd())
	rootCmd.AddCommand(cost.NewCostCmd())
	rootCmd.AddCommand(subscription.NewSubscriptionCmd())

	return rootCmd
}

// initConfig initializes configuration and logging
func initConfig(cmd *cobra.Command) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".costfleet")
	}

	viper.SetEnvPrefix("COSTFLEET")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	setupLogging(cmd)

	return nil
}

// setupLogging configures structured logging with slog
func setupLogging(cmd *cobra.Command) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	noColor, _ := cmd.Flags().GetBool("no-color")

	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	if noColor {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	if verbose {
		slog.Debug("verbose logging enabled")
		if viper.ConfigFileUsed() != "" {
			slog.Debug("loaded configuration", "file", viper.ConfigFileUsed())
		}
	}
}
