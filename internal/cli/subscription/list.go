package subscription

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/aryankumar/costfleet/internal/azure"
	"github.com/aryankumar/costfleet/internal/config"
)

// newListCmd creates the subscription list command
func newListCmd() *cobra.Command {
	var (
		showLabels   bool
		remote       bool
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured subscriptions",
		Long: `List the subscriptions from the costfleet config file, showing the
default marker, aliases, labels, and whether each is enabled for audits.

With --remote, the list comes from the ARM API instead: every subscription
the supplied credential can see.`,
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if remote {
				return runListRemote(cmd, outputFormat)
			}
			return runList(cmd, showLabels, outputFormat)
		},
	}

	cmd.Flags().BoolVar(&showLabels, "show-labels", false, "show subscription labels from costfleet config")
	cmd.Flags().BoolVar(&remote, "remote", false, "list subscriptions visible to the credential via ARM")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "", "output format (table, json, yaml)")

	return cmd
}

func runList(cmd *cobra.Command, showLabels bool, outputFormat string) error {
	logger := slog.Default()

	configManager := config.NewManager(viper.GetString("config"))
	cfg, err := configManager.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	infos := cfg.ListSubscriptions()
	logger.Debug("loaded costfleet config", "subscriptions", len(infos))

	if len(infos) == 0 {
		fmt.Fprintf(os.Stderr, "No subscriptions configured\n")
		return nil
	}

	// Default first, then stable name order
	sort.SliceStable(infos, func(i, j int) bool {
		if infos[i].Default != infos[j].Default {
			return infos[i].Default
		}
		return infos[i].Name < infos[j].Name
	})

	switch resolveFormat(outputFormat) {
	case "json":
		return outputJSON(infos)
	case "yaml":
		return outputYAML(infos)
	case "table":
		return outputTable(infos, showLabels, viper.GetBool("no-color"))
	default:
		return fmt.Errorf("unsupported output format: %s (supported: table, json, yaml)", outputFormat)
	}
}

func runListRemote(cmd *cobra.Command, outputFormat string) error {
	logger := slog.Default()

	client, err := azure.NewClient(viper.GetString("endpoint"),
		azure.StaticToken(viper.GetString("token")), nil, logger)
	if err != nil {
		return err
	}

	subs, err := client.ListSubscriptions(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list subscriptions: %w", err)
	}

	sort.Slice(subs, func(i, j int) bool { return subs[i].Name < subs[j].Name })

	switch resolveFormat(outputFormat) {
	case "json":
		return outputJSON(subs)
	case "yaml":
		return outputYAML(subs)
	default:
		return outputRemoteTable(subs, viper.GetBool("no-color"))
	}
}

func resolveFormat(outputFormat string) string {
	if outputFormat == "" {
		outputFormat = viper.GetString("output")
	}
	if outputFormat == "" {
		outputFormat = "table"
	}
	return outputFormat
}

func outputTable(infos []config.SubscriptionInfo, showLabels bool, noColor bool) error {
	table := newTable()

	headers := []string{"Default", "Name", "ID", "Alias", "Enabled"}
	if showLabels {
		headers = append(headers, "Labels")
	}
	table.SetHeader(headers)

	var (
		greenBold = color.New(color.FgGreen, color.Bold)
		cyan      = color.New(color.FgCyan)
		yellow    = color.New(color.FgYellow)
	)
	if noColor {
		color.NoColor = true
	}

	for _, info := range infos {
		row := make([]string, 0, len(headers))

		marker := ""
		if info.Default {
			marker = "*"
		}
		row = append(row, marker)

		name := info.Name
		if info.Default && !noColor {
			name = greenBold.Sprint(name)
		}
		row = append(row, name)
		row = append(row, info.ID)

		alias := ""
		if info.Alias != info.Name {
			alias = info.Alias
			if !noColor {
				alias = cyan.Sprint(alias)
			}
		}
		row = append(row, alias)

		enabled := "no"
		if info.Enabled {
			enabled = "yes"
		}
		row = append(row, enabled)

		if showLabels {
			labelStr := formatLabels(info.Labels)
			if !noColor && labelStr != "" {
				labelStr = yellow.Sprint(labelStr)
			}
			row = append(row, labelStr)
		}

		table.Append(row)
	}

	table.Render()
	fmt.Fprintf(os.Stdout, "\nTotal subscriptions: %d\n", len(infos))

	return nil
}

func outputRemoteTable(subs []azure.Subscription, noColor bool) error {
	table := newTable()
	table.SetHeader([]string{"Name", "ID", "State"})

	green := color.New(color.FgGreen)
	if noColor {
		color.NoColor = true
	}

	for _, sub := range subs {
		state := sub.State
		if state == "Enabled" && !noColor {
			state = green.Sprint(state)
		}
		table.Append([]string{sub.Name, sub.ID, state})
	}

	table.Render()
	fmt.Fprintf(os.Stdout, "\nTotal subscriptions: %d\n", len(subs))

	return nil
}

func newTable() *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	return table
}

func outputJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func outputYAML(v interface{}) error {
	encoder := yaml.NewEncoder(os.Stdout)
	defer encoder.Close()
	return encoder.Encode(v)
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}

	pairs := make([]string, 0, len(labels))
	for k, v := range labels {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}
