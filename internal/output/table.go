package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/aryankumar/costfleet/internal/engine"
	"github.com/aryankumar/costfleet/internal/util"
)

// TableFormatter formats output as a compact, kubectl-style table
type TableFormatter struct {
	options *Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(opts *Options) *TableFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &TableFormatter{
		options: opts,
	}
}

// Format outputs a single data item as a table
func (f *TableFormatter) Format(w io.Writer, data interface{}) error {
	table := f.createTable(w)

	switch v := data.(type) {
	case map[string]interface{}:
		return f.formatMap(table, v)
	case []map[string]interface{}:
		return f.formatMapSlice(table, v)
	case string:
		fmt.Fprintln(w, v)
		return nil
	default:
		fmt.Fprintln(w, v)
		return nil
	}
}

// FormatReport outputs a merged audit report as a table with one row per
// subscription and a summary line.
func (f *TableFormatter) FormatReport(w io.Writer, report *engine.AggregateResult) error {
	if report == nil || len(report.Outcomes) == 0 {
		fmt.Fprintln(w, "No results")
		return nil
	}

	colors := NewColorScheme(w, f.options.NoColor)
	table := f.createTable(w)

	headers := []string{"SUBSCRIPTION", "STATUS", "MONTHLY WASTE", "DURATION"}
	if f.options.Wide {
		headers = append(headers, "DETAIL")
	}

	if !f.options.NoHeaders {
		if colors.Disabled {
			table.SetHeader(headers)
		} else {
			coloredHeaders := make([]string, len(headers))
			for i, h := range headers {
				coloredHeaders[i] = colors.Header(h)
			}
			table.SetHeader(coloredHeaders)
		}
	}

	for _, outcome := range report.Outcomes {
		table.Append(f.formatOutcomeRow(outcome, colors))
	}

	table.Render()
	f.printSummary(w, report, colors)

	return nil
}

// formatOutcomeRow formats a single outcome as a table row
func (f *TableFormatter) formatOutcomeRow(o engine.Outcome, colors *ColorScheme) []string {
	sub := util.ShortSubscriptionID(o.SubscriptionID)
	if !colors.Disabled {
		sub = colors.Subscription(sub)
	}

	status := "OK"
	if !o.Succeeded() {
		status = strings.ToUpper(string(o.Kind))
	}
	if !colors.Disabled {
		status = colors.StatusColor(!o.Succeeded())(status)
	}

	waste := "-"
	if t, ok := o.Value.(engine.Totaler); ok {
		waste = Money(t.Total())
		if !colors.Disabled {
			waste = colors.Money(waste)
		}
	}

	duration := o.Duration.String()
	if !colors.Disabled {
		duration = colors.Duration(duration)
	}

	row := []string{sub, status, waste, duration}

	if f.options.Wide {
		detail := ""
		if !o.Succeeded() {
			detail = util.FriendlyError(o.Err)
		} else if o.Value != nil {
			detail = fmt.Sprintf("%v", o.Value)
			if len(detail) > 50 {
				detail = detail[:47] + "..."
			}
		}
		row = append(row, detail)
	}

	return row
}

// formatMap formats a map as a two-column table (key-value pairs)
func (f *TableFormatter) formatMap(table *tablewriter.Table, data map[string]interface{}) error {
	if !f.options.NoHeaders {
		table.SetHeader([]string{"KEY", "VALUE"})
	}

	for k, v := range data {
		table.Append([]string{k, fmt.Sprintf("%v", v)})
	}

	table.Render()
	return nil
}

// formatMapSlice formats a slice of maps as a table
func (f *TableFormatter) formatMapSlice(table *tablewriter.Table, data []map[string]interface{}) error {
	if len(data) == 0 {
		return nil
	}

	var headers []string
	for k := range data[0] {
		headers = append(headers, strings.ToUpper(k))
	}

	if !f.options.NoHeaders {
		table.SetHeader(headers)
	}

	for _, item := range data {
		var row []string
		for _, h := range headers {
			key := strings.ToLower(h)
			row = append(row, fmt.Sprintf("%v", item[key]))
		}
		table.Append(row)
	}

	table.Render()
	return nil
}

// createTable creates a new table with kubectl-style configuration
func (f *TableFormatter) createTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)

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

// printSummary prints a summary of the report
func (f *TableFormatter) printSummary(w io.Writer, report *engine.AggregateResult, colors *ColorScheme) {
	s := report.Summary

	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Summary: ")

	successText := fmt.Sprintf("%d succeeded", s.Succeeded)
	if !colors.Disabled {
		successText = colors.Success(successText)
	}

	failedText := fmt.Sprintf("%d failed", s.Failed)
	if !colors.Disabled && s.Failed > 0 {
		failedText = colors.Error(failedText)
	}

	wasteText := fmt.Sprintf("%s/month wasted", Money(s.MergedTotal))
	if !colors.Disabled {
		wasteText = colors.Money(wasteText)
	}

	fmt.Fprintf(w, "%s, %s, %s (in %s)\n", successText, failedText, wasteText, report.Duration.Round(1000))
}

// Money renders a USD amount with thousands separators and two decimals
func Money(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}
