package output

import (
	"encoding/json"
	"io"

	"github.com/aryankumar/costfleet/internal/engine"
)

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	options *Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(opts *Options) *JSONFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &JSONFormatter{
		options: opts,
	}
}

// Format outputs a single data item as JSON
func (f *JSONFormatter) Format(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// FormatReport outputs a merged audit report as JSON
func (f *JSONFormatter) FormatReport(w io.Writer, report *engine.AggregateResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(reportDocument(report))
}

// reportDocument flattens the report into a serialization-friendly shape
// shared by the JSON and YAML formatters.
func reportDocument(report *engine.AggregateResult) map[string]interface{} {
	outcomes := make([]map[string]interface{}, len(report.Outcomes))
	for i, o := range report.Outcomes {
		item := map[string]interface{}{
			"subscription": o.SubscriptionID,
			"duration":     o.Duration.String(),
		}
		if o.Succeeded() {
			item["status"] = "success"
			item["data"] = o.Value
		} else {
			item["status"] = "failed"
			item["errorKind"] = string(o.Kind)
			item["error"] = o.Message
		}
		outcomes[i] = item
	}

	doc := map[string]interface{}{
		"outcomes": outcomes,
		"summary": map[string]interface{}{
			"total":             report.Summary.Total,
			"succeeded":         report.Summary.Succeeded,
			"failed":            report.Summary.Failed,
			"monthlyWasteTotal": report.Summary.MergedTotal,
		},
		"duration": report.Duration.String(),
	}
	if len(report.Errors) > 0 {
		doc["errors"] = report.Errors
	}
	return doc
}
