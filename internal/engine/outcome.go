package engine

import (
	"time"

	"github.com/aryankumar/costfleet/internal/util"
)

// ErrorKind classifies a failed outcome for reporting
type ErrorKind string

const (
	// ErrorKindTransient means retries were exhausted on a retryable error
	ErrorKindTransient ErrorKind = "transient"
	// ErrorKindPermanent means the upstream rejected the call outright
	ErrorKindPermanent ErrorKind = "permanent"
	// ErrorKindCircuitOpen means the breaker short-circuited the call
	ErrorKindCircuitOpen ErrorKind = "circuit_open"
	// ErrorKindTimeout means the overall run deadline expired first
	ErrorKindTimeout ErrorKind = "timeout"
	// ErrorKindUnknown means the error carried no classification
	ErrorKindUnknown ErrorKind = "unknown"
)

// classifyError maps an error onto the reporting taxonomy. Order matters:
// breaker and run-deadline sentinels take precedence over the transient
// marker they may be wrapped in.
func classifyError(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case util.IsCircuitOpen(err):
		return ErrorKindCircuitOpen
	case util.IsRunTimeout(err):
		return ErrorKindTimeout
	case util.IsPermanent(err):
		return ErrorKindPermanent
	case util.IsTransient(err):
		return ErrorKindTransient
	default:
		return ErrorKindUnknown
	}
}

// Outcome is the final per-subscription result: either a value or a
// classified failure. Exactly one Outcome exists per submitted subscription.
type Outcome struct {
	SubscriptionID string        `json:"subscription" yaml:"subscription"`
	Value          interface{}   `json:"value,omitempty" yaml:"value,omitempty"`
	Kind           ErrorKind     `json:"errorKind,omitempty" yaml:"errorKind,omitempty"`
	Message        string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration       time.Duration `json:"duration" yaml:"duration"`

	// Err keeps the full error chain for programmatic use; the serialized
	// form carries Kind and Message instead.
	Err error `json:"-" yaml:"-"`
}

// Succeeded reports whether this outcome carries a value
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// Totaler is implemented by result values that contribute to the merged
// numeric summary (for example, estimated monthly waste in USD).
type Totaler interface {
	Total() float64
}

// Summary is the derived roll-up over all outcomes of a run
type Summary struct {
	Total       int     `json:"total" yaml:"total"`
	Succeeded   int     `json:"succeeded" yaml:"succeeded"`
	Failed      int     `json:"failed" yaml:"failed"`
	MergedTotal float64 `json:"mergedTotal" yaml:"mergedTotal"`
}

// AggregateResult is the merged report of one run: outcomes in input
// partition order, the derived summary, and an error map keyed by
// subscription. It is an immutable snapshot owned by the caller; a strict
// subset of failures never makes the run itself fail.
type AggregateResult struct {
	Outcomes []Outcome         `json:"outcomes" yaml:"outcomes"`
	Summary  Summary           `json:"summary" yaml:"summary"`
	Errors   map[string]string `json:"errors,omitempty" yaml:"errors,omitempty"`
	Duration time.Duration     `json:"duration" yaml:"duration"`
}

// aggregate folds raw task results (already in input order) into the final
// report. The merged total sums only successful values that implement
// Totaler; failures are excluded from the total but counted and surfaced in
// the error map.
func aggregate(results []TaskResult, duration time.Duration) *AggregateResult {
	outcomes := make([]Outcome, len(results))
	errs := make(map[string]string)
	summary := Summary{Total: len(results)}

	for i, r := range results {
		o := Outcome{
			SubscriptionID: r.SubscriptionID,
			Duration:       r.Duration,
		}

		if r.Err != nil {
			o.Err = r.Err
			o.Kind = classifyError(r.Err)
			o.Message = r.Err.Error()
			errs[r.SubscriptionID] = o.Message
			summary.Failed++
		} else {
			o.Value = r.Value
			summary.Succeeded++
			if t, ok := r.Value.(Totaler); ok {
				summary.MergedTotal += t.Total()
			}
		}

		outcomes[i] = o
	}

	agg := &AggregateResult{
		Outcomes: outcomes,
		Summary:  summary,
		Duration: duration,
	}
	if len(errs) > 0 {
		agg.Errors = errs
	}
	return agg
}

// Successes returns the successful outcomes in report order
func (a *AggregateResult) Successes() []Outcome {
	out := make([]Outcome, 0, a.Summary.Succeeded)
	for _, o := range a.Outcomes {
		if o.Succeeded() {
			out = append(out, o)
		}
	}
	return out
}

// Failures returns the failed outcomes in report order
func (a *AggregateResult) Failures() []Outcome {
	out := make([]Outcome, 0, a.Summary.Failed)
	for _, o := range a.Outcomes {
		if !o.Succeeded() {
			out = append(out, o)
		}
	}
	return out
}

// Outcome returns the outcome for one subscription, if present
func (a *AggregateResult) Outcome(subscriptionID string) (Outcome, bool) {
	for _, o := range a.Outcomes {
		if o.SubscriptionID == subscriptionID {
			return o, true
		}
	}
	return Outcome{}, false
}

// AllSucceeded reports whether no outcome failed
func (a *AggregateResult) AllSucceeded() bool {
	return a.Summary.Failed == 0
}
