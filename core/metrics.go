package core

import "context"

// Boundary operations observed by the service. They name both the log event
// and the metric family.
const (
	OperationAuthorize      = "authorize"
	OperationCallback       = "callback"
	OperationGetCredentials = "get_credentials"
	OperationListItems      = "list_items"
)

// Metric tag keys. Every observation carries all three, so label based
// backends can declare one fixed label set.
const (
	TagOperation  = "operation"
	TagStatus     = "status"
	TagProviderID = "provider_id"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// MetricLabels returns the tag keys in declaration order.
func MetricLabels() []string {
	return []string{TagOperation, TagStatus, TagProviderID}
}

// OperationCounterName is the call counter for operation, e.g.
// integrations.authorize.total.
func OperationCounterName(operation string) string {
	return "integrations." + operation + ".total"
}

// OperationDurationName is the latency histogram for operation, in
// milliseconds.
func OperationDurationName(operation string) string {
	return "integrations." + operation + ".duration_ms"
}

// OperationTags is the tag set of one observed call.
type OperationTags struct {
	Operation  string
	Status     string
	ProviderID string
}

// Map returns a fresh map with every tag key present; an unknown provider is
// recorded as an empty value.
func (t OperationTags) Map() map[string]string {
	return map[string]string{
		TagOperation:  t.Operation,
		TagStatus:     t.Status,
		TagProviderID: t.ProviderID,
	}
}

func statusOf(err error) string {
	if err != nil {
		return StatusFailure
	}
	return StatusSuccess
}

// NopMetricsRecorder is used when no recorder is configured.
type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

var _ MetricsRecorder = NopMetricsRecorder{}
