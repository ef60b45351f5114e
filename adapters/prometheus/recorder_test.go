package prometheus

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "integrations.authorize.total", want: "integrations_authorize_total"},
		{in: "integrations.list_items.duration_ms", want: "integrations_list_items_duration_ms"},
		{in: "9lives", want: "_9lives"},
		{in: "", want: "integrations_unnamed"},
	}
	for _, tc := range cases {
		if got := MetricName(tc.in); got != tc.want {
			t.Fatalf("MetricName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRecorder_IncCounterUsesFixedLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := NewRecorder(registry)
	ctx := context.Background()

	tags := map[string]string{"operation": "authorize", "status": "success", "provider_id": "hubspot", "extra": "dropped"}
	recorder.IncCounter(ctx, "integrations.authorize.total", 1, tags)
	recorder.IncCounter(ctx, "integrations.authorize.total", 2, tags)
	recorder.IncCounter(ctx, "integrations.authorize.total", 1, map[string]string{"operation": "authorize", "status": "failure"})

	expected := `
# HELP integrations_authorize_total Count of integrations.authorize.total
# TYPE integrations_authorize_total counter
integrations_authorize_total{operation="authorize",provider_id="",status="failure"} 1
integrations_authorize_total{operation="authorize",provider_id="hubspot",status="success"} 3
`
	if err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "integrations_authorize_total"); err != nil {
		t.Fatalf("unexpected counter output: %v", err)
	}
}

func TestRecorder_ObserveHistogram(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := NewRecorder(registry)
	recorder.ObserveHistogram(context.Background(), "integrations.callback.duration_ms", 42, map[string]string{
		"operation": "callback",
		"status":    "success",
	})

	count, err := testutil.GatherAndCount(registry, "integrations_callback_duration_ms")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one histogram series, got %d", count)
	}
}

func TestRecorder_SharesCollectorsAcrossRecorders(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := NewRecorder(registry)
	second := NewRecorder(registry)
	var reported []error
	second.onError = func(err error) { reported = append(reported, err) }

	first.IncCounter(context.Background(), "integrations.load.total", 1, nil)
	second.IncCounter(context.Background(), "integrations.load.total", 1, nil)

	if len(reported) != 0 {
		t.Fatalf("expected re-registration to reuse the collector, got %v", reported)
	}
	if got := testutil.ToFloat64(second.counters["integrations_load_total"].WithLabelValues("", "", "")); got != 2 {
		t.Fatalf("expected shared counter value 2, got %v", got)
	}
}

func TestRecorder_ReportsConflictingRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	var reported []error
	recorder := NewRecorder(registry, WithErrorHandler(func(err error) { reported = append(reported, err) }))

	recorder.IncCounter(context.Background(), "integrations.conflict", 1, nil)
	recorder.ObserveHistogram(context.Background(), "integrations.conflict", 1, nil)

	if len(reported) != 1 {
		t.Fatalf("expected one registration error, got %d", len(reported))
	}
}
