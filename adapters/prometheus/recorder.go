// Package prometheus exports integration metrics through
// prometheus/client_golang.
package prometheus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-integrations/core"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultLabels are the tag keys recorded by the integration service.
var DefaultLabels = core.MetricLabels()

// Recorder creates one CounterVec or HistogramVec per metric name the first
// time it is seen. Every vector shares the same label set; missing tags are
// recorded as empty and unknown tags are dropped.
type Recorder struct {
	mu         sync.Mutex
	registerer prometheus.Registerer
	labels     []string
	buckets    []float64
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	onError    func(error)
}

type Option func(*Recorder)

func WithLabels(labels ...string) Option {
	return func(r *Recorder) {
		if len(labels) > 0 {
			r.labels = append([]string(nil), labels...)
		}
	}
}

func WithBuckets(buckets ...float64) Option {
	return func(r *Recorder) {
		if len(buckets) > 0 {
			r.buckets = append([]float64(nil), buckets...)
		}
	}
}

// WithErrorHandler receives registration failures, which are otherwise
// dropped because the recorder interface has no error return.
func WithErrorHandler(handler func(error)) Option {
	return func(r *Recorder) {
		r.onError = handler
	}
}

func NewRecorder(registerer prometheus.Registerer, opts ...Option) *Recorder {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	recorder := &Recorder{
		registerer: registerer,
		labels:     append([]string(nil), DefaultLabels...),
		buckets:    []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		counters:   map[string]*prometheus.CounterVec{},
		histograms: map[string]*prometheus.HistogramVec{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(recorder)
		}
	}
	return recorder
}

func (r *Recorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || value < 0 {
		return
	}
	counter, err := r.counter(name)
	if err != nil {
		r.report(err)
		return
	}
	counter.WithLabelValues(r.labelValues(tags)...).Add(float64(value))
}

func (r *Recorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil {
		return
	}
	histogram, err := r.histogram(name)
	if err != nil {
		r.report(err)
		return
	}
	histogram.WithLabelValues(r.labelValues(tags)...).Observe(value)
}

func (r *Recorder) counter(name string) (*prometheus.CounterVec, error) {
	metricName := MetricName(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.counters[metricName]; ok {
		return existing, nil
	}
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metricName,
		Help: fmt.Sprintf("Count of %s", name),
	}, r.labels)
	registered, err := register(r.registerer, vec)
	if err != nil {
		return nil, err
	}
	r.counters[metricName] = registered
	return registered, nil
}

func (r *Recorder) histogram(name string) (*prometheus.HistogramVec, error) {
	metricName := MetricName(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.histograms[metricName]; ok {
		return existing, nil
	}
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    metricName,
		Help:    fmt.Sprintf("Distribution of %s", name),
		Buckets: r.buckets,
	}, r.labels)
	registered, err := register(r.registerer, vec)
	if err != nil {
		return nil, err
	}
	r.histograms[metricName] = registered
	return registered, nil
}

func (r *Recorder) labelValues(tags map[string]string) []string {
	values := make([]string, len(r.labels))
	for i, label := range r.labels {
		values[i] = tags[label]
	}
	return values
}

func (r *Recorder) report(err error) {
	if r.onError != nil {
		r.onError(err)
	}
}

// register reuses a collector that another recorder already registered under
// the same name.
func register[T prometheus.Collector](registerer prometheus.Registerer, collector T) (T, error) {
	if err := registerer.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, typed := already.ExistingCollector.(T); typed {
				return existing, nil
			}
		}
		var zero T
		return zero, fmt.Errorf("prometheus: register %T: %w", collector, err)
	}
	return collector, nil
}

// MetricName maps dotted service metric names onto the Prometheus charset.
func MetricName(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	b.Grow(len(name))
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == ':':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "integrations_unnamed"
	}
	return b.String()
}

var _ core.MetricsRecorder = (*Recorder)(nil)
