// Package metrics exposes Prometheus metrics for the training dashboard.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Cache result label values.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// Manager owns the metric vectors and the registry they live in.
type Manager struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	datasetLoads      *prometheus.CounterVec
	datasetRecords    prometheus.Gauge
	datasetSkipped    prometheus.Gauge
	viewDuration      *prometheus.HistogramVec
	viewCache         *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	eventsPublished   *prometheus.CounterVec
	headcountMutation *prometheus.CounterVec
	rateLimited       prometheus.Counter
}

// Option configures a Manager.
type Option func(*Manager)

func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.buckets = buckets
		}
	}
}

// WithProcessCollectors adds Go runtime and process metrics.
func WithProcessCollectors() Option {
	return func(m *Manager) {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
}

// NewManager registers every metric on a fresh registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "egitim",
		buckets:   prometheus.DefBuckets,
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.init()
	return m
}

func (m *Manager) init() {
	auto := promauto.With(m.registry)

	m.datasetLoads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "dataset_loads_total",
		Help:      "Dataset loads by source kind and outcome",
	}, []string{"source", "outcome"})

	m.datasetRecords = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "dataset_records",
		Help:      "Valid records in the active dataset",
	})

	m.datasetSkipped = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "dataset_skipped_rows",
		Help:      "Rows dropped from the active dataset for missing identity fields",
	})

	m.viewDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "view_duration_seconds",
		Help:      "Time spent computing dashboard views",
		Buckets:   m.buckets,
	}, []string{"view"})

	m.viewCache = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "view_cache_total",
		Help:      "View memo lookups by result",
	}, []string{"view", "result"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status code",
	}, []string{"method", "route", "status"})

	m.httpDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   m.buckets,
	}, []string{"method", "route"})

	m.eventsPublished = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "events_published_total",
		Help:      "AMQP events by type and outcome",
	}, []string{"type", "outcome"})

	m.headcountMutation = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "headcount_mutations_total",
		Help:      "Headcount store mutations by operation",
	}, []string{"operation"})

	m.rateLimited = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter",
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// RecordDatasetLoad counts a load attempt. On success the dataset gauges are
// moved to the new snapshot's numbers.
func (m *Manager) RecordDatasetLoad(source string, records, skipped int, err error) {
	m.datasetLoads.WithLabelValues(source, outcome(err)).Inc()
	if err == nil {
		m.datasetRecords.Set(float64(records))
		m.datasetSkipped.Set(float64(skipped))
	}
}

// ObserveView records how long a view took to compute.
func (m *Manager) ObserveView(view string, d time.Duration) {
	m.viewDuration.WithLabelValues(view).Observe(d.Seconds())
}

func (m *Manager) RecordViewCache(view string, hit bool) {
	result := CacheMiss
	if hit {
		result = CacheHit
	}
	m.viewCache.WithLabelValues(view, result).Inc()
}

func (m *Manager) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Manager) RecordEvent(msgType string, err error) {
	m.eventsPublished.WithLabelValues(msgType, outcome(err)).Inc()
}

func (m *Manager) RecordHeadcountMutation(op string) {
	m.headcountMutation.WithLabelValues(op).Inc()
}

func (m *Manager) RecordRateLimited() {
	m.rateLimited.Inc()
}
