package runtime

import (
	"net/http"

	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/drblury/analyticsbase/internal/dispatch"
	"github.com/drblury/analyticsbase/internal/storage"
)

const metricsNamespace = "analyticsbase"

// Dispatch outcomes used as the "outcome" label.
const (
	OutcomeStored      = "stored"
	OutcomeRejected    = "rejected"
	OutcomeConflict    = "conflict"
	OutcomeUnavailable = "unavailable"
	OutcomeFailed      = "failed"
)

// Message sources used as the "source" label.
const (
	SourceHTTP   = "http"
	SourceBroker = "broker"
)

// Metrics owns a dedicated Prometheus registry so several services can live
// in one process.
type Metrics struct {
	registry   *prometheus.Registry
	messages   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	heartbeats prometheus.Counter
}

// NewMetrics registers the analytics collectors plus Go and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_total",
			Help:      "Analytics messages handled, by source, kind and outcome.",
		}, []string{"source", "kind", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent decoding and storing one analytics message.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 5},
		}, []string{"source", "kind"}),
		heartbeats: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "heartbeats_total",
			Help:      "Liveness checks answered.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.messages,
		m.duration,
		m.heartbeats,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks records dispatch outcomes for messages received from source.
func (m *Metrics) Hooks(source string) dispatch.Hooks {
	return dispatch.Hooks{
		OnDone: func(ev dispatch.Event) {
			m.observe(source, ev, OutcomeStored)
		},
		OnError: func(ev dispatch.Event, err error) {
			m.observe(source, ev, Outcome(err))
		},
	}
}

func (m *Metrics) observe(source string, ev dispatch.Event, outcome string) {
	kind := ev.KindLabel()
	m.messages.WithLabelValues(source, kind, outcome).Inc()
	m.duration.WithLabelValues(source, kind).Observe(ev.Duration.Seconds())
}

// AddRouterMetrics instruments the broker router's handlers, publishers and
// subscribers. Must be called before handlers are added.
func (m *Metrics) AddRouterMetrics(router *message.Router, pubsub string) {
	builder := metrics.NewPrometheusMetricsBuilder(m.registry, metricsNamespace, pubsub)
	builder.AddPrometheusRouterMetrics(router)
}

// Outcome classifies a dispatch result for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeStored
	case dispatch.IsDecodeError(err):
		return OutcomeRejected
	case storage.IsConflict(err):
		return OutcomeConflict
	case storage.IsUnavailable(err):
		return OutcomeUnavailable
	default:
		return OutcomeFailed
	}
}
