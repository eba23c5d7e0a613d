package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "go_action"

// Metrics holds the collectors of one process on a private registry.
type Metrics struct {
	registry    *prometheus.Registry
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	startup     *prometheus.HistogramVec
	inFlight    prometheus.Gauge
	reaped      prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invocations_total",
			Help:      "Action invocations by source kind and activation status.",
		}, []string{"kind", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "invocation_duration_seconds",
			Help:      "End-to-end invocation time, container start and stop included.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"kind"}),
		startup: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "container_start_seconds",
			Help:      "Time from container creation until its HTTP server answered.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"outcome"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "invocations_in_flight",
			Help:      "Invocations currently running.",
		}),
		reaped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "containers_reaped_total",
			Help:      "Leftover action containers removed by the reaper.",
		}),
	}

	m.registry.MustRegister(
		m.invocations,
		m.duration,
		m.startup,
		m.inFlight,
		m.reaped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveInvocation records a finished invocation.
func (m *Metrics) ObserveInvocation(kind, status string, d time.Duration) {
	m.invocations.WithLabelValues(kind, status).Inc()
	m.duration.WithLabelValues(kind).Observe(d.Seconds())
}

// ObserveStart records how long a container took to become ready.
func (m *Metrics) ObserveStart(d time.Duration, err error) {
	outcome := "ready"
	if err != nil {
		outcome = "failed"
	}
	m.startup.WithLabelValues(outcome).Observe(d.Seconds())
}

// TrackInFlight increments the in-flight gauge; call the returned func when done.
func (m *Metrics) TrackInFlight() func() {
	m.inFlight.Inc()
	return m.inFlight.Dec
}

func (m *Metrics) AddReaped(n int) {
	m.reaped.Add(float64(n))
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
