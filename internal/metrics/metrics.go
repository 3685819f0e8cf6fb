// Package metrics holds the collector's Prometheus instruments.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	eventsReceived  *prometheus.CounterVec
	personsTotal    prometheus.Counter
	requestDuration *prometheus.HistogramVec
	lastJourneyTS   prometheus.Gauge
}

// New registers the collector metrics on a fresh registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "journeytrace",
		Subsystem: "collector",
		Name:      "requests_total",
		Help:      "Number of collector requests by endpoint and status code",
	}, []string{"endpoint", "code"})
	m.eventsReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "journeytrace",
		Subsystem: "collector",
		Name:      "events_received_total",
		Help:      "Number of journey events stored by endpoint",
	}, []string{"endpoint"})
	m.personsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "journeytrace",
		Subsystem: "collector",
		Name:      "persons_total",
		Help:      "Number of deanonymization requests stored",
	})
	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "journeytrace",
		Subsystem: "collector",
		Name:      "request_duration_seconds",
		Help:      "Time spent handling collector requests",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})
	m.lastJourneyTS = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "journeytrace",
		Subsystem: "collector",
		Name:      "last_journey_timestamp_seconds",
		Help:      "Unix timestamp of the last stored journey",
	})

	m.registry.MustRegister(
		m.requestsTotal, m.eventsReceived, m.personsTotal,
		m.requestDuration, m.lastJourneyTS,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(endpoint string, code int, elapsed time.Duration) {
	m.requestsTotal.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func (m *Metrics) EventsStored(endpoint string, n int, at time.Time) {
	if n <= 0 {
		return
	}
	m.eventsReceived.WithLabelValues(endpoint).Add(float64(n))
	m.lastJourneyTS.Set(float64(at.Unix()))
}

func (m *Metrics) PersonStored() {
	m.personsTotal.Inc()
}
