package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

type ServerMetrics struct {
	service  string
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	transitionsTotal   *prometheus.CounterVec
	expirationsTotal   prometheus.Counter
	conflictRetryTotal prometheus.Counter
	notificationsTotal *prometheus.CounterVec
	indexSyncDuration  prometheus.Histogram
}

// Active collects the metrics of the running service.
var Active = NewServerMetrics("docflow")

func NewServerMetrics(service string) *ServerMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "docflow",
			Subsystem:   "http",
			Name:        "requests_total",
			Help:        "Total HTTP requests processed.",
			ConstLabels: constLabels,
		},
		[]string{"method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "docflow",
			Subsystem:   "http",
			Name:        "request_duration_seconds",
			Help:        "HTTP request duration in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "docflow",
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Number of in-flight HTTP requests.",
			ConstLabels: constLabels,
		},
	)
	transitionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "docflow",
			Subsystem:   "workflow",
			Name:        "transitions_total",
			Help:        "Document transitions by action and outcome.",
			ConstLabels: constLabels,
		},
		[]string{"action", "outcome"},
	)
	expirationsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   "docflow",
			Subsystem:   "workflow",
			Name:        "expirations_total",
			Help:        "Documents moved to expired by the lazy deadline check.",
			ConstLabels: constLabels,
		},
	)
	conflictRetryTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   "docflow",
			Subsystem:   "workflow",
			Name:        "conflict_retries_total",
			Help:        "Transitions retried after a version conflict.",
			ConstLabels: constLabels,
		},
	)
	notificationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "docflow",
			Subsystem:   "notification",
			Name:        "handled_total",
			Help:        "Event handler invocations by handler and outcome.",
			ConstLabels: constLabels,
		},
		[]string{"handler", "outcome"},
	)
	indexSyncDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   "docflow",
			Subsystem:   "index",
			Name:        "full_sync_duration_seconds",
			Help:        "Duration of full search index synchronizations.",
			Buckets:     []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
			ConstLabels: constLabels,
		},
	)

	registry.MustRegister(requestTotal, requestDuration, requestInFlight,
		transitionsTotal, expirationsTotal, conflictRetryTotal, notificationsTotal, indexSyncDuration)

	return &ServerMetrics{
		service:            service,
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		transitionsTotal:   transitionsTotal,
		expirationsTotal:   expirationsTotal,
		conflictRetryTotal: conflictRetryTotal,
		notificationsTotal: notificationsTotal,
		indexSyncDuration:  indexSyncDuration,
	}
}

func (m *ServerMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *ServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// GinMiddleware labels requests with the route template so path parameters do not explode cardinality.
func (m *ServerMetrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.requestTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func (m *ServerMetrics) RecordTransition(action, outcome string) {
	if action == "" {
		action = "unknown"
	}
	m.transitionsTotal.WithLabelValues(action, outcome).Inc()
}

func (m *ServerMetrics) RecordExpiration() {
	m.expirationsTotal.Inc()
}

func (m *ServerMetrics) RecordConflictRetry() {
	m.conflictRetryTotal.Inc()
}

func (m *ServerMetrics) RecordNotification(handler string, success bool) {
	outcome := OutcomeSuccess
	if !success {
		outcome = OutcomeError
	}
	m.notificationsTotal.WithLabelValues(handler, outcome).Inc()
}

func (m *ServerMetrics) ObserveIndexSync(duration time.Duration) {
	m.indexSyncDuration.Observe(duration.Seconds())
}
