package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Publish statuses.
const (
	StatusSuccess = "success"
	StatusDropped = "dropped"
	StatusError   = "error"
)

// Handle outcomes.
const (
	OutcomeAcked          = "acked"
	OutcomeAlreadyApplied = "already_applied"
	OutcomeUnknownEvent   = "unknown_event"
	OutcomeDeadLettered   = "dead_lettered"
	OutcomeRequeued       = "requeued"
)

// Registry encapsulates all metrics and provides a clean interface
// for recording metrics without global state
type Registry struct {
	registry *prometheus.Registry

	// Publisher metrics
	publishTotal    *prometheus.CounterVec
	publishDuration *prometheus.HistogramVec

	// Consumer metrics
	handleTotal    *prometheus.CounterVec
	handleDuration *prometheus.HistogramVec

	// Projection store metrics
	projectionOperationTotal    *prometheus.CounterVec
	projectionOperationDuration *prometheus.HistogramVec

	// Broker connectivity metrics
	brokerConnected  prometheus.Gauge
	brokerReconnects prometheus.Counter

	// System health metrics
	systemInfo *prometheus.GaugeVec
	startTime  prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	registry := prometheus.NewRegistry()

	r := &Registry{
		registry: registry,

		publishTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fabric_publisher_publish_total",
				Help: "Total number of publish operations",
			},
			[]string{"event", "status"}, // status: success, dropped, error
		),

		publishDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fabric_publisher_publish_duration_seconds",
				Help:    "Time spent publishing envelopes",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"event"},
		),

		handleTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fabric_consumer_handle_total",
				Help: "Total number of handled deliveries",
			},
			[]string{"queue", "event", "outcome"},
		),

		handleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fabric_consumer_handle_duration_seconds",
				Help:    "Time spent applying deliveries to projections",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"queue"},
		),

		projectionOperationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fabric_projection_operation_total",
				Help: "Total number of projection store operations",
			},
			[]string{"projection", "operation", "status"},
		),

		projectionOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fabric_projection_operation_duration_seconds",
				Help:    "Time spent on projection store operations",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"projection", "operation"},
		),

		brokerConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fabric_broker_connected",
				Help: "Whether a live broker channel is currently held (1) or not (0)",
			},
		),

		brokerReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fabric_broker_reconnects_total",
				Help: "Total number of successful broker reconnects",
			},
		),

		systemInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fabric_system_info",
				Help: "System information (value is always 1, labels contain info)",
			},
			[]string{"version", "build_time"},
		),

		startTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fabric_start_time_seconds",
				Help: "Unix timestamp when the application started",
			},
		),
	}

	// add default Go metrics (memory, GC, goroutines, etc.)
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	registry.MustRegister(
		r.publishTotal,
		r.publishDuration,
		r.handleTotal,
		r.handleDuration,
		r.projectionOperationTotal,
		r.projectionOperationDuration,
		r.brokerConnected,
		r.brokerReconnects,
		r.systemInfo,
		r.startTime,
	)

	r.startTime.SetToCurrentTime()

	return r
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		Registry:          r.registry,
	})
}

// RecordPublish records a publish operation with its terminal status.
func (r *Registry) RecordPublish(event, status string, duration time.Duration) {
	r.publishTotal.WithLabelValues(event, status).Inc()
	r.publishDuration.WithLabelValues(event).Observe(duration.Seconds())
}

// RecordHandle records a handled delivery and its outcome.
func (r *Registry) RecordHandle(queue, event, outcome string, duration time.Duration) {
	r.handleTotal.WithLabelValues(queue, event, outcome).Inc()
	r.handleDuration.WithLabelValues(queue).Observe(duration.Seconds())
}

// RecordProjectionOperation records a projection store operation
func (r *Registry) RecordProjectionOperation(projection, operation string, duration time.Duration, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}

	r.projectionOperationTotal.WithLabelValues(projection, operation, status).Inc()
	r.projectionOperationDuration.WithLabelValues(projection, operation).Observe(duration.Seconds())
}

// RecordBrokerState implements broker.StateRecorder.
func (r *Registry) RecordBrokerState(connected bool) {
	if connected {
		r.brokerConnected.Set(1)
		return
	}
	r.brokerConnected.Set(0)
}

// RecordBrokerReconnect implements broker.StateRecorder.
func (r *Registry) RecordBrokerReconnect() {
	r.brokerReconnects.Inc()
}

// SetSystemInfo sets system information metrics
func (r *Registry) SetSystemInfo(version, buildTime string) {
	r.systemInfo.WithLabelValues(version, buildTime).Set(1)
}
