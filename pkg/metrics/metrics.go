package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all monitoring service metrics
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Kafka metrics
	KafkaEventsPublished *prometheus.CounterVec
	KafkaPublishDuration *prometheus.HistogramVec

	// MongoDB metrics
	MongoDBOperations        *prometheus.CounterVec
	MongoDBOperationDuration *prometheus.HistogramVec

	// Video pipeline metrics
	FramesCaptured     *prometheus.CounterVec
	FramesDropped      *prometheus.CounterVec
	FramesProcessed    *prometheus.CounterVec
	ProcessingDuration *prometheus.HistogramVec
	InferenceDuration  prometheus.Histogram
	QueueDepth         *prometheus.GaugeVec
	ActiveStreams      prometheus.Gauge
	StreamReconnects   *prometheus.CounterVec
	StreamErrors       *prometheus.CounterVec

	// Zone metrics
	ZoneOccupancy     *prometheus.GaugeVec
	ZoneStatusChanges *prometheus.CounterVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "marmot",
	}
}

// New creates a new Metrics instance
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()

	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"service", "method", "path"},
	)

	m.HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "http_requests_in_flight",
			Help:        "Number of HTTP requests currently being processed",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.KafkaEventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "kafka_events_published_total",
			Help:      "Total number of Kafka events published",
		},
		[]string{"service", "topic", "event_type", "status"},
	)

	m.KafkaPublishDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "kafka_publish_duration_seconds",
			Help:      "Kafka publish duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"service", "topic"},
	)

	m.MongoDBOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "mongodb_operations_total",
			Help:      "Total number of MongoDB operations",
		},
		[]string{"service", "collection", "operation", "status"},
	)

	m.MongoDBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "mongodb_operation_duration_seconds",
			Help:      "MongoDB operation duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"service", "collection", "operation"},
	)

	m.FramesCaptured = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "frames_captured_total",
			Help:      "Total number of frames read from video sources",
		},
		[]string{"stream_id"},
	)

	m.FramesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "frames_dropped_total",
			Help:      "Total number of frames dropped by stage",
		},
		[]string{"stream_id", "stage"},
	)

	m.FramesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "frames_processed_total",
			Help:      "Total number of frames run through detection",
		},
		[]string{"stream_id"},
	)

	m.ProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "frame_processing_duration_seconds",
			Help:      "End-to-end frame processing duration in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"stream_id"},
	)

	m.InferenceDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "inference_duration_seconds",
			Help:        "Person detection inference duration in seconds",
			Buckets:     []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "queue_depth",
			Help:      "Current depth of bounded pipeline queues",
		},
		[]string{"queue"},
	)

	m.ActiveStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "active_streams",
			Help:        "Number of active capture workers",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.StreamReconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "stream_reconnects_total",
			Help:      "Total number of stream reconnection attempts",
		},
		[]string{"stream_id"},
	)

	m.StreamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "stream_errors_total",
			Help:      "Total number of capture errors",
		},
		[]string{"stream_id"},
	)

	m.ZoneOccupancy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "zone_occupancy",
			Help:      "Current number of persons in a zone",
		},
		[]string{"zone_id"},
	)

	m.ZoneStatusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "zone_status_changes_total",
			Help:      "Total number of zone status transitions",
		},
		[]string{"zone_id", "status"},
	)

	m.CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"service", "name"},
	)

	m.CircuitBreakerTrips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "circuit_breaker_trips_total",
			Help:      "Total number of circuit breaker trips",
		},
		[]string{"service", "name"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.KafkaEventsPublished,
		m.KafkaPublishDuration,
		m.MongoDBOperations,
		m.MongoDBOperationDuration,
		m.FramesCaptured,
		m.FramesDropped,
		m.FramesProcessed,
		m.ProcessingDuration,
		m.InferenceDuration,
		m.QueueDepth,
		m.ActiveStreams,
		m.StreamReconnects,
		m.StreamErrors,
		m.ZoneOccupancy,
		m.ZoneStatusChanges,
		m.CircuitBreakerState,
		m.CircuitBreakerTrips,
	)

	return m
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments the in-flight gauge
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements the in-flight gauge
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}

// RecordKafkaPublish records a Kafka publish
func (m *Metrics) RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	m.KafkaEventsPublished.WithLabelValues(m.serviceName, topic, eventType, status).Inc()
	m.KafkaPublishDuration.WithLabelValues(m.serviceName, topic).Observe(duration.Seconds())
}

// RecordMongoDBOperation records a MongoDB operation
func (m *Metrics) RecordMongoDBOperation(collection, operation string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	m.MongoDBOperations.WithLabelValues(m.serviceName, collection, operation, status).Inc()
	m.MongoDBOperationDuration.WithLabelValues(m.serviceName, collection, operation).Observe(duration.Seconds())
}

// RecordFrameCaptured records a captured frame
func (m *Metrics) RecordFrameCaptured(streamID string) {
	m.FramesCaptured.WithLabelValues(streamID).Inc()
}

// RecordFrameDropped records a dropped frame at a pipeline stage
func (m *Metrics) RecordFrameDropped(streamID, stage string) {
	m.FramesDropped.WithLabelValues(streamID, stage).Inc()
}

// RecordFrameProcessed records a processed frame with its duration
func (m *Metrics) RecordFrameProcessed(streamID string, duration time.Duration) {
	m.FramesProcessed.WithLabelValues(streamID).Inc()
	m.ProcessingDuration.WithLabelValues(streamID).Observe(duration.Seconds())
}

// RecordInference records an inference call duration
func (m *Metrics) RecordInference(duration time.Duration) {
	m.InferenceDuration.Observe(duration.Seconds())
}

// SetQueueDepth sets the depth gauge for a named queue
func (m *Metrics) SetQueueDepth(queue string, depth int) {
	m.QueueDepth.WithLabelValues(queue).Set(float64(depth))
}

// SetActiveStreams sets the active stream gauge
func (m *Metrics) SetActiveStreams(count int) {
	m.ActiveStreams.Set(float64(count))
}

// RecordStreamReconnect records a reconnection attempt
func (m *Metrics) RecordStreamReconnect(streamID string) {
	m.StreamReconnects.WithLabelValues(streamID).Inc()
}

// RecordStreamError records a capture error
func (m *Metrics) RecordStreamError(streamID string) {
	m.StreamErrors.WithLabelValues(streamID).Inc()
}

// SetZoneOccupancy sets the occupancy gauge for a zone
func (m *Metrics) SetZoneOccupancy(zoneID string, count int) {
	m.ZoneOccupancy.WithLabelValues(zoneID).Set(float64(count))
}

// RecordZoneStatusChange records a zone status transition
func (m *Metrics) RecordZoneStatusChange(zoneID, status string) {
	m.ZoneStatusChanges.WithLabelValues(zoneID, status).Inc()
}

// SetCircuitBreakerState sets the circuit breaker state gauge
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(name string) {
	m.CircuitBreakerTrips.WithLabelValues(m.serviceName, name).Inc()
}
