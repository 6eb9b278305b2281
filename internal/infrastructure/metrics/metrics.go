// Package metrics exposes Prometheus collectors for the placement portal.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "placement_portal"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	applicationsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "applications",
			Name:      "created_total",
			Help:      "Applications committed.",
		},
	)

	applicationsDeleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "applications",
			Name:      "deleted_total",
			Help:      "Applications removed, by cause.",
		},
		[]string{"cause"},
	)

	applicationsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "applications",
			Name:      "rejected_total",
			Help:      "Create attempts rejected by the eligibility validator.",
		},
		[]string{"reason"},
	)

	statusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "applications",
			Name:      "status_changes_total",
			Help:      "Application status transitions.",
		},
		[]string{"from", "to"},
	)

	interviewsScheduled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "interviews",
			Name:      "scheduled_total",
			Help:      "Interviews scheduled, by mode.",
		},
		[]string{"mode"},
	)

	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "duration_seconds",
			Help:      "Duration of command units of work.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"command", "outcome"},
	)

	eventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Domain events published, by type.",
		},
		[]string{"event_type"},
	)

	eventHandlerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "handler_duration_seconds",
			Help:      "Duration of event handler runs.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"event_type", "outcome"},
	)

	breakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 open, 2 half-open).",
		},
		[]string{"breaker"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		applicationsCreated,
		applicationsDeleted,
		applicationsRejected,
		statusChanges,
		interviewsScheduled,
		commandDuration,
		eventsPublished,
		eventHandlerDuration,
		breakerState,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// GinMiddleware records request counts and latency. The route template is
// used as the path label so IDs do not explode cardinality.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := strings.ToUpper(c.Request.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordApplicationCreated counts a committed application.
func RecordApplicationCreated() {
	applicationsCreated.Inc()
}

// RecordApplicationDeleted counts a removed application.
func RecordApplicationDeleted(cause string) {
	applicationsDeleted.WithLabelValues(cause).Inc()
}

// RecordRejection counts a rejected create attempt.
func RecordRejection(reason string) {
	applicationsRejected.WithLabelValues(reason).Inc()
}

// RecordStatusChange counts a status transition.
func RecordStatusChange(from, to string) {
	statusChanges.WithLabelValues(from, to).Inc()
}

// RecordInterviewScheduled counts a scheduled interview.
func RecordInterviewScheduled(mode string) {
	interviewsScheduled.WithLabelValues(mode).Inc()
}

// ObserveCommand records how long a command took and whether it succeeded.
func ObserveCommand(command string, duration time.Duration, err error) {
	commandDuration.WithLabelValues(command, outcome(err)).Observe(duration.Seconds())
}

// EventObserver feeds event bus activity into Prometheus.
type EventObserver struct{}

// EventPublished counts a published event.
func (EventObserver) EventPublished(eventType string) {
	eventsPublished.WithLabelValues(eventType).Inc()
}

// HandlerFinished records one handler run.
func (EventObserver) HandlerFinished(eventType string, duration time.Duration, err error) {
	eventHandlerDuration.WithLabelValues(eventType, outcome(err)).Observe(duration.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// SetBreakerState publishes the state of a named circuit breaker.
func SetBreakerState(name string, state int) {
	breakerState.WithLabelValues(name).Set(float64(state))
}

// Recorder exposes the package-level recorders as a value, for callers that
// take a recorder interface.
type Recorder struct{}

func (Recorder) RecordApplicationCreated()             { RecordApplicationCreated() }
func (Recorder) RecordApplicationDeleted(cause string) { RecordApplicationDeleted(cause) }
func (Recorder) RecordRejection(reason string)         { RecordRejection(reason) }
func (Recorder) RecordStatusChange(from, to string)    { RecordStatusChange(from, to) }
func (Recorder) RecordInterviewScheduled(mode string)  { RecordInterviewScheduled(mode) }
