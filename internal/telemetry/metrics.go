// Package telemetry holds the process-wide metrics registry and tracer
// setup shared by the engine and the API gateway.
package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry collects every rossync metric. It is separate from the default
// registry so a textfile dump contains only rossync series.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	httpRequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rossync",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Remote API requests by method and response status.",
	}, []string{"method", "status"})

	httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rossync",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "Remote API request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	objectsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rossync",
		Name:      "objects_total",
		Help:      "Objects processed by operation, type and outcome.",
	}, []string{"operation", "type", "outcome"})

	operationDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rossync",
		Name:      "operation_duration_seconds",
		Help:      "Duration of pull, diff, push, copy and deploy runs.",
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300},
	}, []string{"operation"})
)

// ObserveHTTPRequest records one API round trip. status 0 means the request
// failed before a response arrived.
func ObserveHTTPRequest(method string, status int, elapsed time.Duration) {
	statusLabel := "error"
	if status > 0 {
		statusLabel = strconv.Itoa(status)
	}
	httpRequestsTotal.WithLabelValues(method, statusLabel).Inc()
	httpRequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// CountObject records the outcome of one object within an operation.
func CountObject(operation string, objectType string, outcome string) {
	objectsTotal.WithLabelValues(operation, objectType, outcome).Inc()
}

// ObserveOperation records the wall time of a whole operation.
func ObserveOperation(operation string, elapsed time.Duration) {
	operationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// WriteMetricsFile dumps the registry in the node-exporter textfile format.
func WriteMetricsFile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
