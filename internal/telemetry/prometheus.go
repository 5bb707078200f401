// Package telemetry exposes Prometheus metrics for tool calls, upstream
// requests and the event broker.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "opnsense_mcp"

// Status label values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type PrometheusMetrics struct {
	gatherer         prometheus.Gatherer
	toolCalls        *prometheus.CounterVec
	toolDuration     *prometheus.HistogramVec
	upstreamDuration *prometheus.HistogramVec
	connectedClients prometheus.Gauge
	publishedEvents  *prometheus.CounterVec
}

// NewPrometheusMetrics registers collectors on registry. A nil registry
// creates a private one.
func NewPrometheusMetrics(registry *prometheus.Registry) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	factory := promauto.With(registry)

	return &PrometheusMetrics{
		gatherer: registry,
		toolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Total number of tool invocations",
			},
			[]string{"tool", "status"},
		),
		toolDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_duration_seconds",
				Help:      "Duration of tool invocations in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"tool", "status"},
		),
		upstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Duration of OPNsense API requests in seconds",
				Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"endpoint", "status"},
		),
		connectedClients: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sse_connected_clients",
				Help:      "Current number of subscribed event clients",
			},
		),
		publishedEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Total number of publish attempts by outcome",
			},
			[]string{"outcome"},
		),
	}
}

func statusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// ObserveTool records one tool invocation
func (p *PrometheusMetrics) ObserveTool(tool string, duration time.Duration, err error) {
	status := statusOf(err)
	p.toolCalls.WithLabelValues(tool, status).Inc()
	p.toolDuration.WithLabelValues(tool, status).Observe(duration.Seconds())
}

// ObserveUpstream records one appliance request
func (p *PrometheusMetrics) ObserveUpstream(endpoint string, duration time.Duration, err error) {
	p.upstreamDuration.WithLabelValues(endpoint, statusOf(err)).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) SetConnectedClients(n int) {
	p.connectedClients.Set(float64(n))
}

func (p *PrometheusMetrics) ObservePublish(outcome string) {
	p.publishedEvents.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus text format
func (p *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}
