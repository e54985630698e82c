// Package metrics exposes Prometheus instrumentation for pipeline runs,
// device health and the event stream. Counters update by observing the
// event bus, so the engine and registry stay free of metric plumbing.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rigflow/rigflow/internal/bus"
	"github.com/rigflow/rigflow/internal/events"
)

const namespace = "rigflow"

// Metrics holds the collectors and their private registry.
type Metrics struct {
	registry *prometheus.Registry

	PipelineRuns     *prometheus.CounterVec
	PipelineDuration prometheus.Histogram
	NodesExecuted    prometheus.Counter
	EventsPublished  *prometheus.CounterVec
	DevicesConnected prometheus.Gauge
	DeviceErrors     prometheus.Counter
	WSClients        prometheus.Gauge
}

// New builds a Metrics set on a fresh registry with the standard Go and
// process collectors attached.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline executions by outcome.",
		}, []string{"status"}),
		PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Wall time of completed pipeline runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		NodesExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_executed_total",
			Help:      "Nodes completed across all pipeline runs.",
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Events published on the bus by type.",
		}, []string{"type"}),
		DevicesConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "devices_connected",
			Help:      "Device instances currently connected.",
		}),
		DeviceErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_errors_total",
			Help:      "Device function and connection failures.",
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_clients",
			Help:      "WebSocket observers currently attached.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.PipelineRuns,
		m.PipelineDuration,
		m.NodesExecuted,
		m.EventsPublished,
		m.DevicesConnected,
		m.DeviceErrors,
		m.WSClients,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Observe subscribes the collectors to the bus. Unsubscribing the returned
// subscription stops the updates.
func (m *Metrics) Observe(b *bus.Bus) bus.Subscription {
	return b.SubscribeAll(events.AllTypes, func(_ context.Context, event events.Event) error {
		m.EventsPublished.WithLabelValues(event.EventType()).Inc()
		switch e := event.(type) {
		case events.PipelineCompleted:
			m.PipelineRuns.WithLabelValues("completed").Inc()
			m.PipelineDuration.Observe(e.ExecutionTime)
			m.NodesExecuted.Add(float64(e.NodesExecuted))
		case events.PipelineError:
			m.PipelineRuns.WithLabelValues("failed").Inc()
		case events.DeviceConnected:
			m.DevicesConnected.Inc()
		case events.DeviceDisconnected:
			m.DevicesConnected.Dec()
		case events.DeviceError:
			m.DeviceErrors.Inc()
		}
		return nil
	})
}
