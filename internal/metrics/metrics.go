// Package metrics exposes playback counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/pickroute/internal/detection"
	"github.com/nerrad567/pickroute/internal/engine"
)

const namespace = "pickroute"

// Collector owns the registry and every playback metric.
type Collector struct {
	registry *prometheus.Registry

	transitions      *prometheus.CounterVec
	state            *prometheus.GaugeVec
	remaining        prometheus.Gauge
	dispatchFailures *prometheus.CounterVec
	detections       *prometheus.CounterVec
}

// New creates a collector on a private registry that also carries the Go
// runtime and process collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "transitions_total",
				Help:      "Engine events by type.",
			},
			[]string{"event"},
		),
		state: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "state",
				Help:      "1 for the current engine state, 0 otherwise.",
			},
			[]string{"state"},
		),
		remaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "remaining_seconds",
			Help:      "Seconds left in the current move.",
		}),
		dispatchFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "failures_total",
				Help:      "Robot commands that failed or were dropped, by channel.",
			},
			[]string{"channel"},
		),
		detections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "detection",
				Name:      "payloads_total",
				Help:      "Detection payloads by parse result.",
			},
			[]string{"result"},
		),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.transitions,
		c.state,
		c.remaining,
		c.dispatchFailures,
		c.detections,
	)
	c.setState(engine.StateIdle)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveEvent records an engine event.
func (c *Collector) ObserveEvent(ev engine.Event) {
	c.remaining.Set(float64(ev.Snapshot.RemainingSeconds))
	if ev.Type == engine.EventTick {
		return
	}
	c.transitions.WithLabelValues(string(ev.Type)).Inc()
	c.setState(ev.Snapshot.State)
}

// Run observes events until the channel is closed.
func (c *Collector) Run(events <-chan engine.Event) {
	for ev := range events {
		c.ObserveEvent(ev)
	}
}

// DispatchFailure implements dispatch.Observer.
func (c *Collector) DispatchFailure(channel string) {
	c.dispatchFailures.WithLabelValues(channel).Inc()
}

// DetectionPayload implements detection.Observer.
func (c *Collector) DetectionPayload(r detection.Result) {
	c.detections.WithLabelValues(r.String()).Inc()
}

func (c *Collector) setState(current engine.State) {
	for _, s := range engine.AllStates() {
		v := 0.0
		if s == current {
			v = 1
		}
		c.state.WithLabelValues(string(s)).Set(v)
	}
}
