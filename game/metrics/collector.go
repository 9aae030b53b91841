// Package metrics exposes parking game activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wricardo/parkingjam/game/engine"
)

const namespace = "parkingjam"

// Collector implements engine.Observer and owns its registry so several
// collectors can coexist in one process.
type Collector struct {
	registry   *prometheus.Registry
	dispatches *prometheus.CounterVec
	boarded    *prometheus.CounterVec
	departures *prometheus.CounterVec
	pipeline   prometheus.Histogram
}

var _ engine.Observer = (*Collector)(nil)

// NewCollector registers the game metrics. activeSessions is sampled on
// every scrape; pass nil to skip the gauge.
func NewCollector(activeSessions func() int) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Dispatch attempts by outcome.",
		}, []string{"result", "reason"}),
		boarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passengers_boarded_total",
			Help:      "Passengers boarded by color.",
		}, []string{"color"}),
		departures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vehicle_departures_total",
			Help:      "Full vehicles that left the lot by color.",
		}, []string{"color"}),
		pipeline: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Wall time of engine pipelines, accepted dispatches and standalone boarding runs, including animations.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}

	c.registry.MustRegister(
		c.dispatches,
		c.boarded,
		c.departures,
		c.pipeline,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if activeSessions != nil {
		c.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently held in memory.",
		}, func() float64 { return float64(activeSessions()) }))
	}
	return c
}

func (c *Collector) ObserveDispatch(accepted bool, reason engine.Reason) {
	result := "accepted"
	if !accepted {
		result = "rejected"
	}
	c.dispatches.WithLabelValues(result, string(reason)).Inc()
}

func (c *Collector) ObserveBoarding(color int) {
	c.boarded.WithLabelValues(engine.ColorName(color)).Inc()
}

func (c *Collector) ObserveDeparture(color int) {
	c.departures.WithLabelValues(engine.ColorName(color)).Inc()
}

func (c *Collector) ObservePipeline(d time.Duration) {
	c.pipeline.Observe(d.Seconds())
}

// Registry returns the registry backing the collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
