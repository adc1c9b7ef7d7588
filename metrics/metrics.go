// Package metrics exposes prometheus instrumentation for the poll
// loop on a private registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	CyclesTotal   prometheus.Counter
	FetchErrors   *prometheus.CounterVec // feed label: vehicle_positions|trip_updates
	DecodeErrors  *prometheus.CounterVec
	CycleDuration prometheus.Histogram

	SnapshotVehicles prometheus.Gauge
	SnapshotUpdates  prometheus.Gauge
	LastSuccess      prometheus.Gauge // unix seconds
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transit_poll_cycles_total",
			Help: "Total poll cycles attempted.",
		}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transit_fetch_errors_total",
			Help: "Total feed fetch failures (network, timeout, non-2xx).",
		}, []string{"feed"}),
		DecodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transit_decode_errors_total",
			Help: "Total feed decode failures.",
		}, []string{"feed"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "transit_poll_cycle_duration_seconds",
			Help:    "Duration of one fetch+decode+join cycle.",
			Buckets: prometheus.DefBuckets,
		}),
		SnapshotVehicles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transit_snapshot_vehicles",
			Help: "Vehicle records in the latest published snapshot.",
		}),
		SnapshotUpdates: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transit_snapshot_stop_time_updates",
			Help: "Stop-time update rows seen in the latest published snapshot.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transit_last_success_timestamp_seconds",
			Help: "Unix time of the last successfully published snapshot.",
		}),
	}

	reg.MustRegister(
		c.CyclesTotal,
		c.FetchErrors,
		c.DecodeErrors,
		c.CycleDuration,
		c.SnapshotVehicles,
		c.SnapshotUpdates,
		c.LastSuccess,
	)

	return c
}

// Handler serves the registry in prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
