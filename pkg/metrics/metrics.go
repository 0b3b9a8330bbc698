// Package metrics exposes the executor's health as Prometheus
// collectors (spec.md §9's "cross-thread publication" concern, applied to
// observability rather than control): periods processed, frames
// processed, skipped periods (xruns), per-period duration, and the
// active instance count. Every collector is pre-registered and
// label-free so updating them in graph.Executor.RunPeriod costs one
// atomic add, never an allocation.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	PeriodsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "filterchain",
		Name:      "periods_processed_total",
		Help:      "Audio periods successfully processed by the executor.",
	})

	FramesProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "filterchain",
		Name:      "frames_processed_total",
		Help:      "Audio frames processed by the executor, summed across periods.",
	})

	Xruns = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "filterchain",
		Name:      "xruns_total",
		Help:      "Periods skipped because no output buffer was available.",
	})

	PeriodDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "filterchain",
		Name:      "period_duration_seconds",
		Help:      "Wall-clock time spent inside one RunPeriod call.",
		Buckets:   prometheus.ExponentialBuckets(1e-5, 2, 16),
	})

	ActiveInstances = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "filterchain",
		Name:      "active_instances",
		Help:      "Number of (node, handle) instances in the current execution plan.",
	})
)

func init() {
	prometheus.MustRegister(PeriodsProcessed, FramesProcessed, Xruns, PeriodDuration, ActiveInstances)
}
