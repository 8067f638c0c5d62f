package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProbeAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filemanager_bootstrap_probe_attempts_total",
			Help: "Total number of database readiness probe attempts",
		},
	)

	ProbeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filemanager_bootstrap_probe_failures_total",
			Help: "Total number of failed database readiness probes",
		},
	)

	ConfigRepairs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filemanager_bootstrap_config_repairs_total",
			Help: "Total number of malformed inputs repaired with defaults",
		},
		[]string{"input"},
	)

	DependencyReady = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "filemanager_dependency_ready",
			Help: "Last known database readiness (1 ready, 0 unavailable)",
		},
	)

	BootstrapDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "filemanager_bootstrap_duration_seconds",
			Help:    "Time taken by the startup sequence",
			Buckets: prometheus.DefBuckets,
		},
	)
)
