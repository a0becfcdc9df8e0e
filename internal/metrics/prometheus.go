package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SweepsTotal completed sweeps
	SweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netmon_sweeps_total",
			Help: "Total number of completed monitoring sweeps",
		},
	)

	// SweepSeconds sweep duration
	SweepSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "netmon_sweep_duration_seconds",
			Help:    "Duration of one monitoring sweep in seconds",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	// SamplesTotal samples by outcome
	SamplesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netmon_samples_total",
			Help: "Total number of probe results by outcome",
		},
		[]string{"outcome"},
	)

	// ViolationsTotal threshold violations by metric
	ViolationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netmon_threshold_violations_total",
			Help: "Total number of threshold violations",
		},
		[]string{"metric"},
	)

	// Devices registered devices
	Devices = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "netmon_devices",
			Help: "Number of registered devices",
		},
	)

	// Running monitor state
	Running = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "netmon_monitor_running",
			Help: "1 while the sweep loop is running",
		},
	)
)
