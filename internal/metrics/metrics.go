package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the drive engine
type Metrics struct {
	// Per-drive state
	DrivePressure  *prometheus.GaugeVec
	DriveRatio     *prometheus.GaugeVec
	DriveThwarting *prometheus.GaugeVec

	// Cycle metrics
	TicksTotal      prometheus.Counter
	TriggeredDrives prometheus.Gauge
	RetryQueueDepth prometheus.Gauge

	// Launch metrics
	LaunchesTotal  *prometheus.CounterVec
	LaunchDuration prometheus.Histogram

	// Satisfaction metrics
	SatisfactionsTotal *prometheus.CounterVec
	StaleCleanupsTotal prometheus.Counter
}

var (
	metricsOnce   sync.Once
	sharedMetrics *Metrics
)

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = &Metrics{
			DrivePressure: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "volition_drive_pressure",
					Help: "Current accumulated pressure per drive",
				},
				[]string{"drive"},
			),
			DriveRatio: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "volition_drive_pressure_ratio",
					Help: "Pressure relative to base threshold per drive",
				},
				[]string{"drive"},
			),
			DriveThwarting: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "volition_drive_thwarting_count",
					Help: "Consecutive triggers without satisfaction per drive",
				},
				[]string{"drive"},
			),
			TicksTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "volition_ticks_total",
					Help: "Number of accumulation ticks processed",
				},
			),
			TriggeredDrives: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "volition_triggered_drives",
					Help: "Drives currently awaiting satisfaction",
				},
			),
			RetryQueueDepth: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "volition_retry_queue_depth",
					Help: "Drives with an outstanding launch failure",
				},
			),
			LaunchesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "volition_launches_total",
					Help: "Session launch attempts by drive and outcome",
				},
				[]string{"drive", "success"},
			),
			LaunchDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "volition_launch_duration_seconds",
					Help:    "Duration of session launch attempts in seconds",
					Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
				},
			),
			SatisfactionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "volition_satisfactions_total",
					Help: "Satisfaction events by drive and depth",
				},
				[]string{"drive", "depth"},
			),
			StaleCleanupsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "volition_stale_cleanups_total",
					Help: "Stale triggered drives auto-satisfied by the cleanup pass",
				},
			),
		}
	})
	return sharedMetrics
}
