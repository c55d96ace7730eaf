package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Download metrics (C3)
	DownloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckctl_downloads_total",
			Help: "Total number of bundle downloads by outcome",
		},
		[]string{"outcome"}, // completed, hash_mismatch, failed
	)

	DownloadBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "duckctl_download_bytes_total",
			Help: "Total bytes transferred by the downloader, across fresh and resumed downloads",
		},
	)

	DownloadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "duckctl_download_duration_seconds",
			Help:    "Time taken for a download to complete, in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	// Deployment metrics (C6)
	DeploymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckctl_deployments_total",
			Help: "Total number of deployment cycles by final state",
		},
		[]string{"final_state"}, // Done, Failed
	)

	DeploymentDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "duckctl_deployment_duration_seconds",
			Help:    "Full deployment cycle duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
	)

	DeploymentRollbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "duckctl_deployment_rollbacks_total",
			Help: "Total number of deployments that triggered an automatic rollback",
		},
	)

	// Backup metrics (C4)
	BackupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckctl_backups_total",
			Help: "Total number of backup archives created, by type and status",
		},
		[]string{"backup_type", "status"},
	)

	RestoresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckctl_restores_total",
			Help: "Total number of backup restores attempted, by outcome",
		},
		[]string{"outcome"}, // success, failed
	)

	BackupDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "duckctl_backup_duration_seconds",
			Help:    "Time taken to create a backup archive, in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	RestoreDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "duckctl_restore_duration_seconds",
			Help:    "Time taken to restore a backup archive, in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	// Scheduler metrics (C7)
	SchedulerRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckctl_scheduler_runs_total",
			Help: "Total number of scheduled job executions, by scheduler and outcome",
		},
		[]string{"scheduler", "outcome"}, // auto_backup|delayed_upgrade, success|failed
	)

	// Self-update metrics (C8)
	SelfUpdateChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckctl_self_update_checks_total",
			Help: "Total number of self-update checks, by outcome",
		},
		[]string{"outcome"}, // up_to_date, applied, failed
	)

	// API client metrics (C2)
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckctl_api_requests_total",
			Help: "Total number of manifest-server API requests by operation and status",
		},
		[]string{"operation", "status"},
	)
)

func init() {
	prometheus.MustRegister(DownloadsTotal)
	prometheus.MustRegister(DownloadBytesTotal)
	prometheus.MustRegister(DownloadDuration)
	prometheus.MustRegister(DeploymentsTotal)
	prometheus.MustRegister(DeploymentDuration)
	prometheus.MustRegister(DeploymentRollbacksTotal)
	prometheus.MustRegister(BackupsTotal)
	prometheus.MustRegister(RestoresTotal)
	prometheus.MustRegister(BackupDuration)
	prometheus.MustRegister(RestoreDuration)
	prometheus.MustRegister(SchedulerRunsTotal)
	prometheus.MustRegister(SelfUpdateChecksTotal)
	prometheus.MustRegister(APIRequestsTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
