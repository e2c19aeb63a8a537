package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Jobs
	JobsClaimed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "printpoller_jobs_claimed_total",
			Help: "Total number of jobs claimed by the poller",
		},
	)
	JobStatusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "printpoller_job_status_changes_total",
			Help: "Number of job status transitions committed to the store",
		},
		[]string{"from", "to"},
	)
	ActiveJobs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "printpoller_jobs_active",
			Help: "Current number of claimed jobs",
		},
	)
	JobDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "printpoller_job_duration_seconds",
			Help:    "Histogram of job processing durations in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s..256s
		},
		[]string{"outcome"}, // completed|failed|commit_error|released
	)

	// Poll loop
	Ticks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "printpoller_ticks_total",
			Help: "Poll ticks by result",
		},
		[]string{"result"}, // ok|skipped|error
	)

	// Files
	FilesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "printpoller_files_processed_total",
			Help: "Files taken through fetch, transform and dispatch, by result",
		},
		[]string{"result"}, // dispatched|fatal|transient
	)
	PagesExtracted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "printpoller_pages_extracted_total",
			Help: "Pages written by the document transformer",
		},
	)

	// Dispatch
	DispatchRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "printpoller_dispatch_requests_total",
			Help: "Print submissions by dispatcher mode and result",
		},
		[]string{"mode", "result"}, // result: accepted|rejected|error
	)
	DispatchDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "printpoller_dispatch_duration_seconds",
			Help:    "Duration of print submissions",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	// DB / file storage ops
	DBFileOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "printpoller_db_file_ops_total",
			Help: "Store operations performed",
		},
		[]string{"op"}, // op: get|put|list|fetch
	)

	// Local scratch workspace
	WorkspaceOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "printpoller_workspace_ops_total",
			Help: "Scratch workspace operations performed",
		},
		[]string{"op"}, // op: scope|descriptor|cleanup|purge
	)

	// Errors
	Errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "printpoller_errors_total",
			Help: "Errors encountered in components",
		},
		[]string{"component", "type"},
	)
)

func init() {
	prometheus.MustRegister(
		// Jobs
		JobsClaimed,
		JobStatusChanges,
		ActiveJobs,
		JobDurationSeconds,
		// Poll loop
		Ticks,
		// Files
		FilesProcessed,
		PagesExtracted,
		// Dispatch
		DispatchRequests,
		DispatchDurationSeconds,
		// DB
		DBFileOps,
		// Workspace
		WorkspaceOps,
		// Errors
		Errors,
	)
}

// Jobs
func IncJobsClaimed() {
	JobsClaimed.Inc()
}

func IncJobStatusChange(from, to string) {
	JobStatusChanges.WithLabelValues(from, to).Inc()
}

func SetActiveJobs(n int) {
	ActiveJobs.Set(float64(n))
}

func ObserveJobDuration(outcome string, d time.Duration) {
	JobDurationSeconds.WithLabelValues(outcome).Observe(d.Seconds())
}

// Poll loop
func IncTick(result string) {
	Ticks.WithLabelValues(result).Inc()
}

// Files
func IncFileProcessed(result string) {
	FilesProcessed.WithLabelValues(result).Inc()
}

func AddPagesExtracted(n int) {
	PagesExtracted.Add(float64(n))
}

// Dispatch
func IncDispatch(mode, result string) {
	DispatchRequests.WithLabelValues(mode, result).Inc()
}

func ObserveDispatchDuration(mode string, d time.Duration) {
	DispatchDurationSeconds.WithLabelValues(mode).Observe(d.Seconds())
}

// DB / file ops
func IncDBFileOp(op string) {
	DBFileOps.WithLabelValues(op).Inc()
}

// Workspace
func IncWorkspaceOp(op string) {
	WorkspaceOps.WithLabelValues(op).Inc()
}

// Errors
func IncError(component, typ string) {
	Errors.WithLabelValues(component, typ).Inc()
}
