package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics records maintenance job runs and the rows each run touched.
type JobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	affected *prometheus.CounterVec
}

// NewJobMetrics registers the maintenance job metrics. A nil registerer
// yields a no-op recorder.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "maintenance_job_duration_seconds",
		Help:    "Duration of maintenance jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_job_runs_total",
		Help: "Maintenance job executions, by outcome.",
	}, []string{"job", "outcome"})
	affected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_job_affected_total",
		Help: "Rows changed by maintenance jobs.",
	}, []string{"job"})
	reg.MustRegister(duration, runs, affected)
	return &JobMetrics{
		duration: duration,
		runs:     runs,
		affected: affected,
	}
}

func (m *JobMetrics) ObserveDuration(job string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

func (m *JobMetrics) IncSuccess(job string) {
	if m == nil || m.runs == nil {
		return
	}
	m.runs.WithLabelValues(normalizeLabel(job), "success").Inc()
}

func (m *JobMetrics) IncFailure(job string) {
	if m == nil || m.runs == nil {
		return
	}
	m.runs.WithLabelValues(normalizeLabel(job), "failure").Inc()
}

// AddAffected ignores non-positive counts.
func (m *JobMetrics) AddAffected(job string, count int64) {
	if m == nil || m.affected == nil || count <= 0 {
		return
	}
	m.affected.WithLabelValues(normalizeLabel(job)).Add(float64(count))
}
