// Package jobmetrics instruments background ledger jobs.
package jobmetrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
)

// Metrics holds the job collectors. A nil *Metrics records nothing.
type Metrics struct {
	runs        *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	findings    *prometheus.CounterVec
	now         func() time.Time
}

// NewMetrics registers the job collectors on registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_ledger_job_runs_total",
			Help: "Job executions by job and status.",
		}, []string{"job", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_ledger_job_failures_total",
			Help: "Failed job executions.",
		}, []string{"job"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "odyssey_ledger_job_duration_seconds",
			Help:    "Job execution time.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "odyssey_ledger_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		}, []string{"job"}),
		findings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_ledger_integrity_findings_total",
			Help: "Ledger integrity problems found by the scan, by kind and company.",
		}, []string{"kind", "company"}),
		now: time.Now,
	}
	registerer.MustRegister(m.runs, m.failures, m.duration, m.lastSuccess, m.findings)
	return m
}

// Tracker times one job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track starts timing a run of job.
func (m *Metrics) Track(job string) *Tracker {
	t := &Tracker{metrics: m, job: job}
	if m != nil {
		t.start = m.now()
	}
	return t
}

// End records the outcome of the run and returns err unchanged.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	m := t.metrics
	finished := m.now()
	m.duration.WithLabelValues(t.job).Observe(finished.Sub(t.start).Seconds())
	if err != nil {
		m.failures.WithLabelValues(t.job).Inc()
		m.runs.WithLabelValues(t.job, statusFailure).Inc()
		return err
	}
	m.runs.WithLabelValues(t.job, statusSuccess).Inc()
	m.lastSuccess.WithLabelValues(t.job).Set(float64(finished.Unix()))
	return nil
}

// AddIntegrityFindings counts count findings of kind for a company. Findings
// not tied to a company are reported under company "0".
func (m *Metrics) AddIntegrityFindings(kind string, companyID int64, count int) {
	if m == nil || count <= 0 {
		return
	}
	company := "0"
	if companyID > 0 {
		company = strconv.FormatInt(companyID, 10)
	}
	m.findings.WithLabelValues(kind, company).Add(float64(count))
}
