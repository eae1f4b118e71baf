package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	jobsFinished    *prometheus.CounterVec
	jobRetries      prometheus.Counter
	computeDuration *prometheus.HistogramVec
	clipsRecorded   *prometheus.CounterVec
	creditsDeducted prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		jobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "podclip",
			Name:      "jobs_finished_total",
			Help:      "Processing jobs that reached a terminal step, by source and outcome.",
		}, []string{"source", "outcome"}),
		jobRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "podclip",
			Name:      "job_retries_total",
			Help:      "Jobs re-enqueued after a failed attempt.",
		}),
		computeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "podclip",
			Name:      "compute_call_seconds",
			Help:      "Wall time of calls to the process-video endpoint.",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 900},
		}, []string{"source", "result"}),
		clipsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "podclip",
			Name:      "clips_recorded_total",
			Help:      "Clip rows created from discovered objects.",
		}, []string{"source"}),
		creditsDeducted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "podclip",
			Name:      "credits_deducted_total",
			Help:      "Credits charged for produced clips.",
		}),
	}

	reg.MustRegister(m.jobsFinished, m.jobRetries, m.computeDuration, m.clipsRecorded, m.creditsDeducted)
	return m
}

// The methods below are no-ops on a nil receiver so callers and tests can
// run without a registry.

func (m *Metrics) JobFinished(source, outcome string) {
	if m == nil {
		return
	}
	m.jobsFinished.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) JobRetried() {
	if m == nil {
		return
	}
	m.jobRetries.Inc()
}

func (m *Metrics) ComputeCall(source string, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.computeDuration.WithLabelValues(source, result).Observe(d.Seconds())
}

func (m *Metrics) ClipsRecorded(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.clipsRecorded.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) CreditsDeducted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.creditsDeducted.Add(float64(n))
}
