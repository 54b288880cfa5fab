package queue

import "github.com/prometheus/client_golang/prometheus"

var (
	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "psyched",
			Subsystem: "queue",
			Name:      "jobs_total",
			Help:      "Total generation jobs by outcome",
		},
		[]string{"outcome"},
	)

	jobDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "psyched",
			Subsystem: "queue",
			Name:      "job_duration_seconds",
			Help:      "Backend latency of successful generation jobs",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "psyched",
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Jobs waiting in the admission queue",
		},
	)

	queueRejectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "psyched",
			Subsystem: "queue",
			Name:      "rejects_total",
			Help:      "Submissions rejected because the queue was full",
		},
	)
)

func init() {
	prometheus.MustRegister(jobsTotal, jobDuration, queueDepth, queueRejectsTotal)
}
