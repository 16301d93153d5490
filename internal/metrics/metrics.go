package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mapposter_jobs_submitted_total",
		Help: "Total number of poster jobs accepted",
	})

	JobsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mapposter_jobs_completed_total",
		Help: "Total number of poster jobs completed successfully",
	})

	JobsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mapposter_jobs_failed_total",
		Help: "Total number of poster jobs that ended in failure",
	})

	RenderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mapposter_render_duration_seconds",
		Help:    "Time spent rendering one poster",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mapposter_dispatch_queue_depth",
		Help: "Number of jobs waiting in the dispatch queue",
	})
)
