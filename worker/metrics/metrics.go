package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TasksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tree_worker_tasks_processed_total",
		Help: "Total number of tasks processed, by terminal status",
	}, []string{"status"})

	TasksSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tree_worker_tasks_skipped_total",
		Help: "Redelivered jobs whose task was already terminal",
	})

	ProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tree_worker_processing_duration_seconds",
		Help:    "Time from claim to terminal transition",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
	})
)
