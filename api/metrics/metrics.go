package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TasksCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tree_api_tasks_created_total",
		Help: "Total number of analysis tasks created",
	})

	UploadsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tree_api_uploads_rejected_total",
		Help: "Total number of uploads rejected at validation",
	}, []string{"reason"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tree_api_request_duration_seconds",
		Help:    "HTTP request handling time",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	WebhookTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tree_api_webhook_transitions_total",
		Help: "Task status transitions applied through the completion webhook",
	}, []string{"status"})
)
