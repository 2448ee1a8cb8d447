package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "screenshots_jobs_processed_total",
		Help: "Total number of jobs processed, by status",
	}, []string{"status"})

	JobProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "screenshots_job_processing_duration_seconds",
		Help:    "Duration of screenshot pipeline stages",
		Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	ScreenshotsExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "screenshots_extracted_total",
		Help: "Total number of screenshots captured across all jobs and requests",
	})

	TimestampsSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "screenshots_timestamps_skipped_total",
		Help: "Requested timestamps that produced no screenshot, by reason",
	}, []string{"reason"})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "screenshots_active_workers",
		Help: "Number of currently active workers processing jobs",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "screenshots_retry_total",
		Help: "Total number of retries",
	}, []string{"attempt"})

	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "screenshots_queue_deliveries_total",
		Help: "Queue deliveries handled by the worker, by outcome",
	}, []string{"outcome"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "screenshots_http_requests_total",
		Help: "HTTP requests served by the API, by route and status code",
	}, []string{"route", "code"})
)
