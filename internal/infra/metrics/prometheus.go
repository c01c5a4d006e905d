package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytsl_jobs_processed_total",
		Help: "Total number of extraction jobs processed, by status",
	}, []string{"status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ytsl_stage_duration_seconds",
		Help:    "Duration of extraction pipeline stages",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
	}, []string{"stage"})

	FramesSampledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ytsl_frames_sampled_total",
		Help: "Total number of frames sampled across all jobs",
	})

	SlidesExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ytsl_slides_extracted_total",
		Help: "Total number of unique slides extracted across all jobs",
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ytsl_active_workers",
		Help: "Number of workers currently processing extraction jobs",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytsl_retry_total",
		Help: "Total number of job retries, by attempt number",
	}, []string{"attempt"})

	PeakMemoryBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ytsl_peak_memory_bytes",
		Help: "Peak resident memory observed during the most recent extraction run",
	})
)
