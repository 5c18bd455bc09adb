package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radiance_runs_total",
		Help: "Total number of extraction runs, by final status",
	}, []string{"status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "radiance_stage_duration_seconds",
		Help:    "Duration of extraction and analysis stages",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 30, 120, 600, 1800},
	}, []string{"stage"})

	FramesProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "radiance_frames_processed_total",
		Help: "Total number of frames decoded and sampled",
	})

	AnalysisWarningsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radiance_analysis_warnings_total",
		Help: "Total number of analysis warnings, by kind",
	}, []string{"kind"})
)
