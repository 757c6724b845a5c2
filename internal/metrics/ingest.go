// Package metrics exposes prometheus collectors for the ingestion pipeline
// and the HTTP layer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestStageDuration tracks how long each pipeline stage takes.
	IngestStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tubely_ingest_stage_duration_seconds",
		Help:    "Duration of video ingestion stages",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	}, []string{"stage"})

	// IngestTotal counts ingestions by outcome ("ok" or an error kind).
	IngestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubely_ingest_total",
		Help: "Total number of video ingestions by result",
	}, []string{"result"})

	// IngestDuration tracks end-to-end ingestion time.
	IngestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tubely_ingest_duration_seconds",
		Help:    "End-to-end video ingestion latency",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"result"})

	ThumbnailUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubely_thumbnail_uploads_total",
		Help: "Total number of thumbnail uploads by result",
	}, []string{"result"})
)

// Ingest records pipeline observations into the package collectors.
type Ingest struct{}

func (Ingest) ObserveStage(stage string, d time.Duration) {
	IngestStageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (Ingest) ObserveResult(result string, d time.Duration) {
	IngestTotal.WithLabelValues(result).Inc()
	IngestDuration.WithLabelValues(result).Observe(d.Seconds())
}

// ObserveThumbnail counts a thumbnail upload outcome.
func ObserveThumbnail(result string) {
	ThumbnailUploads.WithLabelValues(result).Inc()
}
