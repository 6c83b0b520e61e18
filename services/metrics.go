package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	datasetsLoaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "footfall_datasets_loaded_total",
		Help: "Total number of CSV datasets run through the pipeline.",
	})
	datasetsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "footfall_datasets_failed_total",
		Help: "Total number of CSV datasets rejected by the pipeline.",
	})
	rowsRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "footfall_rows_read_total",
		Help: "Total number of raw rows read.",
	})
	rowsKept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "footfall_rows_kept_total",
		Help: "Total number of rows retained after cleaning.",
	})
	pipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "footfall_pipeline_duration_seconds",
		Help:    "Duration of load, clean and enrich for one dataset.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0},
	})
	predictionsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "footfall_predictions_generated_total",
		Help: "Total number of forecasts computed.",
	})
	predictionsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "footfall_predictions_failed_total",
		Help: "Total number of forecast failures by reason.",
	}, []string{"reason"})
	viewCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "footfall_view_cache_hits_total",
		Help: "Upload view lookups served from Redis.",
	})
	viewCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "footfall_view_cache_misses_total",
		Help: "Upload view lookups computed from the CSV.",
	})
)

// ObservePrediction records the outcome of one forecast.
func ObservePrediction(err error) {
	if err == nil {
		predictionsGenerated.Inc()
		return
	}
	predictionsFailed.WithLabelValues(ErrorReason(err)).Inc()
}
