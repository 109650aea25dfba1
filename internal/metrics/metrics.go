// Package metrics exposes Prometheus instrumentation for the sn2n
// service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	conversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sn2n_conversions_total",
			Help: "Total document conversions by outcome",
		},
		[]string{"outcome"},
	)

	conversionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sn2n_conversion_duration_seconds",
			Help:    "Duration of HTML to block conversion",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sn2n_uploads_total",
			Help: "Total page uploads by outcome",
		},
		[]string{"outcome"},
	)

	blocksUploaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sn2n_blocks_uploaded_total",
		Help: "Total blocks written to Notion",
	})

	markersResolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sn2n_markers_resolved_total",
		Help: "Total deferred-block markers resolved during orchestration",
	})

	markersOrphaned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sn2n_markers_orphaned_total",
		Help: "Total markers whose host block was never found",
	})

	validationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sn2n_validations_total",
			Help: "Total page validations by status",
		},
		[]string{"status"},
	)

	notionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sn2n_notion_errors_total",
			Help: "Total Notion API errors by class",
		},
		[]string{"class"},
	)
)

// RecordConversion records one conversion attempt.
func RecordConversion(outcome string, seconds float64) {
	conversionsTotal.WithLabelValues(outcome).Inc()
	conversionDuration.WithLabelValues(outcome).Observe(seconds)
}

// RecordUpload records one upload attempt and the blocks it wrote.
func RecordUpload(outcome string, blocks int) {
	uploadsTotal.WithLabelValues(outcome).Inc()
	if blocks > 0 {
		blocksUploaded.Add(float64(blocks))
	}
}

// RecordMarkers records orchestration marker outcomes.
func RecordMarkers(resolved, orphaned int) {
	if resolved > 0 {
		markersResolved.Add(float64(resolved))
	}
	if orphaned > 0 {
		markersOrphaned.Add(float64(orphaned))
	}
}

// RecordValidation records one validation run.
func RecordValidation(status string) {
	validationsTotal.WithLabelValues(status).Inc()
}

// RecordNotionError records a classified Notion API error.
func RecordNotionError(class string) {
	notionErrors.WithLabelValues(class).Inc()
}
