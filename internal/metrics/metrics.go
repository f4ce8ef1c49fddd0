// Package metrics holds the agent's Prometheus collectors. Collectors are
// registered on the default registry and exposed on GET /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeStored  = "stored"
	OutcomeDedup   = "dedup"
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

var (
	blobPutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelforge_blob_puts_total",
		Help: "Blob store puts by outcome",
	}, []string{"outcome"}) // outcome=stored|dedup|error

	blobBytesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reelforge_blob_bytes_written_total",
		Help: "Bytes written to the blob store (dedup hits excluded)",
	})

	schedulesComputed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reelforge_schedules_computed_total",
		Help: "Timeline schedules computed",
	})

	scheduleSegments = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reelforge_schedule_segments",
		Help:    "Segments per computed schedule",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
	})

	projectOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelforge_project_ops_total",
		Help: "Project manifest operations by op and outcome",
	}, []string{"op", "outcome"}) // op=save|load|list|delete

	restoreSkippedItems = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reelforge_restore_skipped_items_total",
		Help: "Items dropped on restore because their media was missing",
	})

	renderSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelforge_render_submissions_total",
		Help: "Render job submissions by outcome",
	}, []string{"outcome"})

	previewSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reelforge_preview_sessions",
		Help: "Open preview tracker sessions",
	})
)

func IncBlobPut(outcome string) { blobPutsTotal.WithLabelValues(outcome).Inc() }

func AddBlobBytes(n int) {
	if n > 0 {
		blobBytesWritten.Add(float64(n))
	}
}

func RecordSchedule(segments int) {
	schedulesComputed.Inc()
	scheduleSegments.Observe(float64(segments))
}

// RecordProjectOp counts a manifest operation; a nil err is a success.
func RecordProjectOp(op string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	projectOpsTotal.WithLabelValues(op, outcome).Inc()
}

func AddRestoreSkipped(n int) {
	if n > 0 {
		restoreSkippedItems.Add(float64(n))
	}
}

func RecordRenderSubmission(err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	renderSubmissions.WithLabelValues(outcome).Inc()
}

func SetPreviewSessions(n int) { previewSessions.Set(float64(n)) }
