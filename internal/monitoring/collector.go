package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/planvector/drawing-cli/internal/model"
	"github.com/planvector/drawing-cli/internal/store"
)

// MetricsSnapshot holds a point-in-time view of pipeline health.
type MetricsSnapshot struct {
	// Document metrics (within lookback window).
	DocumentsTotal    int     `json:"documents_total"`
	DocumentsComplete int     `json:"documents_complete"`
	DocumentsFailed   int     `json:"documents_failed"`
	DocumentsInFlight int     `json:"documents_in_flight"`
	DocumentFailRate  float64 `json:"document_fail_rate"`

	// Analysis degradation metrics (within lookback window). Mock means
	// the reference service was unreachable and local data stood in;
	// fallback means the model call failed and the heuristic scan stood in.
	AnalysesTotal    int     `json:"analyses_total"`
	AnalysesMock     int     `json:"analyses_mock"`
	AnalysesFallback int     `json:"analyses_fallback"`
	MockRate         float64 `json:"mock_rate"`
	FallbackRate     float64 `json:"fallback_rate"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from the store.
type Collector struct {
	store store.Store
}

// NewCollector creates a new metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot of pipeline metrics over the given lookback
// window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}

	cutoff := time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)

	docs, err := c.store.ListDocuments(ctx, store.DocumentFilter{
		CreatedAfter: cutoff,
		Limit:        10000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list documents")
	}

	snap.DocumentsTotal = len(docs)
	for _, d := range docs {
		switch d.Status {
		case model.DocumentStatusComplete:
			snap.DocumentsComplete++
		case model.DocumentStatusFailed:
			snap.DocumentsFailed++
		default:
			snap.DocumentsInFlight++
		}
	}
	if finished := snap.DocumentsComplete + snap.DocumentsFailed; finished > 0 {
		snap.DocumentFailRate = float64(snap.DocumentsFailed) / float64(finished)
	}

	analyses, err := c.store.ListAnalyses(ctx, store.AnalysisFilter{
		CreatedAfter: cutoff,
		Limit:        10000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list analyses")
	}

	snap.AnalysesTotal = len(analyses)
	for _, a := range analyses {
		if a.IsMock {
			snap.AnalysesMock++
		}
		if a.Fallback {
			snap.AnalysesFallback++
		}
	}
	if snap.AnalysesTotal > 0 {
		snap.MockRate = float64(snap.AnalysesMock) / float64(snap.AnalysesTotal)
		snap.FallbackRate = float64(snap.AnalysesFallback) / float64(snap.AnalysesTotal)
	}

	return snap, nil
}
