package monitoring

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ItemsIntegrated    prometheus.Counter
	ConflictWalkLength prometheus.Histogram
	DiffsApplied       prometheus.Counter
	DiffEncodedBytes   prometheus.Histogram
	DeletesApplied     prometheus.Counter
	TxRollbacks        prometheus.Counter
	PendingDepth       prometheus.Gauge
	MovesDropped       prometheus.Counter
}

var (
	defaultMetrics *Metrics
	defaultOnce    sync.Once
)

// Default returns the process-wide metrics registry. Metrics register with
// the global prometheus registry exactly once no matter how many documents a
// process holds.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = newMetrics()
	})
	return defaultMetrics
}

func newMetrics() *Metrics {
	return &Metrics{
		ItemsIntegrated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nitro_items_integrated_total",
			Help: "Total number of items integrated into document stores",
		}),
		ConflictWalkLength: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "nitro_conflict_walk_length",
			Help:    "Items visited per conflict walk during integration",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		DiffsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nitro_diffs_applied_total",
			Help: "Total number of diffs applied to document stores",
		}),
		DiffEncodedBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "nitro_diff_encoded_bytes",
			Help:    "Size distribution of encoded diffs",
			Buckets: prometheus.ExponentialBuckets(64, 4, 10),
		}),
		DeletesApplied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nitro_deletes_applied_total",
			Help: "Total number of delete operations applied",
		}),
		TxRollbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nitro_tx_rollbacks_total",
			Help: "Total number of transactions rolled back",
		}),
		PendingDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "nitro_pending_depth",
			Help: "Operations waiting on unmet dependencies",
		}),
		MovesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nitro_moves_dropped_total",
			Help: "Total number of move operations dropped by cycle prevention",
		}),
	}
}
