package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultCommitted = "committed"
	resultNoop      = "noop"
	resultAborted   = "aborted"
	resultExhausted = "exhausted"
)

// Metrics holds the Prometheus collectors updated by a Ledger. A nil *Metrics
// records nothing.
type Metrics struct {
	Commits        *prometheus.CounterVec
	CasConflicts   prometheus.Counter
	CommitAttempts prometheus.Histogram
	HeadVersion    prometheus.Gauge
}

// NewMetrics registers the ledger collectors with reg under namespace.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Commits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_total",
			Help:      "Number of commit calls by result (committed, noop, aborted, exhausted).",
		}, []string{"result"}),
		CasConflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cas_conflicts_total",
			Help:      "Number of commit attempts that lost the head compare-and-swap.",
		}),
		CommitAttempts: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "commit_attempts",
			Help:      "Attempts taken per commit call.",
			Buckets:   []float64{1, 2, 3, 4, 6, 8, 16, 32},
		}),
		HeadVersion: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "head_version",
			Help:      "Version of the current head snapshot.",
		}),
	}
}

func (m *Metrics) observe(result string, attempts int) {
	if m == nil {
		return
	}
	m.Commits.WithLabelValues(result).Inc()
	m.CommitAttempts.Observe(float64(attempts))
}

func (m *Metrics) conflict() {
	if m == nil {
		return
	}
	m.CasConflicts.Inc()
}

func (m *Metrics) published(version uint64) {
	if m == nil {
		return
	}
	m.HeadVersion.Set(float64(version))
}
