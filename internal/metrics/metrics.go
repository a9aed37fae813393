package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	generations        *prometheus.CounterVec
	generationSeconds  *prometheus.HistogramVec
	creditsDebited     *prometheus.CounterVec
	parseDegraded      prometheus.Counter
	insufficientCredit prometheus.Counter
	storeFailures      *prometheus.CounterVec
	ledgerMismatches   prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paperforge_generations_total",
			Help: "LLM generation calls by provider, kind and status",
		}, []string{"provider", "kind", "status"}),
		generationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "paperforge_generation_seconds",
			Help:    "LLM generation latency",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		}, []string{"kind"}),
		creditsDebited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paperforge_credits_debited_total",
			Help: "Credits debited from user balances by operation kind",
		}, []string{"kind"}),
		parseDegraded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "paperforge_parse_degraded_total",
			Help: "Project parses that fell back to the raw-text project",
		}),
		insufficientCredit: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "paperforge_insufficient_credits_total",
			Help: "Requests rejected at the balance gate",
		}),
		storeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paperforge_store_failures_total",
			Help: "Best-effort writes that failed, by operation",
		}, []string{"op"}),
		ledgerMismatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "paperforge_ledger_mismatched_sessions",
			Help: "Sessions whose message cost differs from their credit log total at the last audit",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.generations, m.generationSeconds, m.creditsDebited, m.parseDegraded,
			m.insufficientCredit, m.storeFailures, m.ledgerMismatches)
	}
	return m
}

func (m *Metrics) ObserveGeneration(provider, kind, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if provider == "" {
		provider = "none"
	}
	m.generations.WithLabelValues(provider, kind, status).Inc()
	m.generationSeconds.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (m *Metrics) AddDebit(kind string, credits int64) {
	if m == nil || credits <= 0 {
		return
	}
	m.creditsDebited.WithLabelValues(kind).Add(float64(credits))
}

func (m *Metrics) ParseDegraded() {
	if m == nil {
		return
	}
	m.parseDegraded.Inc()
}

func (m *Metrics) InsufficientCredits() {
	if m == nil {
		return
	}
	m.insufficientCredit.Inc()
}

func (m *Metrics) StoreFailure(op string) {
	if m == nil {
		return
	}
	m.storeFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) SetLedgerMismatches(n int) {
	if m == nil {
		return
	}
	m.ledgerMismatches.Set(float64(n))
}
