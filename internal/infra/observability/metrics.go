package observability

import (
	"time"

	"github.com/boddenberg/factoring-settlement-go/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Rejection reasons used as the "reason" label of settlement_rejections_total.
const (
	ReasonInvalidAmount   = "invalid_amount"
	ReasonInvalidSchedule = "invalid_schedule"
	ReasonInvalidDate     = "invalid_date_range"
	ReasonUnsupportedBank = "unsupported_bank"
	ReasonEncoding        = "encoding_invariant"
	ReasonValidation      = "validation"
	ReasonOther           = "other"
)

// Metrics holds all Prometheus metrics for the settlement service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	operationDuration *prometheus.HistogramVec
	instrumentsIssued *prometheus.CounterVec
	quotesComputed    *prometheus.CounterVec
	rejections        *prometheus.CounterVec
	externalErrors    *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "settlement_operation_duration_seconds",
				Help:    "Duration of settlement operations.",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"operation"},
		),
		instrumentsIssued: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settlement_instruments_issued_total",
				Help: "Bank slips issued, by bank code.",
			},
			[]string{"bank"},
		),
		quotesComputed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settlement_quotes_total",
				Help: "Deságio and buyback quotes computed.",
			},
			[]string{"kind"},
		),
		rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settlement_rejections_total",
				Help: "Requests rejected by calculation or encoding rules.",
			},
			[]string{"reason"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settlement_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settlement_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settlement_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
	}
}

// RecordDuration records the duration of an operation.
func (m *Metrics) RecordDuration(operation string, d time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrIssued counts one issued instrument for bank.
func (m *Metrics) IncrIssued(bank domain.BankCode) {
	m.instrumentsIssued.WithLabelValues(string(bank)).Inc()
}

// IncrQuote counts one computed quote of kind ("desagio" or "buyback").
func (m *Metrics) IncrQuote(kind string) {
	m.quotesComputed.WithLabelValues(kind).Inc()
}

// IncrRejection counts one rejected request.
func (m *Metrics) IncrRejection(reason string) {
	m.rejections.WithLabelValues(reason).Inc()
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// GetSettlementSnapshot returns the cumulative counters for the
// GET /v1/metrics/settlement endpoint.
func (m *Metrics) GetSettlementSnapshot() *domain.SettlementMetrics {
	issued := make(map[string]int64)
	for bank, v := range collectByLabel(m.instrumentsIssued, "bank") {
		issued[bank] = int64(v)
	}

	var quotes, rejections float64
	for _, v := range collectByLabel(m.quotesComputed, "kind") {
		quotes += v
	}
	for _, v := range collectByLabel(m.rejections, "reason") {
		rejections += v
	}

	hits := getCounterValue(m.cacheHits, "instrument")
	misses := getCounterValue(m.cacheMisses, "instrument")
	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.SettlementMetrics{
		InstrumentsIssued: issued,
		QuotesComputed:    int64(quotes),
		Rejections:        int64(rejections),
		SequenceErrors:    int64(getCounterValue(m.externalErrors, "sequence")),
		CacheHitRate:      hitRate,
		Period:            "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// collectByLabel reads every child of cv, keyed by the value of label.
func collectByLabel(cv *prometheus.CounterVec, label string) map[string]float64 {
	ch := make(chan prometheus.Metric)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	out := make(map[string]float64)
	for metric := range ch {
		pb := &dto.Metric{}
		if err := metric.Write(pb); err != nil || pb.Counter == nil {
			continue
		}
		for _, lp := range pb.GetLabel() {
			if lp.GetName() == label {
				out[lp.GetValue()] += pb.Counter.GetValue()
			}
		}
	}
	return out
}
