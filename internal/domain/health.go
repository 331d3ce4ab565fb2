package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// SettlementMetrics is returned by GET /v1/metrics/settlement.
type SettlementMetrics struct {
	InstrumentsIssued map[string]int64 `json:"instrumentsIssued"` // by bank code
	QuotesComputed    int64            `json:"quotesComputed"`
	Rejections        int64            `json:"rejections"`
	SequenceErrors    int64            `json:"sequenceErrors"`
	CacheHitRate      float64          `json:"cacheHitRate"`
	Period            string           `json:"period"`
}
