// Package metrics provides observability for the provider stack: per-host
// RPC call timings and success rates, cache hit/miss counters, and quorum
// outcome counters, exported in Prometheus text format.
package metrics

import (
	"time"
)

// ProviderMetrics defines the interface for recording and querying
// rpcprovider stack metrics.
//
// Contract:
//   - RecordRPCCall MUST be thread-safe (concurrent calls allowed)
//   - GetMetrics MUST return accurate aggregated metrics
//   - GetHealthStatus MUST report degraded status when threshold exceeded
//   - Export MUST return Prometheus-compatible metrics
type ProviderMetrics interface {
	// RecordRPCCall records a single upstream RPC call.
	RecordRPCCall(providerHost, method string, duration time.Duration, success bool)

	// RecordCacheOutcome records a cache hit or miss for a given method.
	RecordCacheOutcome(method string, hit bool)

	// RecordQuorumOutcome records whether a C4 quorum fan-out met quorum.
	RecordQuorumOutcome(method string, met bool, agreeingCount, totalAttempts int)

	// GetMetrics returns aggregated metrics across all recorded operations.
	GetMetrics() *AggregatedMetrics

	// GetProviderMetrics returns aggregated metrics for a specific
	// provider host, or nil if no data exists.
	GetProviderMetrics(providerHost string) *ProviderHostMetrics

	// GetHealthStatus reports the fleet's health as OK, Degraded or Down.
	GetHealthStatus() HealthStatus

	// Export returns metrics in Prometheus text format.
	Export() string

	// Reset clears all recorded metrics (useful for testing).
	Reset()
}

// AggregatedMetrics contains aggregated metrics across all providers.
type AggregatedMetrics struct {
	TotalRPCCalls      int64
	SuccessfulRPCCalls int64
	FailedRPCCalls     int64
	RPCSuccessRate     float64
	AvgRPCDuration     time.Duration
	LastSuccessfulCall time.Time

	CacheHits    int64
	CacheMisses  int64
	CacheHitRate float64

	QuorumMet    int64
	QuorumFailed int64
}

// ProviderHostMetrics contains metrics for a single upstream provider host.
type ProviderHostMetrics struct {
	ProviderHost       string
	TotalCalls         int64
	SuccessfulCalls    int64
	FailedCalls        int64
	SuccessRate        float64
	AvgDuration        time.Duration
	MinDuration        time.Duration
	MaxDuration        time.Duration
	LastSuccessfulCall time.Time
	LastFailedCall     time.Time
}

// HealthStatus represents the health status of the provider fleet.
type HealthStatus struct {
	Status    string
	Message   string
	CheckedAt time.Time

	LowSuccessRate  bool
	HighLatency     bool
	NoRecentSuccess bool
}

// IsHealthy returns true if status is "OK".
func (h *HealthStatus) IsHealthy() bool { return h.Status == "OK" }

// IsDegraded returns true if status is "Degraded".
func (h *HealthStatus) IsDegraded() bool { return h.Status == "Degraded" }

// IsDown returns true if status is "Down".
func (h *HealthStatus) IsDown() bool { return h.Status == "Down" }

// NoOpMetrics discards every recorded metric. Useful for tests or when
// metrics export is disabled.
type NoOpMetrics struct{}

func (n *NoOpMetrics) RecordRPCCall(providerHost, method string, duration time.Duration, success bool) {
}
func (n *NoOpMetrics) RecordCacheOutcome(method string, hit bool)                                 {}
func (n *NoOpMetrics) RecordQuorumOutcome(method string, met bool, agreeingCount, totalAttempts int) {}
func (n *NoOpMetrics) GetMetrics() *AggregatedMetrics                                              { return &AggregatedMetrics{} }
func (n *NoOpMetrics) GetProviderMetrics(providerHost string) *ProviderHostMetrics                 { return nil }
func (n *NoOpMetrics) GetHealthStatus() HealthStatus {
	return HealthStatus{Status: "OK", Message: "metrics disabled", CheckedAt: time.Now()}
}
func (n *NoOpMetrics) Export() string { return "" }
func (n *NoOpMetrics) Reset()         {}

var _ ProviderMetrics = (*NoOpMetrics)(nil)
