package metrics

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// PrometheusMetrics implements ProviderMetrics with Prometheus-compatible
// export. Thread-safe via sync.RWMutex for concurrent callers.
type PrometheusMetrics struct {
	mu sync.RWMutex

	hostStats map[string]*hostStats

	totalRPCCalls      int64
	successfulRPCCalls int64
	failedRPCCalls     int64
	lastSuccessfulCall time.Time

	cacheHits   int64
	cacheMisses int64

	quorumMet    int64
	quorumFailed int64
}

type hostStats struct {
	totalCalls         int64
	successfulCalls    int64
	failedCalls        int64
	totalDuration      time.Duration
	minDuration        time.Duration
	maxDuration        time.Duration
	lastSuccessfulCall time.Time
	lastFailedCall     time.Time
}

// NewPrometheusMetrics creates a new Prometheus-compatible metrics recorder.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{hostStats: make(map[string]*hostStats)}
}

// RecordRPCCall records a single upstream RPC call.
func (p *PrometheusMetrics) RecordRPCCall(providerHost, method string, duration time.Duration, success bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.totalRPCCalls++
	if success {
		p.successfulRPCCalls++
		p.lastSuccessfulCall = time.Now()
	} else {
		p.failedRPCCalls++
	}

	stats, exists := p.hostStats[providerHost]
	if !exists {
		stats = &hostStats{minDuration: duration, maxDuration: duration}
		p.hostStats[providerHost] = stats
	}

	stats.totalCalls++
	stats.totalDuration += duration
	if success {
		stats.successfulCalls++
		stats.lastSuccessfulCall = time.Now()
	} else {
		stats.failedCalls++
		stats.lastFailedCall = time.Now()
	}
	if duration < stats.minDuration || stats.minDuration == 0 {
		stats.minDuration = duration
	}
	if duration > stats.maxDuration {
		stats.maxDuration = duration
	}
}

// RecordCacheOutcome records a cache hit or miss for a given method.
func (p *PrometheusMetrics) RecordCacheOutcome(method string, hit bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if hit {
		p.cacheHits++
	} else {
		p.cacheMisses++
	}
}

// RecordQuorumOutcome records whether a quorum fan-out met quorum.
func (p *PrometheusMetrics) RecordQuorumOutcome(method string, met bool, agreeingCount, totalAttempts int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if met {
		p.quorumMet++
	} else {
		p.quorumFailed++
	}
}

// GetMetrics returns aggregated metrics for all recorded operations.
func (p *PrometheusMetrics) GetMetrics() *AggregatedMetrics {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var totalDuration time.Duration
	for _, stats := range p.hostStats {
		totalDuration += stats.totalDuration
	}

	rpcSuccessRate := 0.0
	if p.totalRPCCalls > 0 {
		rpcSuccessRate = float64(p.successfulRPCCalls) / float64(p.totalRPCCalls)
	}
	avgDuration := time.Duration(0)
	if p.totalRPCCalls > 0 {
		avgDuration = totalDuration / time.Duration(p.totalRPCCalls)
	}

	cacheHitRate := 0.0
	if total := p.cacheHits + p.cacheMisses; total > 0 {
		cacheHitRate = float64(p.cacheHits) / float64(total)
	}

	return &AggregatedMetrics{
		TotalRPCCalls:      p.totalRPCCalls,
		SuccessfulRPCCalls: p.successfulRPCCalls,
		FailedRPCCalls:     p.failedRPCCalls,
		RPCSuccessRate:     rpcSuccessRate,
		AvgRPCDuration:     avgDuration,
		LastSuccessfulCall: p.lastSuccessfulCall,
		CacheHits:          p.cacheHits,
		CacheMisses:        p.cacheMisses,
		CacheHitRate:       cacheHitRate,
		QuorumMet:          p.quorumMet,
		QuorumFailed:       p.quorumFailed,
	}
}

// GetProviderMetrics returns aggregated metrics for a specific provider
// host, or nil if no data exists.
func (p *PrometheusMetrics) GetProviderMetrics(providerHost string) *ProviderHostMetrics {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats, exists := p.hostStats[providerHost]
	if !exists {
		return nil
	}

	successRate := 0.0
	if stats.totalCalls > 0 {
		successRate = float64(stats.successfulCalls) / float64(stats.totalCalls)
	}
	avgDuration := time.Duration(0)
	if stats.totalCalls > 0 {
		avgDuration = stats.totalDuration / time.Duration(stats.totalCalls)
	}

	return &ProviderHostMetrics{
		ProviderHost:       providerHost,
		TotalCalls:         stats.totalCalls,
		SuccessfulCalls:    stats.successfulCalls,
		FailedCalls:        stats.failedCalls,
		SuccessRate:        successRate,
		AvgDuration:        avgDuration,
		MinDuration:        stats.minDuration,
		MaxDuration:        stats.maxDuration,
		LastSuccessfulCall: stats.lastSuccessfulCall,
		LastFailedCall:     stats.lastFailedCall,
	}
}

// GetHealthStatus reports OK or Degraded using fixed 90%-success,
// 5-second-latency, 5-minute-staleness thresholds across the whole fleet.
// It never reports Down.
func (p *PrometheusMetrics) GetHealthStatus() HealthStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	status := HealthStatus{CheckedAt: time.Now()}

	successRate := 0.0
	if p.totalRPCCalls > 0 {
		successRate = float64(p.successfulRPCCalls) / float64(p.totalRPCCalls)
	}

	var totalDuration time.Duration
	for _, stats := range p.hostStats {
		totalDuration += stats.totalDuration
	}
	avgDuration := time.Duration(0)
	if p.totalRPCCalls > 0 {
		avgDuration = totalDuration / time.Duration(p.totalRPCCalls)
	}

	status.LowSuccessRate = successRate < 0.90 && p.totalRPCCalls > 0
	status.HighLatency = avgDuration > 5*time.Second
	status.NoRecentSuccess = !p.lastSuccessfulCall.IsZero() && time.Since(p.lastSuccessfulCall) > 5*time.Minute

	if p.totalRPCCalls == 0 {
		status.Status = "OK"
		status.Message = "no RPC calls recorded yet"
		return status
	}

	if status.LowSuccessRate || status.HighLatency || status.NoRecentSuccess {
		status.Status = "Degraded"
		var messages []string
		if status.LowSuccessRate {
			messages = append(messages, fmt.Sprintf("low success rate (%.1f%%)", successRate*100))
		}
		if status.HighLatency {
			messages = append(messages, fmt.Sprintf("high latency (%v)", avgDuration))
		}
		if status.NoRecentSuccess {
			messages = append(messages, fmt.Sprintf("no recent success (%v ago)", time.Since(p.lastSuccessfulCall)))
		}
		status.Message = strings.Join(messages, ", ")
		return status
	}

	status.Status = "OK"
	status.Message = fmt.Sprintf("success rate: %.1f%%, avg latency: %v", successRate*100, avgDuration)
	return status
}

// Export returns metrics in Prometheus text format.
func (p *PrometheusMetrics) Export() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var sb strings.Builder

	sb.WriteString("# HELP rpcprovider_calls_total Total number of upstream RPC calls\n")
	sb.WriteString("# TYPE rpcprovider_calls_total counter\n")
	for host, stats := range p.hostStats {
		sb.WriteString(fmt.Sprintf("rpcprovider_calls_total{providerHost=%q,status=\"success\"} %d\n", host, stats.successfulCalls))
		sb.WriteString(fmt.Sprintf("rpcprovider_calls_total{providerHost=%q,status=\"failure\"} %d\n", host, stats.failedCalls))
	}
	sb.WriteString("\n")

	sb.WriteString("# HELP rpcprovider_call_duration_seconds Upstream RPC call duration in seconds\n")
	sb.WriteString("# TYPE rpcprovider_call_duration_seconds summary\n")
	for host, stats := range p.hostStats {
		if stats.totalCalls > 0 {
			avgSec := stats.totalDuration.Seconds() / float64(stats.totalCalls)
			sb.WriteString(fmt.Sprintf("rpcprovider_call_duration_seconds{providerHost=%q,quantile=\"avg\"} %.6f\n", host, avgSec))
			sb.WriteString(fmt.Sprintf("rpcprovider_call_duration_seconds{providerHost=%q,quantile=\"min\"} %.6f\n", host, stats.minDuration.Seconds()))
			sb.WriteString(fmt.Sprintf("rpcprovider_call_duration_seconds{providerHost=%q,quantile=\"max\"} %.6f\n", host, stats.maxDuration.Seconds()))
		}
	}
	sb.WriteString("\n")

	sb.WriteString("# HELP rpcprovider_cache_outcomes_total Cache hits and misses\n")
	sb.WriteString("# TYPE rpcprovider_cache_outcomes_total counter\n")
	sb.WriteString(fmt.Sprintf("rpcprovider_cache_outcomes_total{outcome=\"hit\"} %d\n", p.cacheHits))
	sb.WriteString(fmt.Sprintf("rpcprovider_cache_outcomes_total{outcome=\"miss\"} %d\n", p.cacheMisses))
	sb.WriteString("\n")

	sb.WriteString("# HELP rpcprovider_quorum_outcomes_total Quorum fan-out outcomes\n")
	sb.WriteString("# TYPE rpcprovider_quorum_outcomes_total counter\n")
	sb.WriteString(fmt.Sprintf("rpcprovider_quorum_outcomes_total{outcome=\"met\"} %d\n", p.quorumMet))
	sb.WriteString(fmt.Sprintf("rpcprovider_quorum_outcomes_total{outcome=\"failed\"} %d\n", p.quorumFailed))

	return sb.String()
}

// Reset clears all recorded metrics.
func (p *PrometheusMetrics) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hostStats = make(map[string]*hostStats)
	p.totalRPCCalls, p.successfulRPCCalls, p.failedRPCCalls = 0, 0, 0
	p.lastSuccessfulCall = time.Time{}
	p.cacheHits, p.cacheMisses = 0, 0
	p.quorumMet, p.quorumFailed = 0, 0
}

var _ ProviderMetrics = (*PrometheusMetrics)(nil)
