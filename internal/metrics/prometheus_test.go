package metrics

import (
	"strings"
	"testing"
	"time"
)

func TestRecordRPCCallAggregatesPerHost(t *testing.T) {
	m := NewPrometheusMetrics()
	m.RecordRPCCall("alchemy.example.com", "eth_call", 10*time.Millisecond, true)
	m.RecordRPCCall("alchemy.example.com", "eth_call", 20*time.Millisecond, true)
	m.RecordRPCCall("alchemy.example.com", "eth_call", 5*time.Millisecond, false)

	host := m.GetProviderMetrics("alchemy.example.com")
	if host == nil {
		t.Fatal("expected host metrics to exist")
	}
	if host.TotalCalls != 3 || host.SuccessfulCalls != 2 || host.FailedCalls != 1 {
		t.Fatalf("unexpected call counts: %+v", host)
	}
	if host.MinDuration != 5*time.Millisecond || host.MaxDuration != 20*time.Millisecond {
		t.Fatalf("unexpected min/max duration: %+v", host)
	}
}

func TestGetProviderMetricsReturnsNilForUnknownHost(t *testing.T) {
	m := NewPrometheusMetrics()
	if m.GetProviderMetrics("unknown.example.com") != nil {
		t.Fatal("expected nil for an unrecorded host")
	}
}

func TestHealthStatusDegradesOnLowSuccessRate(t *testing.T) {
	m := NewPrometheusMetrics()
	for i := 0; i < 10; i++ {
		m.RecordRPCCall("host", "eth_call", time.Millisecond, i < 5)
	}
	status := m.GetHealthStatus()
	if status.Status != "Degraded" {
		t.Fatalf("expected degraded status at 50%% success, got %s", status.Status)
	}
	if !status.LowSuccessRate {
		t.Fatal("expected LowSuccessRate flag set")
	}
}

func TestHealthStatusOKWithNoCalls(t *testing.T) {
	m := NewPrometheusMetrics()
	status := m.GetHealthStatus()
	if status.Status != "OK" {
		t.Fatalf("expected OK with no calls recorded, got %s", status.Status)
	}
}

func TestCacheAndQuorumOutcomeCounters(t *testing.T) {
	m := NewPrometheusMetrics()
	m.RecordCacheOutcome("eth_getBlockByNumber", true)
	m.RecordCacheOutcome("eth_getBlockByNumber", false)
	m.RecordQuorumOutcome("eth_getLogs", true, 2, 2)
	m.RecordQuorumOutcome("eth_getLogs", false, 1, 3)

	agg := m.GetMetrics()
	if agg.CacheHits != 1 || agg.CacheMisses != 1 {
		t.Fatalf("unexpected cache counters: %+v", agg)
	}
	if agg.QuorumMet != 1 || agg.QuorumFailed != 1 {
		t.Fatalf("unexpected quorum counters: %+v", agg)
	}
}

func TestExportProducesPrometheusTextFormat(t *testing.T) {
	m := NewPrometheusMetrics()
	m.RecordRPCCall("alchemy.example.com", "eth_call", time.Millisecond, true)
	m.RecordCacheOutcome("eth_call", true)
	m.RecordQuorumOutcome("eth_call", true, 2, 2)

	out := m.Export()
	for _, want := range []string{
		"# HELP rpcprovider_calls_total",
		"rpcprovider_calls_total{providerHost=\"alchemy.example.com\",status=\"success\"} 1",
		"rpcprovider_cache_outcomes_total{outcome=\"hit\"} 1",
		"rpcprovider_quorum_outcomes_total{outcome=\"met\"} 1",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected export to contain %q, got:\n%s", want, out)
		}
	}
}

func TestResetClearsAllCounters(t *testing.T) {
	m := NewPrometheusMetrics()
	m.RecordRPCCall("host", "eth_call", time.Millisecond, true)
	m.Reset()

	agg := m.GetMetrics()
	if agg.TotalRPCCalls != 0 {
		t.Fatalf("expected reset counters, got %+v", agg)
	}
	if m.GetProviderMetrics("host") != nil {
		t.Fatal("expected host metrics cleared after reset")
	}
}

func TestNoOpMetricsSatisfiesInterface(t *testing.T) {
	var metrics ProviderMetrics = &NoOpMetrics{}
	metrics.RecordRPCCall("host", "eth_call", time.Millisecond, true)
	if metrics.GetHealthStatus().Status != "OK" {
		t.Fatal("expected no-op metrics to always report OK")
	}
}
