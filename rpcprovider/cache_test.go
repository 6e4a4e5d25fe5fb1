package rpcprovider

import (
	"context"
	"encoding/json"
	"testing"
)

type fixedHead struct{ n uint64 }

func (f fixedHead) HeadBlockNumber(ctx context.Context) (uint64, error) { return f.n, nil }

// TestCacheKeyFormat checks the persisted key shape of spec.md §6:
// "{namespace},{host},{chainId}:{method},{json(params)}".
func TestCacheKeyFormat(t *testing.T) {
	upstream := &fakeTransport{name: "rpc.example.com", results: []json.RawMessage{raw(`"0x1"`)}}
	c := NewCacheProvider(upstream, NewMemoryCacheStore(), fixedHead{n: 1000}, DefaultCacheDistanceConfig(), "relay-bridge", 1)

	key, err := c.cacheKey("eth_getBlockByNumber", []interface{}{"0x1", false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `relay-bridge,rpc.example.com,1:eth_getBlockByNumber,["0x1",false]`
	if key != want {
		t.Fatalf("cache key mismatch:\n got:  %s\n want: %s", key, want)
	}
}

// TestCacheDistanceDecision exercises the three buckets of spec.md §4.2:
// deep-in-history => NoTTL, mid-range => WithTTL, near head => NoCache.
func TestCacheDistanceDecision(t *testing.T) {
	cfg := DefaultCacheDistanceConfig()

	if ct, _ := cfg.decide(1000, 800); ct != NoTTL {
		t.Fatalf("expected NoTTL far from head, got %v", ct)
	}
	if ct, ttl := cfg.decide(1000, 980); ct != WithTTL || ttl <= 0 {
		t.Fatalf("expected WithTTL with positive jittered ttl, got %v/%v", ct, ttl)
	}
	if ct, _ := cfg.decide(1000, 995); ct != NoCache {
		t.Fatalf("expected NoCache near head, got %v", ct)
	}
}

// TestCacheHitAvoidsUpstream verifies a cache hit never reaches the
// upstream transport on the second call for an identical request.
func TestCacheHitAvoidsUpstream(t *testing.T) {
	upstream := &fakeTransport{name: "rpc.example.com", results: []json.RawMessage{raw(`{"number":"0x1"}`)}}
	c := NewCacheProvider(upstream, NewMemoryCacheStore(), fixedHead{n: 10000}, DefaultCacheDistanceConfig(), "relay-bridge", 1)

	ctx := context.Background()
	params := []interface{}{"0x1", false}

	first, err := c.Send(ctx, "eth_getBlockByNumber", params)
	if err != nil {
		t.Fatalf("unexpected error on first call: %v", err)
	}
	second, err := c.Send(ctx, "eth_getBlockByNumber", params)
	if err != nil {
		t.Fatalf("unexpected error on second call: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("cached result mismatch: %s vs %s", first, second)
	}
	if upstream.calls != 1 {
		t.Fatalf("expected exactly one upstream call, got %d", upstream.calls)
	}
}

// TestCacheSkipsNearHead verifies a block close to head is never cached
// and always reaches the upstream.
func TestCacheSkipsNearHead(t *testing.T) {
	upstream := &fakeTransport{name: "rpc.example.com", results: []json.RawMessage{raw(`{"number":"0x3e8"}`)}}
	c := NewCacheProvider(upstream, NewMemoryCacheStore(), fixedHead{n: 1000}, DefaultCacheDistanceConfig(), "relay-bridge", 1)

	ctx := context.Background()
	params := []interface{}{"0x3e8", false}

	if _, err := c.Send(ctx, "eth_getBlockByNumber", params); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.Send(ctx, "eth_getBlockByNumber", params); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if upstream.calls != 2 {
		t.Fatalf("expected both calls to reach upstream, got %d", upstream.calls)
	}
}
