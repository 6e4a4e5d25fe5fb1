package rpcprovider

import (
	"context"
	"encoding/json"
	"testing"
)

type fakeTransport struct {
	name    string
	results []json.RawMessage
	errs    []error
	calls   int
}

func (f *fakeTransport) Name() string { return f.name }

func (f *fakeTransport) Send(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return f.results[len(f.results)-1], nil
}

func raw(s string) json.RawMessage { return json.RawMessage(s) }

// TestQuorumHitDespiteMismatch mirrors spec.md §8 scenario 1: N=3, Q=2,
// two required providers return block bodies differing only in `miner`
// (masked), so quorum succeeds without touching the third provider.
func TestQuorumHitDespiteMismatch(t *testing.T) {
	p1 := &fakeTransport{name: "p1", results: []json.RawMessage{raw(`{"number":"0x64","miner":"0xA"}`)}}
	p2 := &fakeTransport{name: "p2", results: []json.RawMessage{raw(`{"number":"0x64","miner":"0xB"}`)}}
	p3 := &fakeTransport{name: "p3", results: []json.RawMessage{raw(`{"number":"0x64","miner":"0xC"}`)}}

	q := NewQuorumProvider([]Transport{p1, p2, p3}, 2, nil)
	result, err := q.Send(context.Background(), "eth_getBlockByNumber", []interface{}{"0x64", false})
	if err != nil {
		t.Fatalf("expected quorum hit, got error: %v", err)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(result, &got); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if got["number"] != "0x64" {
		t.Fatalf("unexpected result: %v", got)
	}
	if p3.calls != 0 {
		t.Fatalf("expected third provider untouched on quorum hit, got %d calls", p3.calls)
	}
}

// TestQuorumMissOnDisagreement mirrors spec.md §8 scenario 2: N=3, Q=2,
// three distinct block numbers never reach quorum.
func TestQuorumMissOnDisagreement(t *testing.T) {
	p1 := &fakeTransport{name: "p1", results: []json.RawMessage{raw(`{"number":"0x64"}`)}}
	p2 := &fakeTransport{name: "p2", results: []json.RawMessage{raw(`{"number":"0x65"}`)}}
	p3 := &fakeTransport{name: "p3", results: []json.RawMessage{raw(`{"number":"0x66"}`)}}

	q := NewQuorumProvider([]Transport{p1, p2, p3}, 2, nil)
	_, err := q.Send(context.Background(), "eth_getBlockByNumber", []interface{}{"0x64", false})
	if err == nil {
		t.Fatal("expected quorum-not-met error, got nil")
	}
	var qerr *Error
	if !asError(err, &qerr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if qerr.Class != Quorum {
		t.Fatalf("expected Quorum classification, got %v", qerr.Class)
	}
}

// TestQuorumFallbackOnRequiredFailure verifies that a required-provider
// failure pops exactly one fallback, used at most once.
func TestQuorumFallbackOnRequiredFailure(t *testing.T) {
	p1 := &fakeTransport{name: "p1", errs: []error{NewTransportError("ERR_DOWN", "p1 down", nil)}}
	p2 := &fakeTransport{name: "p2", results: []json.RawMessage{raw(`{"number":"0x64"}`)}}
	fallback := &fakeTransport{name: "fallback", results: []json.RawMessage{raw(`{"number":"0x64"}`)}}

	q := NewQuorumProvider([]Transport{p1, p2, fallback}, 2, nil)
	result, err := q.Send(context.Background(), "eth_getBlockByNumber", []interface{}{"0x64", false})
	if err != nil {
		t.Fatalf("expected quorum hit via fallback, got error: %v", err)
	}
	if fallback.calls != 1 {
		t.Fatalf("expected fallback used exactly once, got %d calls", fallback.calls)
	}
	var got map[string]interface{}
	_ = json.Unmarshal(result, &got)
	if got["number"] != "0x64" {
		t.Fatalf("unexpected result: %v", got)
	}
}

// TestQuorumThresholdLatestTagIsOne checks the Q=1 carve-out for
// eth_getBlockByNumber("latest", ...) and eth_call(..., "latest").
func TestQuorumThresholdLatestTagIsOne(t *testing.T) {
	if got := QuorumThreshold("eth_getBlockByNumber", []interface{}{"latest", false}, 3); got != 1 {
		t.Fatalf("expected Q=1 for latest tag, got %d", got)
	}
	if got := QuorumThreshold("eth_getBlockByNumber", []interface{}{"0x64", false}, 3); got != 3 {
		t.Fatalf("expected Q=nodeQuorumThreshold for a numeric tag, got %d", got)
	}
	if got := QuorumThreshold("eth_call", []interface{}{map[string]interface{}{}, "latest"}, 3); got != 1 {
		t.Fatalf("expected Q=1 for eth_call at latest, got %d", got)
	}
	if got := QuorumThreshold("eth_getLogs", nil, 3); got != 3 {
		t.Fatalf("expected Q=nodeQuorumThreshold for eth_getLogs, got %d", got)
	}
}
