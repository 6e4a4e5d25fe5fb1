package rpcprovider

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

// TestRetrySucceedsAfterTransientFailures checks that a retryable error is
// retried up to the configured budget and a later success is returned.
func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	upstream := &fakeTransport{
		name: "flaky.example.com",
		errs: []error{
			NewTransportError("ERR_HTTP_DO", "connection reset", nil),
			NewTransportError("ERR_HTTP_DO", "connection reset", nil),
		},
		results: []json.RawMessage{nil, nil, raw(`"0x1"`)},
	}
	r := NewRetryProvider(upstream, 2, time.Millisecond)

	result, err := r.Send(context.Background(), "eth_blockNumber", nil)
	if err != nil {
		t.Fatalf("expected eventual success, got error: %v", err)
	}
	if string(result) != `"0x1"` {
		t.Fatalf("unexpected result: %s", result)
	}
	if upstream.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", upstream.calls)
	}
}

// TestRetryFailsFastOnRevert checks that eth_call with a "revert" message
// does not spend the full retry budget.
func TestRetryFailsFastOnRevert(t *testing.T) {
	revertErr := classifyProtocolError("eth_call", &RPCError{Code: -32000, Message: "execution reverted: insufficient balance"})
	upstream := &fakeTransport{name: "node.example.com", errs: []error{revertErr, revertErr, revertErr}}
	r := NewRetryProvider(upstream, 5, time.Millisecond)

	_, err := r.Send(context.Background(), "eth_call", []interface{}{map[string]interface{}{}, "latest"})
	if err == nil {
		t.Fatal("expected a fail-fast error")
	}
	if upstream.calls != 1 {
		t.Fatalf("expected exactly 1 attempt on fail-fast, got %d", upstream.calls)
	}
}

// TestRetryTreatsNullAsInvalidExceptReceipt checks the null-result carve
// out of spec.md §4.3.
func TestRetryTreatsNullAsInvalidExceptReceipt(t *testing.T) {
	upstream := &fakeTransport{name: "node.example.com", results: []json.RawMessage{raw(`null`)}}
	r := NewRetryProvider(upstream, 1, time.Millisecond)

	result, err := r.Send(context.Background(), "eth_getTransactionReceipt", []interface{}{"0xabc"})
	if err != nil {
		t.Fatalf("expected null receipt to be accepted as pending, got error: %v", err)
	}
	if string(result) != "null" {
		t.Fatalf("expected null result passthrough, got %s", result)
	}
	if upstream.calls != 1 {
		t.Fatalf("expected exactly 1 attempt for receipt null, got %d", upstream.calls)
	}
}

// TestRetryRejectsNullForOtherMethods checks that a null result for a
// non-receipt method is retried as invalid.
func TestRetryRejectsNullForOtherMethods(t *testing.T) {
	upstream := &fakeTransport{name: "node.example.com", results: []json.RawMessage{raw(`null`), raw(`null`)}}
	r := NewRetryProvider(upstream, 1, time.Millisecond)

	_, err := r.Send(context.Background(), "eth_getBlockByNumber", []interface{}{"0x1", false})
	if err == nil {
		t.Fatal("expected a null-result error after exhausting retries")
	}
	if upstream.calls != 2 {
		t.Fatalf("expected both attempts to be spent, got %d", upstream.calls)
	}
}
