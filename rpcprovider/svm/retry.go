package svm

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/relay-bridge/sdk-core/rpcprovider"
)

// classifyProtocolError applies the Solana fail-fast rule of spec.md §4.3:
// getBlock/getBlockTime fail fast on "slot skipped" or "long-term storage
// slot skipped" error messages, since retrying a permanently-skipped slot
// can never succeed.
func classifyProtocolError(method string, rpcErr *rpcprovider.RPCError) error {
	retryable := true
	if rpcErr.IsReservedCode() {
		return rpcprovider.NewProtocolError("ERR_JSONRPC_"+strconv.Itoa(rpcErr.Code), rpcErr.Message, retryable, rpcErr)
	}

	lower := strings.ToLower(rpcErr.Message)
	switch method {
	case "getBlock", "getBlockTime":
		if strings.Contains(lower, "slot skipped") || strings.Contains(lower, "long-term storage slot skipped") {
			retryable = false
		}
	}

	return rpcprovider.NewProtocolError("ERR_JSONRPC_"+strconv.Itoa(rpcErr.Code), rpcErr.Message, retryable, rpcErr)
}

// RetryProvider is the Solana analog of rpcprovider.RetryProvider: on an
// HTTP 429 it backs off exponentially with a [1,3]-second jitter instead of
// the EVM path's fixed retryDelay (spec.md §4.3).
type RetryProvider struct {
	upstream   Transport
	retries    int
	retryDelay time.Duration
}

// NewRetryProvider constructs a Solana RetryProvider.
func NewRetryProvider(upstream Transport, retries int, retryDelay time.Duration) *RetryProvider {
	if retries < 0 {
		retries = 0
	}
	return &RetryProvider{upstream: upstream, retries: retries, retryDelay: retryDelay}
}

// Name delegates to the wrapped upstream.
func (p *RetryProvider) Name() string { return p.upstream.Name() }

// Send attempts the call up to retries+1 times. A null result is rejected
// and retried for every method (the eth_getTransactionReceipt carve-out has
// no analog here; Solana's equivalent pending signal is handled by the
// cache layer's getSignatureStatuses check, not a null RPC result).
func (p *RetryProvider) Send(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	attempts := p.retries + 1
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := p.retryDelay
			if is429(lastErr) {
				delay = backoffWithJitter(attempt)
			}
			select {
			case <-ctx.Done():
				return nil, rpcprovider.NewTransportError("ERR_CTX_CANCELLED", "context cancelled during retry backoff", ctx.Err())
			case <-time.After(delay):
			}
		}

		result, err := p.upstream.Send(ctx, method, params)
		if err == nil {
			if isNullResult(result) {
				lastErr = rpcprovider.NewProtocolError("ERR_NULL_RESULT", method+" returned a null result", true, nil)
				continue
			}
			return result, nil
		}

		lastErr = err
		if !rpcprovider.IsRetryable(err) {
			return nil, err
		}
	}

	return nil, lastErr
}

func is429(err error) bool {
	if err == nil {
		return false
	}
	e, ok := err.(*rpcprovider.Error)
	return ok && e.Code == "ERR_HTTP_429"
}

// backoffWithJitter adds a random [1,3]-second jitter to an exponential
// backoff base, per spec.md §4.3's Solana 429 rule.
func backoffWithJitter(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt-1)) * time.Second
	jitter := time.Duration(1000+rand.Intn(2000)) * time.Millisecond
	return base + jitter
}

func isNullResult(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}
