package rpcprovider

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// classifyProtocolError turns a JSON-RPC error body into a rpcprovider
// Error, applying the per-method fail-fast rules of spec.md §4.3: a code
// inside the reserved JSON-RPC range is always retryable; any other code is
// retryable unless the method is known to return deterministic failures, in
// which case a characteristic substring in the message downgrades it to
// non-retryable immediately rather than spending the full retry budget on it.
func classifyProtocolError(method string, rpcErr *RPCError) error {
	retryable := true
	if rpcErr.IsReservedCode() {
		return NewProtocolError(jsonRPCErrorCode(rpcErr.Code), rpcErr.Message, retryable, rpcErr)
	}

	lower := strings.ToLower(rpcErr.Message)
	switch method {
	case "eth_call", "eth_estimateGas":
		if strings.Contains(lower, "revert") {
			retryable = false
		}
	case "eth_sendRawTransaction":
		if strings.Contains(lower, "nonce") || strings.Contains(lower, "underpriced") {
			retryable = false
		}
	}

	return NewProtocolError(
		jsonRPCErrorCode(rpcErr.Code),
		rpcErr.Message,
		retryable,
		rpcErr,
	)
}

func jsonRPCErrorCode(code int) string {
	return "ERR_JSONRPC_" + strconv.Itoa(code)
}

// RetryProvider wraps a Transport with a bounded number of attempts and a
// fixed delay between them (spec.md §4.3). It treats a JSON `null` result
// as an invalid response worth retrying, except for
// eth_getTransactionReceipt, where null legitimately means "still pending"
// and must be returned to the caller rather than retried away.
type RetryProvider struct {
	upstream   Transport
	retries    int
	retryDelay time.Duration
}

// NewRetryProvider constructs a RetryProvider. retries is the number of
// retries *after* the first attempt, so the total attempt count is
// retries+1. A negative retries is treated as 0.
func NewRetryProvider(upstream Transport, retries int, retryDelay time.Duration) *RetryProvider {
	if retries < 0 {
		retries = 0
	}
	return &RetryProvider{upstream: upstream, retries: retries, retryDelay: retryDelay}
}

// Name delegates to the wrapped upstream.
func (p *RetryProvider) Name() string { return p.upstream.Name() }

// Send attempts the call up to retries+1 times, sleeping retryDelay between
// attempts, short-circuiting as soon as an error is classified
// non-retryable (spec.md §4.3 "fail fast").
func (p *RetryProvider) Send(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	attempts := p.retries + 1
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, NewTransportError("ERR_CTX_CANCELLED", "context cancelled during retry backoff", ctx.Err())
			case <-time.After(p.retryDelay):
			}
		}

		result, err := p.upstream.Send(ctx, method, params)
		if err == nil {
			if isNullResult(result) && method != "eth_getTransactionReceipt" {
				lastErr = NewProtocolError("ERR_NULL_RESULT", method+" returned a null result", true, nil)
				continue
			}
			return result, nil
		}

		lastErr = err
		if !IsRetryable(err) {
			return nil, err
		}
	}

	return nil, lastErr
}

func isNullResult(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}
