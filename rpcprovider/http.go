package rpcprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"
)

// HTTPTransport is the innermost Transport: a single upstream JSON-RPC
// endpoint reached over HTTPS, grounded on teacher's HTTPRPCClient.
// Unlike the teacher, a single HTTPTransport owns exactly one endpoint —
// failover across endpoints belongs entirely to the quorum/fallback layer
// (C4), not duplicated here.
type HTTPTransport struct {
	endpoint   string
	host       string
	httpClient *http.Client
	requestID  atomic.Int64
}

// NewHTTPTransport constructs an HTTPTransport for a single upstream
// endpoint URL.
func NewHTTPTransport(endpoint string, timeout time.Duration) (*HTTPTransport, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("rpcprovider: invalid endpoint %q: %w", endpoint, err)
	}
	return &HTTPTransport{
		endpoint:   endpoint,
		host:       strings.ToLower(u.Hostname()),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Name returns the lowercase hostname, used verbatim in cache keys
// (spec.md §6 "Persisted cache key format") and quorum diagnostics.
func (t *HTTPTransport) Name() string { return t.host }

// Send executes a single JSON-RPC 2.0 call against the upstream endpoint.
func (t *HTTPTransport) Send(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	req := Request{
		JSONRPC: "2.0",
		ID:      t.requestID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, NewValidationError("ERR_MARSHAL", "failed to marshal JSON-RPC request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, NewTransportError("ERR_HTTP_REQUEST", "failed to build HTTP request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, NewTransportError("ERR_HTTP_DO", fmt.Sprintf("HTTP request to %s failed", t.host), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewTransportError("ERR_HTTP_READ", "failed to read HTTP response body", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &Error{
			Code: "ERR_HTTP_429", Message: fmt.Sprintf("%s returned HTTP 429", t.host),
			Class: Transport, Retryable: true,
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, NewTransportError("ERR_HTTP_STATUS",
			fmt.Sprintf("%s returned HTTP %d: %s", t.host, resp.StatusCode, string(respBody)), nil)
	}

	var rpcResp Response
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, NewTransportError("ERR_JSON_DECODE", "failed to parse JSON-RPC response", err)
	}

	if rpcResp.Error != nil {
		return nil, classifyProtocolError(method, rpcResp.Error)
	}

	return rpcResp.Result, nil
}

// Close releases the HTTP client's idle connections.
func (t *HTTPTransport) Close() error {
	t.httpClient.CloseIdleConnections()
	return nil
}
