// Package svm implements the Solana analog of the EVM rpcprovider stack:
// rate-limit -> cache -> retry -> quorum, over Solana JSON-RPC's distinct
// fail-fast and caching rules (spec.md §4.1-§4.4 "Solana variant").
package svm

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

	"github.com/relay-bridge/sdk-core/rpcprovider"
)

// Transport is the Solana-side equivalent of rpcprovider.Transport; kept
// as a distinct type (rather than reusing the EVM interface) because the
// Solana decorators apply different fail-fast and cache rules even though
// the wire shape is the same JSON-RPC 2.0 envelope.
type Transport interface {
	Send(ctx context.Context, method string, params []interface{}) (json.RawMessage, error)
	Name() string
}

// HTTPTransport is the innermost Solana Transport, one upstream endpoint.
type HTTPTransport struct {
	endpoint   string
	host       string
	httpClient *http.Client
	requestID  atomic.Int64
}

// NewHTTPTransport constructs a Solana HTTPTransport.
func NewHTTPTransport(endpoint string, timeout time.Duration) (*HTTPTransport, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("svm: invalid endpoint %q: %w", endpoint, err)
	}
	return &HTTPTransport{endpoint: endpoint, host: strings.ToLower(u.Hostname()), httpClient: &http.Client{Timeout: timeout}}, nil
}

// Name returns the lowercase hostname.
func (t *HTTPTransport) Name() string { return t.host }

type request struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type response struct {
	JSONRPC string                `json:"jsonrpc"`
	ID      int64                 `json:"id"`
	Result  json.RawMessage       `json:"result,omitempty"`
	Error   *rpcprovider.RPCError `json:"error,omitempty"`
}

// Send executes one Solana JSON-RPC 2.0 call.
func (t *HTTPTransport) Send(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	req := request{JSONRPC: "2.0", ID: t.requestID.Add(1), Method: method, Params: params}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, rpcprovider.NewValidationError("ERR_MARSHAL", "failed to marshal Solana JSON-RPC request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, rpcprovider.NewTransportError("ERR_HTTP_REQUEST", "failed to build HTTP request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, rpcprovider.NewTransportError("ERR_HTTP_DO", fmt.Sprintf("HTTP request to %s failed", t.host), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, rpcprovider.NewTransportError("ERR_HTTP_READ", "failed to read HTTP response body", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &rpcprovider.Error{Code: "ERR_HTTP_429", Message: fmt.Sprintf("%s returned HTTP 429", t.host), Class: rpcprovider.Transport, Retryable: true}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, rpcprovider.NewTransportError("ERR_HTTP_STATUS", fmt.Sprintf("%s returned HTTP %d: %s", t.host, resp.StatusCode, string(respBody)), nil)
	}

	var rpcResp response
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, rpcprovider.NewTransportError("ERR_JSON_DECODE", "failed to parse Solana JSON-RPC response", err)
	}
	if rpcResp.Error != nil {
		return nil, classifyProtocolError(method, rpcResp.Error)
	}
	return rpcResp.Result, nil
}

// Close releases idle HTTP connections.
func (t *HTTPTransport) Close() error {
	t.httpClient.CloseIdleConnections()
	return nil
}
