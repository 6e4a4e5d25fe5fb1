package rpcprovider

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// RateLimitedProvider wraps a single upstream Transport and bounds its
// in-flight concurrency to maxConcurrency, the (N+1)-th request suspending
// until an in-flight one completes (spec.md §4.1). With probability
// pctRpcCallsLogged/100 it also times the call and emits a sampled debug
// record, mirroring teacher's MetricsRPCClient start/duration/record shape.
type RateLimitedProvider struct {
	upstream          Transport
	sem               chan struct{}
	pctRpcCallsLogged int
	chainID           int64
	logger            *zap.SugaredLogger
}

// NewRateLimitedProvider constructs a RateLimitedProvider. maxConcurrency
// must be >= 1; pctRpcCallsLogged is clamped to [0, 100].
func NewRateLimitedProvider(upstream Transport, maxConcurrency int, pctRpcCallsLogged int, chainID int64, logger *zap.SugaredLogger) *RateLimitedProvider {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	if pctRpcCallsLogged < 0 {
		pctRpcCallsLogged = 0
	}
	if pctRpcCallsLogged > 100 {
		pctRpcCallsLogged = 100
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &RateLimitedProvider{
		upstream:          upstream,
		sem:               make(chan struct{}, maxConcurrency),
		pctRpcCallsLogged: pctRpcCallsLogged,
		chainID:           chainID,
		logger:            logger,
	}
}

// Name delegates to the wrapped upstream's host identity.
func (p *RateLimitedProvider) Name() string { return p.upstream.Name() }

// Send acquires a concurrency slot (blocking until one is free or ctx is
// cancelled), delegates to the upstream, and releases the slot on return.
// Errors from the upstream are propagated unchanged (spec.md §4.1).
func (p *RateLimitedProvider) Send(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, NewTransportError("ERR_CTX_CANCELLED", "context cancelled while waiting for a concurrency slot", ctx.Err())
	}
	defer func() { <-p.sem }()

	sample := p.pctRpcCallsLogged > 0 && rand.Intn(100) < p.pctRpcCallsLogged
	var start time.Time
	if sample {
		start = time.Now()
	}

	result, err := p.upstream.Send(ctx, method, params)

	if sample {
		elapsed := time.Since(start).Seconds()
		p.logger.Debugw("rpc call sampled",
			"providerHost", p.upstream.Name(),
			"method", method,
			"params", params,
			"chainId", p.chainID,
			"success", err == nil,
			"elapsedSeconds", elapsed,
		)
	}

	return result, err
}
