package svm

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// RateLimitedProvider is the Solana analog of rpcprovider.RateLimitedProvider.
type RateLimitedProvider struct {
	upstream          Transport
	sem               chan struct{}
	pctRpcCallsLogged int
	chainID           int64
	logger            *zap.SugaredLogger
}

// NewRateLimitedProvider constructs a Solana RateLimitedProvider.
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
	return &RateLimitedProvider{upstream: upstream, sem: make(chan struct{}, maxConcurrency), pctRpcCallsLogged: pctRpcCallsLogged, chainID: chainID, logger: logger}
}

// Name delegates to the wrapped upstream.
func (p *RateLimitedProvider) Name() string { return p.upstream.Name() }

// Send bounds concurrency and samples debug logging, mirroring the EVM
// rate limiter's behavior.
func (p *RateLimitedProvider) Send(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-p.sem }()

	sample := p.pctRpcCallsLogged > 0 && rand.Intn(100) < p.pctRpcCallsLogged
	var start time.Time
	if sample {
		start = time.Now()
	}

	result, err := p.upstream.Send(ctx, method, params)

	if sample {
		p.logger.Debugw("solana rpc call sampled",
			"providerHost", p.upstream.Name(),
			"method", method,
			"params", params,
			"chainId", p.chainID,
			"success", err == nil,
			"elapsedSeconds", time.Since(start).Seconds(),
		)
	}

	return result, err
}
