package svm

import (
	"context"
	"encoding/json"
	"math"

	"github.com/relay-bridge/sdk-core/rpcprovider"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// QuorumProvider is the Solana analog of rpcprovider.QuorumProvider: same
// fan-out/required-then-fallback algorithm, but getBlockTime equality is
// numeric-tolerant (identical integer) rather than the EVM path's masked
// deep-structural comparison (spec.md §4.4 "On the Solana variant...").
type QuorumProvider struct {
	providers           []Transport
	nodeQuorumThreshold int
	logger              *zap.SugaredLogger
}

// NewQuorumProvider constructs a Solana QuorumProvider.
func NewQuorumProvider(providers []Transport, nodeQuorumThreshold int, logger *zap.SugaredLogger) *QuorumProvider {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &QuorumProvider{providers: providers, nodeQuorumThreshold: nodeQuorumThreshold, logger: logger}
}

// Name identifies this fan-out group by its first provider.
func (q *QuorumProvider) Name() string {
	if len(q.providers) == 0 {
		return "quorum(empty)"
	}
	return "quorum(" + q.providers[0].Name() + ")"
}

type attemptResult struct {
	provider string
	result   json.RawMessage
	err      error
}

// Send implements the same fan-out algorithm as the EVM quorum provider,
// using numeric-tolerant equality for getBlockTime and exact JSON byte
// equality for everything else (methods the Solana stack uses here are
// expected to be deterministic integer/scalar results).
func (q *QuorumProvider) Send(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	if len(q.providers) == 0 {
		return nil, rpcprovider.NewLogicalError("ERR_NO_PROVIDERS", "quorum provider has no upstream providers configured")
	}

	Q := q.nodeQuorumThreshold
	if Q > len(q.providers) {
		Q = len(q.providers)
	}
	if Q < 1 {
		Q = 1
	}

	required := q.providers[:Q]
	fallbacks := q.providers[Q:]

	attempts, remaining := q.runConcurrent(ctx, method, params, required)
	succeeded := successesOf(attempts)

	usedFallbacks := 0
	for i := range attempts {
		if attempts[i].err != nil && usedFallbacks < len(fallbacks) {
			attempts[i] = tryProvider(ctx, fallbacks[usedFallbacks], method, params)
			usedFallbacks++
		}
	}
	succeeded = successesOf(attempts)
	remaining = fallbacks[usedFallbacks:]

	if len(succeeded) < Q {
		return nil, aggregateQuorumError("quorum not met: insufficient successful responses", attempts)
	}

	if allEqual(method, succeeded) {
		return succeeded[0].result, nil
	}

	extra, g := queryAll(ctx, method, params, remaining)
	_ = g
	all := append(attempts, extra...)

	result, count := mostCommonByCount(method, successesOf(all))
	if count >= Q {
		return result, nil
	}
	return nil, aggregateQuorumError("Not enough providers agreed", all)
}

func (q *QuorumProvider) runConcurrent(ctx context.Context, method string, params []interface{}, providers []Transport) ([]attemptResult, []Transport) {
	results := make([]attemptResult, len(providers))
	var g errgroup.Group
	for i, p := range providers {
		i, p := i, p
		g.Go(func() error {
			results[i] = tryProvider(ctx, p, method, params)
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

func queryAll(ctx context.Context, method string, params []interface{}, providers []Transport) ([]attemptResult, error) {
	results := make([]attemptResult, len(providers))
	var g errgroup.Group
	for i, p := range providers {
		i, p := i, p
		g.Go(func() error {
			results[i] = tryProvider(ctx, p, method, params)
			return nil
		})
	}
	return results, g.Wait()
}

func tryProvider(ctx context.Context, p Transport, method string, params []interface{}) attemptResult {
	result, err := p.Send(ctx, method, params)
	return attemptResult{provider: p.Name(), result: result, err: err}
}

func successesOf(attempts []attemptResult) []attemptResult {
	out := make([]attemptResult, 0, len(attempts))
	for _, a := range attempts {
		if a.err == nil {
			out = append(out, a)
		}
	}
	return out
}

func resultsEqual(method string, a, b json.RawMessage) bool {
	if method == "getBlockTime" {
		var na, nb float64
		if err1, err2 := json.Unmarshal(a, &na), json.Unmarshal(b, &nb); err1 == nil && err2 == nil {
			return math.Abs(na-nb) < 1e-9
		}
	}
	return string(a) == string(b)
}

func allEqual(method string, succeeded []attemptResult) bool {
	if len(succeeded) == 0 {
		return false
	}
	first := succeeded[0].result
	for _, s := range succeeded[1:] {
		if !resultsEqual(method, first, s.result) {
			return false
		}
	}
	return true
}

func mostCommonByCount(method string, succeeded []attemptResult) (json.RawMessage, int) {
	type bucket struct {
		representative json.RawMessage
		count          int
	}
	var buckets []bucket
	for _, s := range succeeded {
		placed := false
		for i := range buckets {
			if resultsEqual(method, buckets[i].representative, s.result) {
				buckets[i].count++
				placed = true
				break
			}
		}
		if !placed {
			buckets = append(buckets, bucket{representative: s.result, count: 1})
		}
	}
	var best *bucket
	for i := range buckets {
		if best == nil || buckets[i].count > best.count {
			best = &buckets[i]
		}
	}
	if best == nil {
		return nil, 0
	}
	return best.representative, best.count
}

func aggregateQuorumError(message string, attempts []attemptResult) error {
	var agreeing, mismatching, erroring []string
	var errs []error

	succeeded := successesOf(attempts)
	if len(succeeded) > 0 {
		_, count := mostCommonByCount("", succeeded)
		_ = count
		for _, s := range succeeded {
			agreeing = append(agreeing, s.provider)
		}
	}
	for _, a := range attempts {
		if a.err != nil {
			erroring = append(erroring, a.provider)
			errs = append(errs, a.err)
		}
	}

	return rpcprovider.NewQuorumError(message, agreeing, mismatching, erroring, errs)
}
