package rpcprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// EqualityMask strips per-method volatile fields before two results are
// compared for semantic equality (spec.md §4.4 "Semantic equality").
type EqualityMask func(method string, raw json.RawMessage) (json.RawMessage, error)

var blockByNumberMaskedKeys = []string{"miner", "l1BatchNumber", "l1BatchTimestamp", "size", "totalDifficulty"}
var getLogsMaskedKeys = []string{"blockTimestamp", "transactionLogIndex", "l1BatchNumber", "logType"}

// DefaultEqualityMask implements the two method-specific masks named in
// spec.md §4.4 and falls back to unmasked comparison for every other
// method.
func DefaultEqualityMask(method string, raw json.RawMessage) (json.RawMessage, error) {
	switch method {
	case "eth_getBlockByNumber":
		return maskObjectKeys(raw, blockByNumberMaskedKeys)
	case "eth_getLogs":
		return maskArrayElementKeys(raw, getLogsMaskedKeys)
	default:
		return raw, nil
	}
}

func maskObjectKeys(raw json.RawMessage, keys []string) (json.RawMessage, error) {
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		// Not an object (e.g. null, a scalar) - nothing to mask.
		return raw, nil
	}
	for _, k := range keys {
		delete(obj, k)
	}
	return json.Marshal(obj)
}

func maskArrayElementKeys(raw json.RawMessage, keys []string) (json.RawMessage, error) {
	var arr []map[string]interface{}
	if err := json.Unmarshal(raw, &arr); err != nil {
		return raw, nil
	}
	for _, elem := range arr {
		for _, k := range keys {
			delete(elem, k)
		}
	}
	return json.Marshal(arr)
}

// semanticEqual compares two results after masking, by unmarshaling into
// generic interface{} trees and using reflect.DeepEqual - equivalent to a
// deep structural comparison that is indifferent to JSON key ordering.
func semanticEqual(mask EqualityMask, method string, a, b json.RawMessage) bool {
	ma, err := mask(method, a)
	if err != nil {
		return false
	}
	mb, err := mask(method, b)
	if err != nil {
		return false
	}

	var va, vb interface{}
	if err := json.Unmarshal(ma, &va); err != nil {
		return false
	}
	if err := json.Unmarshal(mb, &vb); err != nil {
		return false
	}
	return reflect.DeepEqual(va, vb)
}

// QuorumThreshold computes Q = quorum(method, params) per spec.md §4.4
// step 1. The block tag is read from params at the position relevant to
// method (0 for eth_getBlockByNumber, 1 for eth_call).
func QuorumThreshold(method string, params []interface{}, nodeQuorumThreshold int) int {
	switch method {
	case "eth_getLogs":
		return nodeQuorumThreshold
	case "eth_getBlockByNumber":
		if tagAt(params, 0) == "latest" || tagAt(params, 0) == "pending" {
			return 1
		}
		return nodeQuorumThreshold
	case "eth_call":
		if tagAt(params, 1) == "latest" {
			return 1
		}
		return nodeQuorumThreshold
	case "getBlockTime":
		return nodeQuorumThreshold
	default:
		return 1
	}
}

func tagAt(params []interface{}, pos int) string {
	if len(params) <= pos {
		return ""
	}
	s, _ := params[pos].(string)
	return s
}

// attemptResult is one provider's outcome for a logical call.
type attemptResult struct {
	provider string
	result   json.RawMessage
	err      error
}

// QuorumProvider fans a call out across a fixed-order list of upstream
// Transports (each itself a fully-decorated C1->C2->C3 stack), requiring Q
// of them to agree before returning (spec.md §4.4).
type QuorumProvider struct {
	providers           []Transport
	nodeQuorumThreshold int
	mask                EqualityMask
	logger              *zap.SugaredLogger
}

// NewQuorumProvider constructs a QuorumProvider over providers in the fixed
// priority order they should be tried.
func NewQuorumProvider(providers []Transport, nodeQuorumThreshold int, logger *zap.SugaredLogger) *QuorumProvider {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &QuorumProvider{
		providers:           providers,
		nodeQuorumThreshold: nodeQuorumThreshold,
		mask:                DefaultEqualityMask,
		logger:              logger,
	}
}

// Name identifies this fan-out group by its first provider, matching how
// quorum-level diagnostics refer to "the group led by <host>".
func (q *QuorumProvider) Name() string {
	if len(q.providers) == 0 {
		return "quorum(empty)"
	}
	return "quorum(" + q.providers[0].Name() + ")"
}

// Send implements the full C4 algorithm (spec.md §4.4 steps 1-7).
func (q *QuorumProvider) Send(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	if len(q.providers) == 0 {
		return nil, NewLogicalError("ERR_NO_PROVIDERS", "quorum provider has no upstream providers configured")
	}

	Q := QuorumThreshold(method, params, q.nodeQuorumThreshold)
	if Q > len(q.providers) {
		Q = len(q.providers)
	}

	required := q.providers[:Q]
	fallbacks := q.providers[Q:]

	attempts, errored := q.runRequired(ctx, method, params, required, fallbacks)
	succeeded := successesOf(attempts)

	if len(succeeded) < Q {
		return nil, aggregateQuorumError("quorum not met: insufficient successful responses", attempts)
	}

	if allSemanticallyEqual(q.mask, method, succeeded) {
		q.logMismatch(method, attempts)
		return succeeded[0].result, nil
	}

	remaining := q.runRemaining(ctx, method, params, attempts, fallbacks)
	all := append(attempts, remaining...)

	r, count, buckets := mostCommonBucket(q.mask, method, successesOf(all))
	if count >= Q {
		q.logBuckets(method, all, buckets)
		return r, nil
	}

	_ = errored
	return nil, aggregateQuorumError("Not enough providers agreed", all)
}

// runRequired launches Q concurrent attempts against the required
// providers. Any failure pops the next fallback and retries once, so a
// given provider participates at most once per logical call (spec.md §4.4
// step 3).
func (q *QuorumProvider) runRequired(ctx context.Context, method string, params []interface{}, required, fallbacks []Transport) ([]attemptResult, []Transport) {
	remainingFallbacks := append([]Transport(nil), fallbacks...)
	results := make([]attemptResult, len(required))

	var g errgroup.Group
	for i, p := range required {
		i, p := i, p
		g.Go(func() error {
			results[i] = tryProvider(ctx, p, method, params)
			return nil
		})
	}
	_ = g.Wait()

	for i := range results {
		if results[i].err != nil && len(remainingFallbacks) > 0 {
			next := remainingFallbacks[0]
			remainingFallbacks = remainingFallbacks[1:]
			results[i] = tryProvider(ctx, next, method, params)
		}
	}

	return results, remainingFallbacks
}

// runRemaining queries every fallback that has not yet been used in this
// logical call (spec.md §4.4 step 6).
func (q *QuorumProvider) runRemaining(ctx context.Context, method string, params []interface{}, used []attemptResult, fallbacks []Transport) []attemptResult {
	usedNames := make(map[string]bool, len(used))
	for _, u := range used {
		usedNames[u.provider] = true
	}

	toQuery := make([]Transport, 0, len(fallbacks))
	for _, f := range fallbacks {
		if !usedNames[f.Name()] {
			toQuery = append(toQuery, f)
		}
	}
	if len(toQuery) == 0 {
		return nil
	}

	results := make([]attemptResult, len(toQuery))
	var g errgroup.Group
	for i, p := range toQuery {
		i, p := i, p
		g.Go(func() error {
			results[i] = tryProvider(ctx, p, method, params)
			return nil
		})
	}
	_ = g.Wait()
	return results
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

func allSemanticallyEqual(mask EqualityMask, method string, succeeded []attemptResult) bool {
	if len(succeeded) == 0 {
		return false
	}
	first := succeeded[0].result
	for _, s := range succeeded[1:] {
		if !semanticEqual(mask, method, first, s.result) {
			return false
		}
	}
	return true
}

// mostCommonBucket groups successful results by semantic equality and
// returns the largest bucket's representative result, its size, and the
// full bucketing (provider names per representative) for diagnostics.
func mostCommonBucket(mask EqualityMask, method string, succeeded []attemptResult) (json.RawMessage, int, map[string][]string) {
	type bucket struct {
		representative json.RawMessage
		providers      []string
	}
	var buckets []bucket

	for _, s := range succeeded {
		placed := false
		for i := range buckets {
			if semanticEqual(mask, method, buckets[i].representative, s.result) {
				buckets[i].providers = append(buckets[i].providers, s.provider)
				placed = true
				break
			}
		}
		if !placed {
			buckets = append(buckets, bucket{representative: s.result, providers: []string{s.provider}})
		}
	}

	var best *bucket
	diag := make(map[string][]string, len(buckets))
	for i := range buckets {
		diag[fmt.Sprintf("bucket-%d", i)] = buckets[i].providers
		if best == nil || len(buckets[i].providers) > len(best.providers) {
			best = &buckets[i]
		}
	}
	if best == nil {
		return nil, 0, diag
	}
	return best.representative, len(best.providers), diag
}

func (q *QuorumProvider) logMismatch(method string, attempts []attemptResult) {
	agreeing, mismatching, erroring := classifyAttempts(q.mask, method, attempts)
	if len(mismatching) == 0 && len(erroring) == 0 {
		return
	}
	q.logger.Warnw("quorum providers disagreed or errored, but quorum was still met",
		"method", method, "agreeing", agreeing, "mismatching", mismatching, "erroring", erroring)
}

func (q *QuorumProvider) logBuckets(method string, attempts []attemptResult, buckets map[string][]string) {
	agreeing, mismatching, erroring := classifyAttempts(q.mask, method, attempts)
	q.logger.Warnw("quorum resolved via fallback fan-out",
		"method", method, "agreeing", agreeing, "mismatching", mismatching, "erroring", erroring)
}

func classifyAttempts(mask EqualityMask, method string, attempts []attemptResult) (agreeing, mismatching, erroring []string) {
	succeeded := successesOf(attempts)
	if len(succeeded) == 0 {
		for _, a := range attempts {
			erroring = append(erroring, a.provider)
		}
		return
	}

	_, count, buckets := mostCommonBucket(mask, method, succeeded)
	_ = count
	var winner string
	maxLen := -1
	for key, providers := range buckets {
		if len(providers) > maxLen {
			maxLen = len(providers)
			winner = key
		}
	}

	for key, providers := range buckets {
		if key == winner {
			agreeing = append(agreeing, providers...)
		} else {
			mismatching = append(mismatching, providers...)
		}
	}
	for _, a := range attempts {
		if a.err != nil {
			erroring = append(erroring, a.provider)
		}
	}
	return
}

func aggregateQuorumError(message string, attempts []attemptResult) error {
	agreeing := make([]string, 0, len(attempts))
	var mismatching, erroring []string
	var errs []error

	succeeded := successesOf(attempts)
	if len(succeeded) > 0 {
		_, _, buckets := mostCommonBucket(DefaultEqualityMask, "", succeeded)
		var winner string
		maxLen := -1
		for key, providers := range buckets {
			if len(providers) > maxLen {
				maxLen = len(providers)
				winner = key
			}
		}
		for key, providers := range buckets {
			if key == winner {
				agreeing = append(agreeing, providers...)
			} else {
				mismatching = append(mismatching, providers...)
			}
		}
	}

	for _, a := range attempts {
		if a.err != nil {
			erroring = append(erroring, a.provider)
			errs = append(errs, a.err)
		}
	}

	return NewQuorumError(message, agreeing, mismatching, erroring, errs)
}
