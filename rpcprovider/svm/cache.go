package svm

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/relay-bridge/sdk-core/rpcprovider"
)

// SlotStatusProvider supplies the most recent finalized and confirmed
// slots, cached by the caller with a 15-minute TTL (spec.md §4.2 "Solana
// getBlockTime depends on ... finalized and confirmed slots cached with
// TTL 15 min").
type SlotStatusProvider interface {
	FinalizedSlot(ctx context.Context) (uint64, error)
	ConfirmedSlot(ctx context.Context) (uint64, error)
}

// SignatureStatusChecker verifies a transaction's finality via
// getSignatureStatuses(searchTransactionHistory=true), used to gate
// getTransaction caching (spec.md §4.2).
type SignatureStatusChecker interface {
	IsFinalized(ctx context.Context, signature string) (bool, error)
}

// CacheProvider is the Solana analog of rpcprovider.CacheProvider. Only
// two methods are cached:
//   - getTransaction: cached only once getSignatureStatuses confirms the
//     signature is finalized; never cached otherwise.
//   - getBlockTime: cached with a distance-style decision relative to the
//     finalized/confirmed slot cache.
type CacheProvider struct {
	upstream  Transport
	store     rpcprovider.CacheStore
	sigStatus SignatureStatusChecker
	slots     SlotStatusProvider
	namespace string
	chainID   int64
	ttl       time.Duration
}

// NewCacheProvider constructs a Solana CacheProvider.
func NewCacheProvider(upstream Transport, store rpcprovider.CacheStore, sigStatus SignatureStatusChecker, slots SlotStatusProvider, namespace string, chainID int64) *CacheProvider {
	return &CacheProvider{upstream: upstream, store: store, sigStatus: sigStatus, slots: slots, namespace: namespace, chainID: chainID, ttl: 15 * time.Minute}
}

// Name delegates to the wrapped upstream.
func (c *CacheProvider) Name() string { return c.upstream.Name() }

func (c *CacheProvider) cacheKey(method string, params []interface{}) (string, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s,%s,%d:%s,%s", c.namespace, c.upstream.Name(), c.chainID, method, string(paramsJSON)), nil
}

// Send implements the Solana C2 rules.
func (c *CacheProvider) Send(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	switch method {
	case "getTransaction":
		return c.sendGetTransaction(ctx, method, params)
	case "getBlockTime":
		return c.sendGetBlockTime(ctx, method, params)
	default:
		return c.upstream.Send(ctx, method, params)
	}
}

func (c *CacheProvider) sendGetTransaction(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	key, err := c.cacheKey(method, params)
	if err != nil {
		return nil, rpcprovider.NewValidationError("ERR_CACHE_KEY", "failed to build cache key", err)
	}
	if cached, ok := c.store.Get(ctx, key); ok {
		return cached, nil
	}

	result, err := c.upstream.Send(ctx, method, params)
	if err != nil {
		return nil, err
	}

	signature, _ := paramAt(params, 0).(string)
	if signature != "" {
		finalized, statusErr := c.sigStatus.IsFinalized(ctx, signature)
		if statusErr == nil && finalized {
			c.store.Set(ctx, key, result, 0)
		}
	}
	return result, nil
}

// sendGetBlockTime implements spec.md §4.2's Solana getBlockTime rule,
// which depends on the target slot relative to *both* the most recent
// finalized and confirmed slots: a finalized slot's block time never
// changes and is cached permanently; a merely-confirmed slot can still
// rarely be skipped on reorg, so it's cached with the 15-minute jittered
// TTL instead; anything past the confirmed slot is still in flux and not
// cached at all.
func (c *CacheProvider) sendGetBlockTime(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	slot, ok := paramAt(params, 0).(float64)
	if !ok {
		return c.upstream.Send(ctx, method, params)
	}
	targetSlot := uint64(slot)

	finalized, err := c.slots.FinalizedSlot(ctx)
	if err != nil {
		return c.upstream.Send(ctx, method, params)
	}

	confirmed, err := c.slots.ConfirmedSlot(ctx)
	if err != nil {
		// Fall back to treating "confirmed" as "finalized" rather than
		// failing the whole request over a non-essential status lookup.
		confirmed = finalized
	}

	key, keyErr := c.cacheKey(method, params)
	if keyErr != nil {
		return nil, rpcprovider.NewValidationError("ERR_CACHE_KEY", "failed to build cache key", keyErr)
	}

	permanent := targetSlot <= finalized
	cacheable := permanent || targetSlot <= confirmed

	if cacheable {
		if cached, hit := c.store.Get(ctx, key); hit {
			return cached, nil
		}
	}

	result, err := c.upstream.Send(ctx, method, params)
	if err != nil {
		return nil, err
	}

	switch {
	case permanent:
		c.store.Set(ctx, key, result, 0)
	case cacheable:
		jitter := (rand.Float64()*2 - 1) * 0.1
		ttl := time.Duration(float64(c.ttl) * (1 + jitter))
		c.store.Set(ctx, key, result, ttl)
	}
	return result, nil
}

func paramAt(params []interface{}, pos int) interface{} {
	if len(params) <= pos {
		return nil
	}
	return params[pos]
}
