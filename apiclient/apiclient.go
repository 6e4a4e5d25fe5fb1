// Package apiclient provides fee, limit, and statistics queries over HTTPS
// against the bridge's quote service and CoinGecko. Each query is a single
// GET request; no chunking or pausing between requests is done here.
package apiclient

import (
	"context"
	"math/big"
)

// CoinGeckoPrice is the spot price of an L1 token in baseCurrency.
type CoinGeckoPrice struct {
	L1Token      string  `json:"l1Token"`
	BaseCurrency string  `json:"baseCurrency"`
	Price        float64 `json:"price"`
}

// SuggestedFees is the fee breakdown the quote service returns for a
// prospective deposit.
type SuggestedFees struct {
	TotalRelayFeePct  *big.Int `json:"totalRelayFeePct"`
	RelayerCapitalFee *big.Int `json:"relayerCapitalFeePct"`
	RelayerGasFee     *big.Int `json:"relayerGasFeePct"`
	LpFeePct          *big.Int `json:"lpFeePct"`
	Timestamp         int64    `json:"timestamp"`
	IsAmountTooLow    bool     `json:"isAmountTooLow"`
}

// BridgeLimits is the min/max depositable amount and per-tier quotes for a
// token route.
type BridgeLimits struct {
	MinDeposit           *big.Int `json:"minDeposit"`
	MaxDeposit           *big.Int `json:"maxDeposit"`
	MaxDepositInstant    *big.Int `json:"maxDepositInstant"`
	MaxDepositShortDelay *big.Int `json:"maxDepositShortDelay"`
}

// AcrossStats is aggregate protocol volume/transfer statistics.
type AcrossStats struct {
	TotalDepositsUSD string `json:"totalDepositsUsd"`
	TotalTransfers   int64  `json:"totalTransfers"`
	AvgFillTimeSec   int64  `json:"avgFillTimeInSeconds"`
}

// FastBurnAllowance is the CCTP v2 fast-burn allowance remaining for a
// domain. Wired per spec.md's note that getV2FastBurnAllowance is
// referenced by the source but its consumers are unclear from this slice;
// it is exposed here as a typed method with no internal caller.
type FastBurnAllowance struct {
	DomainID  uint32   `json:"domainId"`
	Allowance *big.Int `json:"allowance"`
}

// Client is the abstract interface over the bridge's quote service and
// CoinGecko, satisfied by both HTTPClient and MockClient.
type Client interface {
	GetCoinGeckoData(ctx context.Context, l1Token, baseCurrency string) (CoinGeckoPrice, error)
	GetSuggestedFees(ctx context.Context, amount *big.Int, originToken string, fromChain, toChain int64) (SuggestedFees, error)
	GetBridgeLimits(ctx context.Context, token string, fromChain, toChain int64) (BridgeLimits, error)
	GetAcrossStats(ctx context.Context) (AcrossStats, error)
	GetV2FastBurnAllowance(ctx context.Context, domainID uint32) (FastBurnAllowance, error)
}
