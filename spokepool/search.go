package spokepool

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/relay-bridge/sdk-core/relaydata"
	"github.com/relay-bridge/sdk-core/rpcprovider"
)

// DepositCounter reads numberOfDeposits at a given block (spec.md §4.6.1).
type DepositCounter interface {
	NumberOfDeposits(ctx context.Context, blockNumber uint64) (uint64, error)
}

// FillStatusReader reads fillStatuses(hash) at a given block (spec.md
// §4.6.2).
type FillStatusReader interface {
	FillStatus(ctx context.Context, hash common.Hash, blockNumber uint64) (FillStatus, error)
}

// FindDepositBlock locates the block in [low, high] where numberOfDeposits
// first exceeds depositId, per spec.md §4.6.1. Returns not-found (ok=false)
// when the preconditions numberOfDeposits(low) <= depositId <
// numberOfDeposits(high) do not hold.
func FindDepositBlock(ctx context.Context, depositID uint64, low, high uint64, counter DepositCounter) (block uint64, ok bool, err error) {
	if depositID > MaxSafeDepositID {
		return 0, false, ErrUnsafeDepositID
	}

	nLow, err := counter.NumberOfDeposits(ctx, low)
	if err != nil {
		return 0, false, err
	}
	nHigh, err := counter.NumberOfDeposits(ctx, high)
	if err != nil {
		return 0, false, err
	}
	if nLow > depositID || depositID >= nHigh {
		return 0, false, nil
	}

	for low < high {
		mid := low + (high-low)/2
		nMid, err := counter.NumberOfDeposits(ctx, mid)
		if err != nil {
			return 0, false, err
		}
		if nMid > depositID {
			high = mid
		} else {
			low = mid + 1
		}
	}
	return low, true, nil
}

// FindFillBlock returns the earliest block in [low, high] where
// fillStatuses[hash] == Filled, or ok=false if never filled in range
// (spec.md §4.6.2). Returns a Logical error if the hash is already
// Filled at low, since a binary search has no lower bound
// to anchor on in that case.
func FindFillBlock(ctx context.Context, data relaydata.RelayData, destinationChainID *big.Int, low, high uint64, reader FillStatusReader) (block uint64, ok bool, err error) {
	hash, err := data.Hash(destinationChainID)
	if err != nil {
		return 0, false, err
	}

	statusLow, err := reader.FillStatus(ctx, hash, low)
	if err != nil {
		return 0, false, err
	}
	if statusLow == Filled {
		return 0, false, rpcprovider.NewLogicalError("ERR_ALREADY_FILLED",
			"relay is already Filled at the lower bound of the search range")
	}

	statusHigh, err := reader.FillStatus(ctx, hash, high)
	if err != nil {
		return 0, false, err
	}
	if statusHigh != Filled {
		return 0, false, nil
	}

	for low < high {
		mid := low + (high-low)/2
		status, err := reader.FillStatus(ctx, hash, mid)
		if err != nil {
			return 0, false, err
		}
		if status == Filled {
			high = mid
		} else {
			low = mid + 1
		}
	}
	return low, true, nil
}
