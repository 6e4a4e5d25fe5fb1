// Package spokepool implements the Across spoke-pool search primitives:
// deposit-id and fill-block binary search, fillStatuses multicall
// batching, relay-transaction calldata assembly, and paginated log queries
// (spec.md §4.6).
package spokepool

import (
	"fmt"

	"github.com/relay-bridge/sdk-core/rpcprovider"
)

// FillStatus mirrors the on-chain enum. It is monotonic in block height for
// a given relay data hash: once Filled, a hash never reverts to an earlier
// status within the canonical chain (spec.md §3 "FillStatus").
type FillStatus int

const (
	Unfilled FillStatus = iota
	RequestedSlowFill
	Filled
)

// Undefined is returned when a decoded multicall slot falls outside
// {0,1,2} (spec.md §4.6.3).
const Undefined FillStatus = -1

func decodeFillStatus(raw int64) FillStatus {
	switch raw {
	case int64(Unfilled), int64(RequestedSlowFill), int64(Filled):
		return FillStatus(raw)
	default:
		return Undefined
	}
}

// MaxSafeDepositID is the largest deposit id considered "safe" for the
// linear block-search path; values above it are reserved for the
// unsafe-deposit hashing scheme and rejected outright (spec.md §4.6.1).
const MaxSafeDepositID = (uint64(1) << 32) - 1

// ErrUnsafeDepositID is returned for a deposit id above MaxSafeDepositID.
var ErrUnsafeDepositID = rpcprovider.NewValidationError("ERR_UNSAFE_DEPOSIT_ID",
	"deposit id exceeds the safe range for block search; use unsafe-deposit hashing instead", nil)

// errFillStatusOutOfRange is the Logical error for a decoded fill status
// outside {0,1,2} (spec.md §7 "Logical"), raised by decodeFillStatusReturn
// in multicall.go whenever fillStatuses' return data doesn't decode to one
// of the known enum values.
func errFillStatusOutOfRange(raw int64) error {
	return rpcprovider.NewLogicalError("ERR_FILL_STATUS_RANGE",
		fmt.Sprintf("fillStatuses returned %d, outside the expected {0,1,2} range", raw))
}
