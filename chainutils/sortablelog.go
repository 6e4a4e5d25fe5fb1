package chainutils

import (
	"sort"

	"github.com/ethereum/go-ethereum/core/types"
)

// SortableLog pairs a decoded EVM log with its position in canonical chain
// order, so logs gathered across several paginated sub-queries (spokepool's
// paginated event query, cctp's deposit-for-burn discovery) can be merged
// back into a single deterministically ordered slice.
type SortableLog struct {
	Log              types.Log
	BlockNumber      uint64
	TransactionIndex uint
	LogIndex         uint
}

// NewSortableLog wraps a go-ethereum log with its ordering key extracted.
func NewSortableLog(l types.Log) SortableLog {
	return SortableLog{
		Log:              l,
		BlockNumber:      l.BlockNumber,
		TransactionIndex: l.TxIndex,
		LogIndex:         l.Index,
	}
}

// SortLogs orders logs by (BlockNumber, TransactionIndex, LogIndex), the
// canonical chain order used to make multi-chunk paginated queries behave
// as if they were a single query.
func SortLogs(logs []SortableLog) {
	sort.Slice(logs, func(i, j int) bool {
		a, b := logs[i], logs[j]
		if a.BlockNumber != b.BlockNumber {
			return a.BlockNumber < b.BlockNumber
		}
		if a.TransactionIndex != b.TransactionIndex {
			return a.TransactionIndex < b.TransactionIndex
		}
		return a.LogIndex < b.LogIndex
	})
}
