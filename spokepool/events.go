package spokepool

import (
	"context"

	"github.com/relay-bridge/sdk-core/chainutils"
)

// LogFilter is the subset of an eth_getLogs filter this package chunks
// across a block range; callers fill in addresses/topics and leave
// FromBlock/ToBlock to PaginatedQuery.
type LogFilter struct {
	Address   []string
	Topics    [][]string
	FromBlock uint64
	ToBlock   uint64
}

// LogQuerier executes one eth_getLogs-shaped query for a single
// already-bounded block range.
type LogQuerier interface {
	QueryLogs(ctx context.Context, filter LogFilter) ([]chainutils.SortableLog, error)
}

// PaginatedQuery splits [fromBlock, toBlock] into sub-ranges of at most
// maxBlockLookBack blocks each (a single query when maxBlockLookBack == 0),
// queries each in turn, and concatenates the results in ascending block
// order (spec.md §4.6.5).
func PaginatedQuery(ctx context.Context, base LogFilter, fromBlock, toBlock, maxBlockLookBack uint64, querier LogQuerier) ([]chainutils.SortableLog, error) {
	if toBlock < fromBlock {
		return nil, nil
	}

	if maxBlockLookBack == 0 {
		filter := base
		filter.FromBlock = fromBlock
		filter.ToBlock = toBlock
		return querier.QueryLogs(ctx, filter)
	}

	var all []chainutils.SortableLog
	for start := fromBlock; start <= toBlock; start += maxBlockLookBack {
		end := start + maxBlockLookBack - 1
		if end > toBlock {
			end = toBlock
		}

		filter := base
		filter.FromBlock = start
		filter.ToBlock = end

		logs, err := querier.QueryLogs(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, logs...)

		if end == toBlock {
			break
		}
	}

	chainutils.SortLogs(all)
	return all, nil
}
