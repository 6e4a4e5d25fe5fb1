// Package cctp implements the Circle Cross-Chain Transfer Protocol
// attestation pipeline: deposit-for-burn discovery, attestation polling
// against Circle's REST API, pending/ready/finalized classification, and
// finalization calldata assembly (spec.md §4.7).
package cctp

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/relay-bridge/sdk-core/spokepool"
)

// DiscoveryFilter names the TokenMessenger contract, the expected sender
// addresses, and the DepositForBurn event's topic0, which callers resolve
// once per CCTP contract version (v1 and v2 TokenMessenger emit distinct
// signatures) rather than this package guessing at one.
type DiscoveryFilter struct {
	Token      common.Address
	Senders    []common.Address
	EventTopic common.Hash
}

// Discover builds a map of transaction hash to destination domain for
// every DepositForBurn event emitted by filter.Token on behalf of
// filter.Senders within [fromBlock, toBlock] (spec.md §4.7.1). The block
// range is chunked at maxBlockLookBack blocks per sub-query via
// spokepool.PaginatedQuery, reusing the same paginated-log-query
// machinery as the SpokePool event search (spec.md §4.6.5, "Event
// discovery reuses C6's paginated log query").
func Discover(ctx context.Context, filter DiscoveryFilter, fromBlock, toBlock, maxBlockLookBack uint64, querier spokepool.LogQuerier) (map[common.Hash]uint32, error) {
	senderTopics := make([]string, len(filter.Senders))
	for i, s := range filter.Senders {
		senderTopics[i] = common.BytesToHash(s.Bytes()).Hex()
	}

	base := spokepool.LogFilter{
		Address: []string{filter.Token.Hex()},
		Topics:  [][]string{{filter.EventTopic.Hex()}, senderTopics},
	}

	logs, err := spokepool.PaginatedQuery(ctx, base, fromBlock, toBlock, maxBlockLookBack, querier)
	if err != nil {
		return nil, err
	}

	out := make(map[common.Hash]uint32, len(logs))
	for _, l := range logs {
		destinationDomain, err := decodeDestinationDomain(l.Log.Data)
		if err != nil {
			continue
		}
		out[l.Log.TxHash] = destinationDomain
	}
	return out, nil
}

// decodeDestinationDomain extracts the destination domain from a
// DepositForBurn log's data. The Across CCTP DepositForBurn event encodes
// destinationDomain as the first 32-byte word of the non-indexed data
// (mirroring the message-body offsets of spec.md §4.7.5, where
// destinationDomain sits at bytes 8-12 of the broader message layout but is
// re-emitted here as a full word for ABI decoding convenience).
func decodeDestinationDomain(data []byte) (uint32, error) {
	if len(data) < 32 {
		return 0, errShortLogData
	}
	// Big-endian uint256 word; destination domain fits in the low 4 bytes.
	word := data[:32]
	return uint32(word[28])<<24 | uint32(word[29])<<16 | uint32(word[30])<<8 | uint32(word[31]), nil
}
