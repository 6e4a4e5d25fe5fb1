package cctp

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/relay-bridge/sdk-core/chainutils"
	"github.com/relay-bridge/sdk-core/spokepool"
)

// fakeLogQuerier records each sub-range it was asked to query, so tests
// can assert Discover actually chunks via spokepool.PaginatedQuery rather
// than issuing one unbounded query.
type fakeLogQuerier struct {
	ranges [][2]uint64
	byTx   map[uint64]types.Log // keyed by FromBlock, one log per chunk
}

func (f *fakeLogQuerier) QueryLogs(ctx context.Context, filter spokepool.LogFilter) ([]chainutils.SortableLog, error) {
	f.ranges = append(f.ranges, [2]uint64{filter.FromBlock, filter.ToBlock})
	log, ok := f.byTx[filter.FromBlock]
	if !ok {
		return nil, nil
	}
	return []chainutils.SortableLog{chainutils.NewSortableLog(log)}, nil
}

func domainWord(domain uint32) []byte {
	data := make([]byte, 32)
	data[28] = byte(domain >> 24)
	data[29] = byte(domain >> 16)
	data[30] = byte(domain >> 8)
	data[31] = byte(domain)
	return data
}

func TestDiscoverChunksRangeViaPaginatedQuery(t *testing.T) {
	token := common.HexToAddress("0x1111111111111111111111111111111111111111")
	sender := common.HexToAddress("0x2222222222222222222222222222222222222222")
	eventTopic := common.HexToHash("0x3333333333333333333333333333333333333333333333333333333333333")

	tx1 := common.HexToHash("0xaaaa000000000000000000000000000000000000000000000000000000aa")
	tx2 := common.HexToHash("0xbbbb000000000000000000000000000000000000000000000000000000bb")

	querier := &fakeLogQuerier{
		byTx: map[uint64]types.Log{
			0:   {TxHash: tx1, Data: domainWord(6)},
			100: {TxHash: tx2, Data: domainWord(9)},
		},
	}

	out, err := Discover(context.Background(), DiscoveryFilter{
		Token:      token,
		Senders:    []common.Address{sender},
		EventTopic: eventTopic,
	}, 0, 199, 100, querier)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(querier.ranges) != 2 {
		t.Fatalf("expected Discover to chunk into 2 sub-queries, got %d: %v", len(querier.ranges), querier.ranges)
	}
	if querier.ranges[0] != [2]uint64{0, 99} || querier.ranges[1] != [2]uint64{100, 199} {
		t.Fatalf("unexpected chunk ranges: %v", querier.ranges)
	}

	if out[tx1] != 6 || out[tx2] != 9 {
		t.Fatalf("unexpected discovery result: %+v", out)
	}
}

func TestDiscoverBuildsTokenAndSenderTopics(t *testing.T) {
	token := common.HexToAddress("0x1111111111111111111111111111111111111111")
	sender := common.HexToAddress("0x2222222222222222222222222222222222222222")
	eventTopic := common.HexToHash("0x3333333333333333333333333333333333333333333333333333333333333")

	var captured spokepool.LogFilter
	querier := captureQuerier{capture: &captured}

	if _, err := Discover(context.Background(), DiscoveryFilter{
		Token:      token,
		Senders:    []common.Address{sender},
		EventTopic: eventTopic,
	}, 0, 0, 0, querier); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(captured.Address) != 1 || captured.Address[0] != token.Hex() {
		t.Fatalf("expected filter address to be the token, got %v", captured.Address)
	}
	if len(captured.Topics) != 2 || captured.Topics[0][0] != eventTopic.Hex() {
		t.Fatalf("expected topic0 to be the event topic, got %v", captured.Topics)
	}
	if captured.Topics[1][0] != common.BytesToHash(sender.Bytes()).Hex() {
		t.Fatalf("expected topic1 to carry the padded sender address, got %v", captured.Topics[1])
	}
}

type captureQuerier struct {
	capture *spokepool.LogFilter
}

func (c captureQuerier) QueryLogs(ctx context.Context, filter spokepool.LogFilter) ([]chainutils.SortableLog, error) {
	*c.capture = filter
	return nil, nil
}
