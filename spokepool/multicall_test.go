package spokepool

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

type fakeMulticallCaller struct {
	statusFor func(call []byte) FillStatus
}

func (f fakeMulticallCaller) Multicall(ctx context.Context, calldata [][]byte) ([][]byte, error) {
	out := make([][]byte, len(calldata))
	for i, call := range calldata {
		status := f.statusFor(call)
		packed, err := parsedSpokePoolABI.Methods["fillStatuses"].Outputs.Pack(uint8(status))
		if err != nil {
			return nil, err
		}
		out[i] = packed
	}
	return out, nil
}

func TestBatchFillStatusesDecodesEachSlot(t *testing.T) {
	hashes := []common.Hash{{0x01}, {0x02}, {0x03}}
	caller := fakeMulticallCaller{statusFor: func(call []byte) FillStatus {
		switch string(call) {
		case string(mustPackFillStatuses(t, hashes[0])):
			return Unfilled
		case string(mustPackFillStatuses(t, hashes[1])):
			return RequestedSlowFill
		default:
			return Filled
		}
	}}

	statuses, err := BatchFillStatuses(context.Background(), hashes, caller)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []FillStatus{Unfilled, RequestedSlowFill, Filled}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("hash %d: expected %v, got %v", i, want[i], statuses[i])
		}
	}
}

func TestBatchFillStatusesChunksAt250(t *testing.T) {
	hashes := make([]common.Hash, 260)
	for i := range hashes {
		hashes[i] = common.Hash{byte(i), byte(i >> 8)}
	}
	var chunkSizes []int
	caller := fakeMulticallCaller{statusFor: func(call []byte) FillStatus { return Filled }}
	wrapped := countingMulticallCaller{inner: caller, sizes: &chunkSizes}

	statuses, err := BatchFillStatuses(context.Background(), hashes, wrapped)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(statuses) != 260 {
		t.Fatalf("expected 260 statuses, got %d", len(statuses))
	}
	if len(chunkSizes) != 2 || chunkSizes[0] != 250 || chunkSizes[1] != 10 {
		t.Fatalf("expected chunk sizes [250 10], got %v", chunkSizes)
	}
}

func TestBatchFillStatusesRejectsOutOfRangeValue(t *testing.T) {
	hashes := []common.Hash{{0x01}}
	caller := fakeOutOfRangeMulticallCaller{}

	_, err := BatchFillStatuses(context.Background(), hashes, caller)
	if err == nil {
		t.Fatal("expected an error for a fillStatuses value outside {0,1,2}")
	}
}

type fakeOutOfRangeMulticallCaller struct{}

func (fakeOutOfRangeMulticallCaller) Multicall(ctx context.Context, calldata [][]byte) ([][]byte, error) {
	out := make([][]byte, len(calldata))
	for i := range calldata {
		packed, err := parsedSpokePoolABI.Methods["fillStatuses"].Outputs.Pack(uint8(7))
		if err != nil {
			return nil, err
		}
		out[i] = packed
	}
	return out, nil
}

type countingMulticallCaller struct {
	inner fakeMulticallCaller
	sizes *[]int
}

func (c countingMulticallCaller) Multicall(ctx context.Context, calldata [][]byte) ([][]byte, error) {
	*c.sizes = append(*c.sizes, len(calldata))
	return c.inner.Multicall(ctx, calldata)
}

func mustPackFillStatuses(t *testing.T, h common.Hash) []byte {
	t.Helper()
	packed, err := parsedSpokePoolABI.Pack("fillStatuses", h)
	if err != nil {
		t.Fatalf("failed to pack fillStatuses: %v", err)
	}
	return packed
}
