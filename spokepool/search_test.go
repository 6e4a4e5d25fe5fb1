package spokepool

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/relay-bridge/sdk-core/address"
	"github.com/relay-bridge/sdk-core/relaydata"
)

type fakeDepositCounter struct {
	// countAt(block) = number of deposits recorded at or before block.
	countAt func(block uint64) uint64
}

func (f fakeDepositCounter) NumberOfDeposits(ctx context.Context, blockNumber uint64) (uint64, error) {
	return f.countAt(blockNumber), nil
}

// TestFindDepositBlock mirrors a monotonically-increasing deposit counter
// that crosses depositId=500 at block 1750.
func TestFindDepositBlock(t *testing.T) {
	counter := fakeDepositCounter{countAt: func(block uint64) uint64 {
		if block < 1750 {
			return 400
		}
		return 600
	}}

	block, ok, err := FindDepositBlock(context.Background(), 500, 1000, 2000, counter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a found result")
	}
	if block != 1750 {
		t.Fatalf("expected block 1750, got %d", block)
	}
}

func TestFindDepositBlockRejectsUnsafeID(t *testing.T) {
	counter := fakeDepositCounter{countAt: func(block uint64) uint64 { return 0 }}
	_, _, err := FindDepositBlock(context.Background(), MaxSafeDepositID+1, 0, 100, counter)
	if err == nil {
		t.Fatal("expected ErrUnsafeDepositID")
	}
}

func TestFindDepositBlockNotFound(t *testing.T) {
	counter := fakeDepositCounter{countAt: func(block uint64) uint64 { return 1000 }}
	_, ok, err := FindDepositBlock(context.Background(), 5000, 0, 100, counter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected not-found")
	}
}

type fakeFillStatusReader struct {
	filledAtOrAfter uint64
}

func (f fakeFillStatusReader) FillStatus(ctx context.Context, hash common.Hash, blockNumber uint64) (FillStatus, error) {
	if blockNumber >= f.filledAtOrAfter {
		return Filled, nil
	}
	return Unfilled, nil
}

func zeroAddr(t *testing.T) address.Address {
	t.Helper()
	a, err := address.NewEVM(make([]byte, 20))
	if err != nil {
		t.Fatalf("failed to build zero address: %v", err)
	}
	return a
}

// TestFindFillBlock mirrors spec.md §8 scenario 4: Unfilled at block 1000,
// Filled at block 2000, first Filled at 1750; exactly binary-searched.
func TestFindFillBlock(t *testing.T) {
	data := relaydata.RelayData{
		Depositor: zeroAddr(t), Recipient: zeroAddr(t), ExclusiveRelayer: zeroAddr(t),
		InputToken: zeroAddr(t), OutputToken: zeroAddr(t),
		InputAmount: big.NewInt(1), OutputAmount: big.NewInt(1),
		OriginChainID: big.NewInt(1), DepositID: big.NewInt(0),
		FillDeadline: 0xffffffff,
	}
	reader := fakeFillStatusReader{filledAtOrAfter: 1750}

	block, ok, err := FindFillBlock(context.Background(), data, big.NewInt(10), 1000, 2000, reader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a found result")
	}
	if block != 1750 {
		t.Fatalf("expected block 1750, got %d", block)
	}
}

func TestFindFillBlockRejectsAlreadyFilledAtLow(t *testing.T) {
	data := relaydata.RelayData{
		Depositor: zeroAddr(t), Recipient: zeroAddr(t), ExclusiveRelayer: zeroAddr(t),
		InputToken: zeroAddr(t), OutputToken: zeroAddr(t),
		InputAmount: big.NewInt(1), OutputAmount: big.NewInt(1),
		OriginChainID: big.NewInt(1), DepositID: big.NewInt(0),
	}
	reader := fakeFillStatusReader{filledAtOrAfter: 0}

	_, _, err := FindFillBlock(context.Background(), data, big.NewInt(10), 1000, 2000, reader)
	if err == nil {
		t.Fatal("expected an error when already Filled at low")
	}
}
