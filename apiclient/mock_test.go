package apiclient

import (
	"context"
	"math/big"
	"testing"
)

func TestMockClientCoinGeckoData(t *testing.T) {
	m := NewMockClient()
	m.SetCoinGeckoData("ethereum", "usd", CoinGeckoPrice{L1Token: "ethereum", BaseCurrency: "usd", Price: 3000})

	price, err := m.GetCoinGeckoData(context.Background(), "ethereum", "usd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price.Price != 3000 {
		t.Fatalf("expected price 3000, got %v", price.Price)
	}
	if m.GetCallCount("GetCoinGeckoData") != 1 {
		t.Fatalf("expected call count 1, got %d", m.GetCallCount("GetCoinGeckoData"))
	}
}

func TestMockClientMissingResponseErrors(t *testing.T) {
	m := NewMockClient()
	_, err := m.GetAcrossStats(context.Background())
	if err == nil {
		t.Fatal("expected an error when no stats are configured")
	}
}

func TestMockClientConfiguredError(t *testing.T) {
	m := NewMockClient()
	m.SetError("GetBridgeLimits", context.DeadlineExceeded)

	_, err := m.GetBridgeLimits(context.Background(), "USDC", 1, 10)
	if err != context.DeadlineExceeded {
		t.Fatalf("expected configured error, got %v", err)
	}
}

func TestMockClientSuggestedFeesRoundTrip(t *testing.T) {
	m := NewMockClient()
	m.SetSuggestedFees("USDC:1:10", SuggestedFees{TotalRelayFeePct: big.NewInt(100)})

	fees, err := m.GetSuggestedFees(context.Background(), big.NewInt(1000), "USDC", 1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fees.TotalRelayFeePct.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("unexpected fee: %v", fees.TotalRelayFeePct)
	}
}

func TestMockClientResetClearsState(t *testing.T) {
	m := NewMockClient()
	m.SetAcrossStats(AcrossStats{TotalTransfers: 5})
	m.GetAcrossStats(context.Background())
	m.Reset()

	if m.GetCallCount("GetAcrossStats") != 0 {
		t.Fatal("expected call count reset")
	}
	if _, err := m.GetAcrossStats(context.Background()); err == nil {
		t.Fatal("expected reset to clear configured stats")
	}
}
