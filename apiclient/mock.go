package apiclient

import (
	"context"
	"fmt"
	"math/big"
	"sync"
)

// MockClient is a mock Client for testing, mirroring teacher's
// MockRPCClient: per-operation canned responses/errors plus call counts.
type MockClient struct {
	mu sync.RWMutex

	coinGeckoResponses map[string]CoinGeckoPrice
	feesResponses      map[string]SuggestedFees
	limitsResponses    map[string]BridgeLimits
	statsResponse      *AcrossStats
	allowanceResponses map[uint32]FastBurnAllowance

	errors    map[string]error
	callCount map[string]int
}

// NewMockClient creates an empty MockClient.
func NewMockClient() *MockClient {
	return &MockClient{
		coinGeckoResponses: make(map[string]CoinGeckoPrice),
		feesResponses:      make(map[string]SuggestedFees),
		limitsResponses:    make(map[string]BridgeLimits),
		allowanceResponses: make(map[uint32]FastBurnAllowance),
		errors:             make(map[string]error),
		callCount:          make(map[string]int),
	}
}

func (m *MockClient) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount[op]++
}

// GetCallCount returns how many times op ("GetCoinGeckoData",
// "GetSuggestedFees", "GetBridgeLimits", "GetAcrossStats",
// "GetV2FastBurnAllowance") was invoked.
func (m *MockClient) GetCallCount(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.callCount[op]
}

// SetError configures op to fail with err on every call until Reset.
func (m *MockClient) SetError(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[op] = err
}

func (m *MockClient) errorFor(op string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.errors[op]
}

// SetCoinGeckoData configures the canned response for a (token, currency) pair.
func (m *MockClient) SetCoinGeckoData(l1Token, baseCurrency string, price CoinGeckoPrice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coinGeckoResponses[l1Token+"|"+baseCurrency] = price
}

func (m *MockClient) GetCoinGeckoData(ctx context.Context, l1Token, baseCurrency string) (CoinGeckoPrice, error) {
	m.record("GetCoinGeckoData")
	if err := m.errorFor("GetCoinGeckoData"); err != nil {
		return CoinGeckoPrice{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	price, ok := m.coinGeckoResponses[l1Token+"|"+baseCurrency]
	if !ok {
		return CoinGeckoPrice{}, fmt.Errorf("apiclient: no mock price configured for %s/%s", l1Token, baseCurrency)
	}
	return price, nil
}

// SetSuggestedFees configures the canned response for a route key.
func (m *MockClient) SetSuggestedFees(key string, fees SuggestedFees) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feesResponses[key] = fees
}

func (m *MockClient) GetSuggestedFees(ctx context.Context, amount *big.Int, originToken string, fromChain, toChain int64) (SuggestedFees, error) {
	m.record("GetSuggestedFees")
	if err := m.errorFor("GetSuggestedFees"); err != nil {
		return SuggestedFees{}, err
	}
	key := fmt.Sprintf("%s:%d:%d", originToken, fromChain, toChain)
	m.mu.RLock()
	defer m.mu.RUnlock()
	fees, ok := m.feesResponses[key]
	if !ok {
		return SuggestedFees{}, fmt.Errorf("apiclient: no mock fees configured for %s", key)
	}
	return fees, nil
}

// SetBridgeLimits configures the canned response for a route key.
func (m *MockClient) SetBridgeLimits(key string, limits BridgeLimits) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limitsResponses[key] = limits
}

func (m *MockClient) GetBridgeLimits(ctx context.Context, token string, fromChain, toChain int64) (BridgeLimits, error) {
	m.record("GetBridgeLimits")
	if err := m.errorFor("GetBridgeLimits"); err != nil {
		return BridgeLimits{}, err
	}
	key := fmt.Sprintf("%s:%d:%d", token, fromChain, toChain)
	m.mu.RLock()
	defer m.mu.RUnlock()
	limits, ok := m.limitsResponses[key]
	if !ok {
		return BridgeLimits{}, fmt.Errorf("apiclient: no mock limits configured for %s", key)
	}
	return limits, nil
}

// SetAcrossStats configures the canned statistics response.
func (m *MockClient) SetAcrossStats(stats AcrossStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statsResponse = &stats
}

func (m *MockClient) GetAcrossStats(ctx context.Context) (AcrossStats, error) {
	m.record("GetAcrossStats")
	if err := m.errorFor("GetAcrossStats"); err != nil {
		return AcrossStats{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.statsResponse == nil {
		return AcrossStats{}, fmt.Errorf("apiclient: no mock stats configured")
	}
	return *m.statsResponse, nil
}

// SetV2FastBurnAllowance configures the canned response for a domain.
func (m *MockClient) SetV2FastBurnAllowance(domainID uint32, allowance FastBurnAllowance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowanceResponses[domainID] = allowance
}

func (m *MockClient) GetV2FastBurnAllowance(ctx context.Context, domainID uint32) (FastBurnAllowance, error) {
	m.record("GetV2FastBurnAllowance")
	if err := m.errorFor("GetV2FastBurnAllowance"); err != nil {
		return FastBurnAllowance{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	allowance, ok := m.allowanceResponses[domainID]
	if !ok {
		return FastBurnAllowance{}, fmt.Errorf("apiclient: no mock allowance configured for domain %d", domainID)
	}
	return allowance, nil
}

// Reset clears all configured responses, errors, and call counts.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coinGeckoResponses = make(map[string]CoinGeckoPrice)
	m.feesResponses = make(map[string]SuggestedFees)
	m.limitsResponses = make(map[string]BridgeLimits)
	m.statsResponse = nil
	m.allowanceResponses = make(map[uint32]FastBurnAllowance)
	m.errors = make(map[string]error)
	m.callCount = make(map[string]int)
}

var _ Client = (*MockClient)(nil)
