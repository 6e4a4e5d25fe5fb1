package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"time"
)

// HTTPClient is the production Client, issuing GET requests against the
// quote service's REST API, mirroring teacher's HTTPRPCClient's
// build-request/execute/decode-JSON-RPC-response shape but for plain REST
// endpoints instead of JSON-RPC envelopes.
type HTTPClient struct {
	baseURL      string
	coinGeckoURL string
	httpClient   *http.Client
}

// NewHTTPClient builds an HTTPClient against baseURL (the quote service)
// and coinGeckoURL (CoinGecko's public API), with a bounded request
// timeout.
func NewHTTPClient(baseURL, coinGeckoURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL:      baseURL,
		coinGeckoURL: coinGeckoURL,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("apiclient: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("apiclient: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("apiclient: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("apiclient: HTTP %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("apiclient: decode response: %w", err)
	}
	return nil
}

// GetCoinGeckoData fetches l1Token's spot price in baseCurrency.
func (c *HTTPClient) GetCoinGeckoData(ctx context.Context, l1Token, baseCurrency string) (CoinGeckoPrice, error) {
	q := url.Values{}
	q.Set("ids", l1Token)
	q.Set("vs_currencies", baseCurrency)

	rawURL := c.coinGeckoURL + "/simple/price?" + q.Encode()

	var raw map[string]map[string]float64
	if err := c.getJSON(ctx, rawURL, &raw); err != nil {
		return CoinGeckoPrice{}, err
	}

	prices, ok := raw[l1Token]
	if !ok {
		return CoinGeckoPrice{}, fmt.Errorf("apiclient: no price data for token %s", l1Token)
	}
	price, ok := prices[baseCurrency]
	if !ok {
		return CoinGeckoPrice{}, fmt.Errorf("apiclient: no price data for currency %s", baseCurrency)
	}

	return CoinGeckoPrice{L1Token: l1Token, BaseCurrency: baseCurrency, Price: price}, nil
}

// GetSuggestedFees fetches the fee breakdown for a prospective deposit.
func (c *HTTPClient) GetSuggestedFees(ctx context.Context, amount *big.Int, originToken string, fromChain, toChain int64) (SuggestedFees, error) {
	q := url.Values{}
	q.Set("amount", amount.String())
	q.Set("inputToken", originToken)
	q.Set("originChainId", fmt.Sprintf("%d", fromChain))
	q.Set("destinationChainId", fmt.Sprintf("%d", toChain))

	rawURL := c.baseURL + "/suggested-fees?" + q.Encode()

	var fees SuggestedFees
	if err := c.getJSON(ctx, rawURL, &fees); err != nil {
		return SuggestedFees{}, err
	}
	return fees, nil
}

// GetBridgeLimits fetches the min/max depositable amount for a token route.
func (c *HTTPClient) GetBridgeLimits(ctx context.Context, token string, fromChain, toChain int64) (BridgeLimits, error) {
	q := url.Values{}
	q.Set("token", token)
	q.Set("originChainId", fmt.Sprintf("%d", fromChain))
	q.Set("destinationChainId", fmt.Sprintf("%d", toChain))

	rawURL := c.baseURL + "/limits?" + q.Encode()

	var limits BridgeLimits
	if err := c.getJSON(ctx, rawURL, &limits); err != nil {
		return BridgeLimits{}, err
	}
	return limits, nil
}

// GetAcrossStats fetches aggregate protocol statistics.
func (c *HTTPClient) GetAcrossStats(ctx context.Context) (AcrossStats, error) {
	var stats AcrossStats
	if err := c.getJSON(ctx, c.baseURL+"/stats", &stats); err != nil {
		return AcrossStats{}, err
	}
	return stats, nil
}

// GetV2FastBurnAllowance fetches the CCTP v2 fast-burn allowance remaining
// for a domain.
func (c *HTTPClient) GetV2FastBurnAllowance(ctx context.Context, domainID uint32) (FastBurnAllowance, error) {
	rawURL := fmt.Sprintf("%s/cctp/v2/fast-burn-allowance/%d", c.baseURL, domainID)

	var allowance FastBurnAllowance
	if err := c.getJSON(ctx, rawURL, &allowance); err != nil {
		return FastBurnAllowance{}, err
	}
	return allowance, nil
}

var _ Client = (*HTTPClient)(nil)
