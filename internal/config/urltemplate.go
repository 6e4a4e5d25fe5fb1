package config

import (
	"fmt"
	"os"
	"strings"
)

// alchemySlugOverrides maps a chain's canonical name to the provider-specific
// slug used in URL templates, generalized from teacher's alchemyNetworks
// fixed map (internal/provider/alchemy/alchemy.go's "ethereum-mainnet" ->
// "eth-mainnet", "arbitrum-sepolia" -> "arb-sepolia", etc.) into the
// per-family templating rules of spec.md's "Upstream URL templates"
// section ("Slug overrides: arbitrum->arb, mainnet->eth, optimism->opt,
// plus sepolia variants"). Chains with no override (polygon, base, and
// their testnets) pass the chain name through unchanged, matching the
// teacher's own map where only ethereum/arbitrum/optimism get a shortened
// family slug.
var alchemySlugOverrides = map[string]string{
	"arbitrum":         "arb",
	"arbitrum-sepolia": "arb-sepolia",
	"mainnet":          "eth",
	"sepolia":          "eth-sepolia",
	"optimism":         "opt",
	"optimism-sepolia": "opt-sepolia",
}

// TemplateAlchemyURL builds `{transport}://{chainSlug}.g.alchemy.com/v2/{apiKey}`,
// where chainSlug is chain after alchemySlugOverrides; no "-mainnet" suffix
// is appended. transport is "https" or "wss"; chain is e.g. "mainnet",
// "arbitrum-sepolia".
func TemplateAlchemyURL(transport, chain, apiKey string) (string, error) {
	if apiKey == "" {
		return "", fmt.Errorf("config: alchemy api key is required")
	}
	slug := applySlugOverride(chain, alchemySlugOverrides)
	scheme := httpTransportScheme(transport)
	return fmt.Sprintf("%s://%s.g.alchemy.com/v2/%s", scheme, slug, apiKey), nil
}

// TemplateInfuraURL builds `https://{slug}.infura.io/v3/{apiKey}` (or the
// `wss://.../ws/v3/{apiKey}` variant), appending "-mainnet" for non-Ethereum
// mainnets per spec.md.
func TemplateInfuraURL(transport, chain, apiKey string, nonEthereumMainnet bool) (string, error) {
	if apiKey == "" {
		return "", fmt.Errorf("config: infura api key is required")
	}
	slug := chain
	if nonEthereumMainnet {
		slug += "-mainnet"
	}
	if transport == "wss" {
		return fmt.Sprintf("wss://%s.infura.io/ws/v3/%s", slug, apiKey), nil
	}
	return fmt.Sprintf("https://%s.infura.io/v3/%s", slug, apiKey), nil
}

// TemplateDRPCURL builds `{transport}://lb.drpc.org/og{rpc|ws}?network={slug}&dkey={apiKey}`.
func TemplateDRPCURL(transport, chain, apiKey string) (string, error) {
	if apiKey == "" {
		return "", fmt.Errorf("config: drpc api key is required")
	}
	scheme, suffix := "https", "rpc"
	if transport == "wss" {
		scheme, suffix = "wss", "ws"
	}
	return fmt.Sprintf("%s://lb.drpc.org/og%s?network=%s&dkey=%s", scheme, suffix, chain, apiKey), nil
}

// TemplateQuickNodeURL builds `{transport}://{customerPrefix}.{chainSlug}.quicknode.pro/{apiKey}`.
func TemplateQuickNodeURL(transport, customerPrefix, chain, apiKey string) (string, error) {
	if customerPrefix == "" {
		return "", fmt.Errorf("config: quicknode customer prefix is required")
	}
	if apiKey == "" {
		return "", fmt.Errorf("config: quicknode api key is required")
	}
	scheme := httpTransportScheme(transport)
	return fmt.Sprintf("%s://%s.%s.quicknode.pro/%s", scheme, customerPrefix, chain, apiKey), nil
}

// templateEndpointURL synthesizes e.URL from e.Name/e.Chain/e.Transport/
// e.APIKeyEnv/e.CustomerPrefix when an operator left URL blank, wiring
// spec.md's "Upstream URL templates" section into fleet-config resolution
// instead of leaving these Template*URL functions reachable only from
// tests. Endpoints that already carry an explicit URL are left untouched.
func templateEndpointURL(e *ProviderEndpoint) error {
	if e.URL != "" {
		return nil
	}

	transport := e.Transport
	if transport == "" {
		transport = "https"
	}
	apiKey := os.Getenv(e.APIKeyEnv)

	var (
		url string
		err error
	)
	switch strings.ToLower(e.Name) {
	case "alchemy":
		url, err = TemplateAlchemyURL(transport, e.Chain, apiKey)
	case "infura":
		url, err = TemplateInfuraURL(transport, e.Chain, apiKey, isNonEthereumMainnet(e.Chain))
	case "drpc":
		url, err = TemplateDRPCURL(transport, e.Chain, apiKey)
	case "quicknode":
		url, err = TemplateQuickNodeURL(transport, e.CustomerPrefix, e.Chain, apiKey)
	default:
		// Unrecognized provider names carry an explicit URL instead of
		// being templated; validate() below rejects a still-blank URL.
		return nil
	}
	if err != nil {
		return err
	}
	e.URL = url
	return nil
}

// isNonEthereumMainnet reports whether chain names a non-Ethereum chain's
// mainnet deployment, the case spec.md's Infura rule appends "-mainnet"
// for. Testnet chain names (which already carry their own "-sepolia"/
// "-mumbai" suffix) and Ethereum itself ("mainnet", "sepolia") are excluded.
func isNonEthereumMainnet(chain string) bool {
	return chain != "" && chain != "mainnet" && chain != "sepolia" && !strings.Contains(chain, "-")
}

func applySlugOverride(chain string, overrides map[string]string) string {
	if override, ok := overrides[chain]; ok {
		return override
	}
	return chain
}

func httpTransportScheme(transport string) string {
	if transport == "wss" || transport == "ws" {
		return "wss"
	}
	return "https"
}
