// Package config loads and validates the provider fleet configuration: the
// set of upstream RPC endpoints, per-chain quorum thresholds, and rate
// limits that rpcprovider.BuildFleet wires into a decorated Transport chain.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ProviderEndpoint describes one upstream RPC endpoint.
type ProviderEndpoint struct {
	// Name identifies the provider implementation ("alchemy", "infura",
	// "quicknode", "helius", ...).
	Name string `yaml:"name"`

	// URL is the endpoint URL, optionally containing an "${ENV_VAR}"
	// placeholder resolved against the process environment at load time.
	URL string `yaml:"url"`

	// Required marks this endpoint as part of the quorum's required set
	// (spec.md §4.4 step 1); non-required endpoints are fallbacks.
	Required bool `yaml:"required"`

	// Priority determines provider selection order among fallbacks
	// (higher = preferred), mirroring teacher's ProviderConfig.Priority.
	Priority int `yaml:"priority"`

	// MaxConcurrency bounds in-flight requests to this endpoint (C1).
	MaxConcurrency int `yaml:"max_concurrency"`

	// PctRPCCallsLogged is the sampled-debug-logging rate in [0,100] (C1).
	PctRPCCallsLogged int `yaml:"pct_rpc_calls_logged"`

	Enabled bool `yaml:"enabled"`

	// Chain, Transport, APIKeyEnv and CustomerPrefix drive URL templating
	// (internal/config/urltemplate.go, spec.md's "Upstream URL templates")
	// when URL is left blank: an operator can configure "alchemy" +
	// chain: "arbitrum-sepolia" + api_key_env: "ALCHEMY_KEY" instead of
	// spelling out the full endpoint URL by hand. Endpoints that set URL
	// directly ignore these fields entirely.
	Chain          string `yaml:"chain,omitempty"`
	Transport      string `yaml:"transport,omitempty"`
	APIKeyEnv      string `yaml:"api_key_env,omitempty"`
	CustomerPrefix string `yaml:"customer_prefix,omitempty"`
}

// ChainConfig is the set of endpoints and quorum parameters for one chain.
type ChainConfig struct {
	ChainID             int64              `yaml:"chain_id"`
	NodeQuorumThreshold int                `yaml:"node_quorum_threshold"`
	Retries             int                `yaml:"retries"`
	RetryDelayMillis    int                `yaml:"retry_delay_ms"`
	MaxBlockLookBack    int64              `yaml:"max_block_look_back"`
	Endpoints           []ProviderEndpoint `yaml:"endpoints"`
}

// FleetConfig is the root configuration document.
type FleetConfig struct {
	Version string        `yaml:"version"`
	Chains  []ChainConfig `yaml:"chains"`
}

// Store holds a loaded FleetConfig and serves concurrent reads, mirroring
// teacher's ProviderConfigStore shape (load/validate/lookup) but backed by
// a single YAML document instead of per-provider encrypted files: read-only
// RPC endpoint URLs and API keys carried in them are not secrets requiring
// disk encryption in this core (see DESIGN.md for the dropped AES layer).
type Store struct {
	mu     sync.RWMutex
	chains map[int64]ChainConfig
}

// Load reads, resolves env placeholders in, and validates a FleetConfig
// from a YAML file at path.
func Load(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return LoadBytes(raw)
}

// LoadBytes parses a FleetConfig from raw YAML bytes.
func LoadBytes(raw []byte) (*Store, error) {
	var doc FleetConfig
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := templateEndpointURLs(&doc); err != nil {
		return nil, err
	}
	resolveEnvPlaceholders(&doc)

	if err := validate(doc); err != nil {
		return nil, err
	}

	chains := make(map[int64]ChainConfig, len(doc.Chains))
	for _, c := range doc.Chains {
		chains[c.ChainID] = c
	}
	return &Store{chains: chains}, nil
}

// ChainConfig returns the configuration for chainID, or false if absent.
func (s *Store) ChainConfig(chainID int64) (ChainConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chains[chainID]
	return c, ok
}

// Chains returns every configured chain ID.
func (s *Store) Chains() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, 0, len(s.chains))
	for id := range s.chains {
		ids = append(ids, id)
	}
	return ids
}

// EnabledEndpoints returns chainID's enabled endpoints, required first,
// each group ordered by descending priority.
func (s *Store) EnabledEndpoints(chainID int64) []ProviderEndpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.chains[chainID]
	if !ok {
		return nil
	}

	var required, fallback []ProviderEndpoint
	for _, e := range c.Endpoints {
		if !e.Enabled {
			continue
		}
		if e.Required {
			required = append(required, e)
		} else {
			fallback = append(fallback, e)
		}
	}
	sortByPriorityDesc(required)
	sortByPriorityDesc(fallback)
	return append(required, fallback...)
}

func sortByPriorityDesc(endpoints []ProviderEndpoint) {
	for i := 1; i < len(endpoints); i++ {
		j := i
		for j > 0 && endpoints[j-1].Priority < endpoints[j].Priority {
			endpoints[j-1], endpoints[j] = endpoints[j], endpoints[j-1]
			j--
		}
	}
}

func validate(doc FleetConfig) error {
	if len(doc.Chains) == 0 {
		return fmt.Errorf("config: no chains configured")
	}
	seen := make(map[int64]bool)
	for _, c := range doc.Chains {
		if c.ChainID == 0 {
			return fmt.Errorf("config: chain_id is required")
		}
		if seen[c.ChainID] {
			return fmt.Errorf("config: duplicate chain_id %d", c.ChainID)
		}
		seen[c.ChainID] = true

		if c.NodeQuorumThreshold < 1 {
			return fmt.Errorf("config: chain %d: node_quorum_threshold must be >= 1", c.ChainID)
		}
		if len(c.Endpoints) == 0 {
			return fmt.Errorf("config: chain %d: at least one endpoint is required", c.ChainID)
		}
		requiredCount := 0
		for _, e := range c.Endpoints {
			if e.Name == "" {
				return fmt.Errorf("config: chain %d: endpoint name is required", c.ChainID)
			}
			if e.URL == "" {
				return fmt.Errorf("config: chain %d: endpoint %s: url is required", c.ChainID, e.Name)
			}
			if e.Required {
				requiredCount++
			}
			if err := validateEndpointURL(e); err != nil {
				return fmt.Errorf("config: chain %d: endpoint %s: %w", c.ChainID, e.Name, err)
			}
		}
		if requiredCount < c.NodeQuorumThreshold {
			return fmt.Errorf("config: chain %d: only %d required endpoints configured, need >= node_quorum_threshold (%d)", c.ChainID, requiredCount, c.NodeQuorumThreshold)
		}
	}
	return nil
}

// validateEndpointURL performs the same shallow provider-specific checks as
// teacher's ValidateAPIKey, generalized from API-key-shape checks to
// endpoint-URL-shape checks since this core never persists raw API keys.
func validateEndpointURL(e ProviderEndpoint) error {
	switch strings.ToLower(e.Name) {
	case "infura":
		if !strings.Contains(e.URL, "infura.io") {
			return fmt.Errorf("infura endpoint url does not look like an infura.io host")
		}
	case "alchemy":
		if !strings.Contains(e.URL, "alchemy.com") && !strings.Contains(e.URL, "g.alchemy.com") {
			return fmt.Errorf("alchemy endpoint url does not look like an alchemy host")
		}
	case "quicknode":
		if e.URL == "" {
			return fmt.Errorf("quicknode requires a custom endpoint url")
		}
	}
	if !strings.HasPrefix(e.URL, "http://") && !strings.HasPrefix(e.URL, "https://") {
		return fmt.Errorf("endpoint url must be http(s)")
	}
	return nil
}

// templateEndpointURLs fills in URL for every endpoint that left it blank,
// synthesizing it from Name/Chain/Transport/APIKeyEnv/CustomerPrefix via
// the per-provider templates in urltemplate.go. Endpoints that already
// carry an explicit URL pass through unchanged.
func templateEndpointURLs(doc *FleetConfig) error {
	for i := range doc.Chains {
		for j := range doc.Chains[i].Endpoints {
			e := &doc.Chains[i].Endpoints[j]
			if err := templateEndpointURL(e); err != nil {
				return fmt.Errorf("config: chain %d: endpoint %s: %w", doc.Chains[i].ChainID, e.Name, err)
			}
		}
	}
	return nil
}

// resolveEnvPlaceholders rewrites "${VAR}" occurrences in endpoint URLs
// against the process environment, the same one-field-at-a-time resolution
// teacher's NewProviderConfigStore performs for API keys loaded from env.
func resolveEnvPlaceholders(doc *FleetConfig) {
	for i := range doc.Chains {
		for j := range doc.Chains[i].Endpoints {
			doc.Chains[i].Endpoints[j].URL = expandEnv(doc.Chains[i].Endpoints[j].URL)
		}
	}
}

func expandEnv(s string) string {
	return os.Expand(s, func(name string) string {
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return ""
	})
}

// ParseChainID parses a decimal chain ID from a CLI flag or env var,
// returning a descriptive error on malformed input.
func ParseChainID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid chain id %q: %w", s, err)
	}
	return id, nil
}
