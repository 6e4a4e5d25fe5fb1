package config

import (
	"os"
	"testing"
)

const sampleYAML = `
version: "1.0"
chains:
  - chain_id: 1
    node_quorum_threshold: 2
    retries: 2
    retry_delay_ms: 250
    max_block_look_back: 2000
    endpoints:
      - name: alchemy
        url: https://eth-mainnet.g.alchemy.com/v2/${TEST_ALCHEMY_KEY}
        required: true
        priority: 10
        max_concurrency: 5
        pct_rpc_calls_logged: 5
        enabled: true
      - name: infura
        url: https://mainnet.infura.io/v3/${TEST_INFURA_KEY}
        required: true
        priority: 8
        max_concurrency: 5
        pct_rpc_calls_logged: 5
        enabled: true
      - name: quicknode
        url: https://example.quiknode.pro/abc
        required: false
        priority: 1
        max_concurrency: 5
        pct_rpc_calls_logged: 0
        enabled: true
`

func TestLoadBytesResolvesEnvPlaceholders(t *testing.T) {
	os.Setenv("TEST_ALCHEMY_KEY", "abc123")
	os.Setenv("TEST_INFURA_KEY", "def456")
	defer os.Unsetenv("TEST_ALCHEMY_KEY")
	defer os.Unsetenv("TEST_INFURA_KEY")

	store, err := LoadBytes([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	endpoints := store.EnabledEndpoints(1)
	if len(endpoints) != 3 {
		t.Fatalf("expected 3 enabled endpoints, got %d", len(endpoints))
	}
	if endpoints[0].Name != "alchemy" {
		t.Fatalf("expected alchemy first by priority, got %s", endpoints[0].Name)
	}
	if endpoints[0].URL != "https://eth-mainnet.g.alchemy.com/v2/abc123" {
		t.Fatalf("expected env placeholder resolved, got %s", endpoints[0].URL)
	}
}

func TestLoadBytesRejectsInsufficientRequiredEndpoints(t *testing.T) {
	badYAML := `
version: "1.0"
chains:
  - chain_id: 1
    node_quorum_threshold: 2
    endpoints:
      - name: alchemy
        url: https://eth-mainnet.g.alchemy.com/v2/abc
        required: true
        enabled: true
`
	_, err := LoadBytes([]byte(badYAML))
	if err == nil {
		t.Fatal("expected an error when required endpoints < node_quorum_threshold")
	}
}

func TestLoadBytesRejectsMismatchedProviderHost(t *testing.T) {
	badYAML := `
version: "1.0"
chains:
  - chain_id: 1
    node_quorum_threshold: 1
    endpoints:
      - name: infura
        url: https://not-infura.example.com/v3/key
        required: true
        enabled: true
`
	_, err := LoadBytes([]byte(badYAML))
	if err == nil {
		t.Fatal("expected an error for an infura endpoint not pointing at infura.io")
	}
}

func TestEnabledEndpointsSkipsDisabled(t *testing.T) {
	yamlDoc := `
version: "1.0"
chains:
  - chain_id: 10
    node_quorum_threshold: 1
    endpoints:
      - name: alchemy
        url: https://opt-mainnet.g.alchemy.com/v2/key
        required: true
        enabled: true
      - name: quicknode
        url: https://example.quiknode.pro/xyz
        required: false
        enabled: false
`
	store, err := LoadBytes([]byte(yamlDoc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	endpoints := store.EnabledEndpoints(10)
	if len(endpoints) != 1 {
		t.Fatalf("expected 1 enabled endpoint, got %d", len(endpoints))
	}
}

func TestLoadBytesTemplatesBlankEndpointURL(t *testing.T) {
	os.Setenv("TEST_TEMPLATED_ALCHEMY_KEY", "key789")
	defer os.Unsetenv("TEST_TEMPLATED_ALCHEMY_KEY")

	yamlDoc := `
version: "1.0"
chains:
  - chain_id: 42161
    node_quorum_threshold: 1
    endpoints:
      - name: alchemy
        chain: arbitrum-sepolia
        api_key_env: TEST_TEMPLATED_ALCHEMY_KEY
        required: true
        enabled: true
`
	store, err := LoadBytes([]byte(yamlDoc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	endpoints := store.EnabledEndpoints(42161)
	if len(endpoints) != 1 {
		t.Fatalf("expected 1 enabled endpoint, got %d", len(endpoints))
	}
	want := "https://arb-sepolia.g.alchemy.com/v2/key789"
	if endpoints[0].URL != want {
		t.Fatalf("expected templated url %s, got %s", want, endpoints[0].URL)
	}
}

func TestLoadBytesRejectsBlankTemplatedURLMissingKey(t *testing.T) {
	yamlDoc := `
version: "1.0"
chains:
  - chain_id: 1
    node_quorum_threshold: 1
    endpoints:
      - name: alchemy
        chain: mainnet
        required: true
        enabled: true
`
	if _, err := LoadBytes([]byte(yamlDoc)); err == nil {
		t.Fatal("expected an error when templating is missing an api key")
	}
}

func TestChainsReturnsConfiguredIDs(t *testing.T) {
	store, err := LoadBytes([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := store.Chains()
	if len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("expected [1], got %v", ids)
	}
}
