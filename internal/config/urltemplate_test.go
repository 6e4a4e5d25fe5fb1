package config

import "testing"

func TestTemplateAlchemyURLAppliesSlugOverrides(t *testing.T) {
	url, err := TemplateAlchemyURL("https", "arbitrum", "key123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://arb.g.alchemy.com/v2/key123" {
		t.Fatalf("unexpected url: %s", url)
	}
}

func TestTemplateAlchemyURLRejectsEmptyKey(t *testing.T) {
	if _, err := TemplateAlchemyURL("https", "mainnet", ""); err == nil {
		t.Fatal("expected an error for an empty api key")
	}
}

func TestTemplateAlchemyURLAppliesSepoliaVariants(t *testing.T) {
	for chain, wantSlug := range map[string]string{
		"arbitrum-sepolia": "arb-sepolia",
		"optimism-sepolia": "opt-sepolia",
		"sepolia":          "eth-sepolia",
		"base-sepolia":     "base-sepolia",
	} {
		url, err := TemplateAlchemyURL("https", chain, "key123")
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", chain, err)
		}
		want := "https://" + wantSlug + ".g.alchemy.com/v2/key123"
		if url != want {
			t.Fatalf("chain %s: got %s, want %s", chain, url, want)
		}
	}
}

func TestTemplateInfuraURLAppendsMainnetSuffix(t *testing.T) {
	url, err := TemplateInfuraURL("https", "polygon", "key456", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://polygon-mainnet.infura.io/v3/key456" {
		t.Fatalf("unexpected url: %s", url)
	}
}

func TestTemplateInfuraURLWebsocketVariant(t *testing.T) {
	url, err := TemplateInfuraURL("wss", "mainnet", "key456", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "wss://mainnet.infura.io/ws/v3/key456" {
		t.Fatalf("unexpected url: %s", url)
	}
}

func TestTemplateDRPCURL(t *testing.T) {
	url, err := TemplateDRPCURL("https", "ethereum", "dkey789")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://lb.drpc.org/ogrpc?network=ethereum&dkey=dkey789" {
		t.Fatalf("unexpected url: %s", url)
	}
}

func TestTemplateQuickNodeURL(t *testing.T) {
	url, err := TemplateQuickNodeURL("https", "acme", "eth-mainnet", "key000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://acme.eth-mainnet.quicknode.pro/key000" {
		t.Fatalf("unexpected url: %s", url)
	}
}

func TestTemplateQuickNodeURLRejectsMissingPrefix(t *testing.T) {
	if _, err := TemplateQuickNodeURL("https", "", "eth-mainnet", "key000"); err == nil {
		t.Fatal("expected an error for a missing customer prefix")
	}
}
