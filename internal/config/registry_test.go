package config

import "testing"

const validRegistry = `
chain_id: 56
tracked_tokens:
  - "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
  - "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
routers:
  - "0xffffffffffffffffffffffffffffffffffffffff"
contracts:
  - address: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
    kind: token
  - address: "0xcccccccccccccccccccccccccccccccccccccccc"
    kind: pool
    base_token: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
    quote_token: "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
    base_is_token0: true
  - address: "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"
    kind: router
`

func TestParseRegistry(t *testing.T) {
	reg, err := ParseRegistry([]byte(validRegistry))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if reg.ChainID != 56 {
		t.Fatalf("chain id = %d", reg.ChainID)
	}
	if !reg.IsTracked("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa") {
		t.Fatal("uppercase tracked token not normalized")
	}
	if len(reg.TrackedTokens()) != 2 {
		t.Fatalf("tracked tokens = %d", len(reg.TrackedTokens()))
	}

	pool, ok := reg.Contract("0xcccccccccccccccccccccccccccccccccccccccc")
	if !ok {
		t.Fatal("pool not found")
	}
	if pool.BaseToken != "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" {
		t.Fatalf("pool base token = %s", pool.BaseToken)
	}

	// Router list entries and router-kind contracts both count as routers.
	if !reg.IsKnownRouter("0xffffffffffffffffffffffffffffffffffffffff") {
		t.Fatal("listed router not known")
	}
	if !reg.IsKnownRouter("0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee") {
		t.Fatal("router-kind contract not known")
	}
	if reg.IsKnownRouter("0xcccccccccccccccccccccccccccccccccccccccc") {
		t.Fatal("pool classified as router")
	}
}

func TestParseRegistryRejectsUnknownKind(t *testing.T) {
	_, err := ParseRegistry([]byte(`
contracts:
  - address: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
    kind: oracle
`))
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestParseRegistryRejectsPoolWithoutTokens(t *testing.T) {
	_, err := ParseRegistry([]byte(`
contracts:
  - address: "0xcccccccccccccccccccccccccccccccccccccccc"
    kind: pool
`))
	if err == nil {
		t.Fatal("expected error for pool without base/quote tokens")
	}
}

func TestParseRegistryRejectsBadAddress(t *testing.T) {
	_, err := ParseRegistry([]byte(`
tracked_tokens:
  - "not-an-address"
`))
	if err == nil {
		t.Fatal("expected error for invalid tracked token")
	}
}
