package wallet

import (
	"strings"
	"testing"

	"Stackstarter/internal/c32"
)

func TestGenerate_RoundTripsThroughSecretKey(t *testing.T) {
	acct, err := Generate(Testnet)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(acct.Address, "ST") {
		t.Errorf("testnet address should start with ST, got %s", acct.Address)
	}
	if len(acct.SecretKey()) != 66 {
		t.Errorf("compressed secret key should be 66 hex chars, got %d", len(acct.SecretKey()))
	}

	again, err := ParseAccount(acct.SecretKey(), Testnet)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if again.Address != acct.Address {
		t.Errorf("address mismatch: %s vs %s", again.Address, acct.Address)
	}

	version, hash, err := c32.ParseAddress(acct.Address)
	if err != nil {
		t.Fatalf("parse address: %v", err)
	}
	if version != c32.TestnetSingleSig || hash != acct.Hash160() {
		t.Errorf("address does not encode the account hash160")
	}
}

func TestParseAccount_Uncompressed(t *testing.T) {
	acct, err := Generate(Mainnet)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	raw := acct.SecretKey()[:64]
	unc, err := ParseAccount(raw, Mainnet)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if unc.Compressed() {
		t.Error("32 byte key should be uncompressed")
	}
	if len(unc.PublicKey()) != 65 {
		t.Errorf("expected 65 byte public key, got %d", len(unc.PublicKey()))
	}
	if unc.Address == acct.Address {
		t.Error("compressed and uncompressed keys must hash to different addresses")
	}
	if !strings.HasPrefix(unc.Address, "SP") {
		t.Errorf("mainnet address should start with SP, got %s", unc.Address)
	}
}

func TestParseAccount_Invalid(t *testing.T) {
	for _, k := range []string{"", "zz", "0102", strings.Repeat("ab", 33)} {
		if _, err := ParseAccount(k, Testnet); err == nil {
			t.Errorf("expected error for %q", k)
		}
	}
}

func TestNetworkByName(t *testing.T) {
	n, err := NetworkByName("Mocknet")
	if err != nil || n.Name != "testnet" {
		t.Errorf("mocknet should resolve to testnet, got %v %v", n, err)
	}
	if _, err := NetworkByName("regtest"); err == nil {
		t.Error("expected error for unknown network")
	}
}
