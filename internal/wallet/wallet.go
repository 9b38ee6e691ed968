package wallet

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/ripemd160"

	"Stackstarter/internal/c32"
)

// Network holds the parameters that differ between mainnet and testnet.
type Network struct {
	Name           string
	TxVersion      byte
	ChainID        uint32
	AddressVersion byte
}

var (
	Mainnet = Network{Name: "mainnet", TxVersion: 0x00, ChainID: 0x00000001, AddressVersion: c32.MainnetSingleSig}
	Testnet = Network{Name: "testnet", TxVersion: 0x80, ChainID: 0x80000000, AddressVersion: c32.TestnetSingleSig}
)

// NetworkByName resolves "mainnet", "testnet" or "mocknet" (an alias of testnet).
func NetworkByName(name string) (Network, error) {
	switch strings.ToLower(name) {
	case "mainnet":
		return Mainnet, nil
	case "testnet", "mocknet", "":
		return Testnet, nil
	}
	return Network{}, fmt.Errorf("unknown network %q", name)
}

// Account is a signing identity.
type Account struct {
	Address    string
	PrivateKey *secp256k1.PrivateKey
	Network    Network
	compressed bool
}

// ParseAccount reads a hex secret key. A 33 byte key ending in 0x01 signs
// with a compressed public key, a 32 byte key with an uncompressed one.
func ParseAccount(secretKey string, network Network) (*Account, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(secretKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode secret key: %w", err)
	}
	compressed := false
	switch {
	case len(raw) == 33 && raw[32] == 0x01:
		compressed = true
		raw = raw[:32]
	case len(raw) == 32:
	default:
		return nil, fmt.Errorf("secret key must be 32 or 33 bytes, got %d", len(raw))
	}
	return newAccount(secp256k1.PrivKeyFromBytes(raw), compressed, network)
}

// Generate creates a fresh account with a compressed key.
func Generate(network Network) (*Account, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return newAccount(key, true, network)
}

func newAccount(key *secp256k1.PrivateKey, compressed bool, network Network) (*Account, error) {
	a := &Account{PrivateKey: key, Network: network, compressed: compressed}
	addr, err := c32.Address(network.AddressVersion, a.Hash160())
	if err != nil {
		return nil, err
	}
	a.Address = addr
	return a, nil
}

// Compressed reports whether the account signs with a compressed public key.
func (a *Account) Compressed() bool { return a.compressed }

// PublicKey returns the serialized public key.
func (a *Account) PublicKey() []byte {
	pub := a.PrivateKey.PubKey()
	if a.compressed {
		return pub.SerializeCompressed()
	}
	return pub.SerializeUncompressed()
}

// Hash160 identifies the account on chain.
func (a *Account) Hash160() [20]byte { return Hash160(a.PublicKey()) }

// SecretKey returns the hex secret key in the same format ParseAccount reads.
func (a *Account) SecretKey() string {
	s := hex.EncodeToString(a.PrivateKey.Serialize())
	if a.compressed {
		s += "01"
	}
	return s
}

// ContractID returns the fully qualified id of a contract deployed by a.
func (a *Account) ContractID(name string) string { return a.Address + "." + name }

// Hash160 is RIPEMD160(SHA256(b)).
func Hash160(b []byte) [20]byte {
	sum := sha256.Sum256(b)
	h := ripemd160.New()
	h.Write(sum[:])
	var out [20]byte
	copy(out[:], h.Sum(nil))
	return out
}
