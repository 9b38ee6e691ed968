package c32

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"
)

const alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// Address versions used by Stacks.
const (
	MainnetSingleSig byte = 22
	MainnetMultiSig  byte = 20
	TestnetSingleSig byte = 26
	TestnetMultiSig  byte = 21
)

var radix = big.NewInt(32)

// Encode converts data to c32. Every leading zero byte becomes a leading '0'.
func Encode(data []byte) string {
	zeros := 0
	for zeros < len(data) && data[zeros] == 0 {
		zeros++
	}

	n := new(big.Int).SetBytes(data)
	var digits []byte
	mod := new(big.Int)
	for n.Sign() > 0 {
		n.DivMod(n, radix, mod)
		digits = append(digits, alphabet[mod.Int64()])
	}
	for i := 0; i < zeros; i++ {
		digits = append(digits, alphabet[0])
	}
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits)
}

// Decode is the inverse of Encode. Input is normalized first.
func Decode(s string) ([]byte, error) {
	s = normalize(s)
	zeros := 0
	for zeros < len(s) && s[zeros] == alphabet[0] {
		zeros++
	}

	n := new(big.Int)
	for i := zeros; i < len(s); i++ {
		idx := strings.IndexByte(alphabet, s[i])
		if idx < 0 {
			return nil, fmt.Errorf("c32: invalid character %q", s[i])
		}
		n.Mul(n, radix)
		n.Add(n, big.NewInt(int64(idx)))
	}
	return append(make([]byte, zeros), n.Bytes()...), nil
}

func normalize(s string) string {
	s = strings.ToUpper(s)
	return strings.NewReplacer("O", "0", "L", "1", "I", "1").Replace(s)
}

func checksum(version byte, data []byte) []byte {
	first := sha256.Sum256(append([]byte{version}, data...))
	second := sha256.Sum256(first[:])
	return second[:4]
}

// CheckEncode encodes data with a version character and a 4 byte checksum.
func CheckEncode(version byte, data []byte) (string, error) {
	if version >= 32 {
		return "", fmt.Errorf("c32: invalid version %d", version)
	}
	payload := append(append([]byte{}, data...), checksum(version, data)...)
	return string(alphabet[version]) + Encode(payload), nil
}

// CheckDecode returns the version and data of a c32check string.
func CheckDecode(s string) (byte, []byte, error) {
	s = normalize(s)
	if len(s) < 2 {
		return 0, nil, fmt.Errorf("c32: input too short")
	}
	version := strings.IndexByte(alphabet, s[0])
	if version < 0 {
		return 0, nil, fmt.Errorf("c32: invalid version character %q", s[0])
	}
	payload, err := Decode(s[1:])
	if err != nil {
		return 0, nil, err
	}
	if len(payload) < 4 {
		return 0, nil, fmt.Errorf("c32: missing checksum")
	}
	data, sum := payload[:len(payload)-4], payload[len(payload)-4:]
	if !bytes.Equal(sum, checksum(byte(version), data)) {
		return 0, nil, fmt.Errorf("c32: checksum mismatch")
	}
	return byte(version), data, nil
}

// Address renders a Stacks address, e.g. ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG.
func Address(version byte, hash160 [20]byte) (string, error) {
	enc, err := CheckEncode(version, hash160[:])
	if err != nil {
		return "", err
	}
	return "S" + enc, nil
}

// ParseAddress splits a Stacks address into its version and hash160.
func ParseAddress(addr string) (byte, [20]byte, error) {
	var hash [20]byte
	if len(addr) <= 5 || (addr[0] != 'S' && addr[0] != 's') {
		return 0, hash, fmt.Errorf("c32: invalid address %q", addr)
	}
	version, data, err := CheckDecode(addr[1:])
	if err != nil {
		return 0, hash, fmt.Errorf("c32: address %q: %w", addr, err)
	}
	if len(data) != 20 {
		return 0, hash, fmt.Errorf("c32: address %q: hash160 has %d bytes", addr, len(data))
	}
	copy(hash[:], data)
	return version, hash, nil
}
