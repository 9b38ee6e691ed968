package clarity

import (
	"encoding/hex"
	"math/big"
	"strings"
)

// DecodeUnsignedHex parses a base-16 string, with or without a 0x prefix,
// into an arbitrary precision integer. Anything that is not a string fails.
func DecodeUnsignedHex(v any) (*big.Int, error) {
	s, ok := v.(string)
	if !ok {
		return nil, &FormatError{Input: v, Reason: "expected a string"}
	}
	digits := strings.TrimPrefix(s, "0x")
	if digits == "" {
		return nil, &FormatError{Input: v, Reason: "no hex digits"}
	}
	n, ok := new(big.Int).SetString(digits, 16)
	if !ok || strings.HasPrefix(digits, "-") || strings.HasPrefix(digits, "+") {
		return nil, &FormatError{Input: v, Reason: "invalid hex digits"}
	}
	return n, nil
}

// EncodeHex serializes v and returns it hex encoded with a 0x prefix.
func EncodeHex(v Value) (string, error) {
	b, err := Serialize(v)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(b), nil
}

// DecodeHex is the inverse of EncodeHex. The 0x prefix is optional.
func DecodeHex(s string) (Value, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, &DecodeError{Reason: "invalid hex: " + err.Error()}
	}
	return Deserialize(b)
}
