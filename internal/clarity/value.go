package clarity

import (
	"fmt"
	"math/big"
	"strings"

	"Stackstarter/internal/c32"
)

// Type is the consensus type id of a Clarity value.
type Type byte

const (
	TypeInt               Type = 0x00
	TypeUInt              Type = 0x01
	TypeBuffer            Type = 0x02
	TypeBoolTrue          Type = 0x03
	TypeBoolFalse         Type = 0x04
	TypePrincipalStandard Type = 0x05
	TypePrincipalContract Type = 0x06
	TypeResponseOk        Type = 0x07
	TypeResponseErr       Type = 0x08
	TypeOptionalNone      Type = 0x09
	TypeOptionalSome      Type = 0x0a
	TypeList              Type = 0x0b
	TypeTuple             Type = 0x0c
	TypeStringASCII       Type = 0x0d
	TypeStringUTF8        Type = 0x0e
)

// Value is any Clarity value.
type Value interface {
	Type() Type
}

type (
	Int    struct{ V *big.Int }
	UInt   struct{ V *big.Int }
	Buffer []byte
	Bool   bool

	StandardPrincipal struct {
		Version byte
		Hash160 [20]byte
	}
	ContractPrincipal struct {
		StandardPrincipal
		Name string
	}

	ResponseOk  struct{ Value Value }
	ResponseErr struct{ Value Value }
	None        struct{}
	Some        struct{ Value Value }

	List        []Value
	Tuple       map[string]Value
	StringASCII string
	StringUTF8  string
)

func (Int) Type() Type               { return TypeInt }
func (UInt) Type() Type              { return TypeUInt }
func (Buffer) Type() Type            { return TypeBuffer }
func (StandardPrincipal) Type() Type { return TypePrincipalStandard }
func (ContractPrincipal) Type() Type { return TypePrincipalContract }
func (ResponseOk) Type() Type        { return TypeResponseOk }
func (ResponseErr) Type() Type       { return TypeResponseErr }
func (None) Type() Type              { return TypeOptionalNone }
func (Some) Type() Type              { return TypeOptionalSome }
func (List) Type() Type              { return TypeList }
func (Tuple) Type() Type             { return TypeTuple }
func (StringASCII) Type() Type       { return TypeStringASCII }
func (StringUTF8) Type() Type        { return TypeStringUTF8 }

func (b Bool) Type() Type {
	if b {
		return TypeBoolTrue
	}
	return TypeBoolFalse
}

// NewUInt returns a uint value.
func NewUInt(v uint64) UInt { return UInt{V: new(big.Int).SetUint64(v)} }

// NewInt returns an int value.
func NewInt(v int64) Int { return Int{V: big.NewInt(v)} }

// UIntFromBig copies v into a uint value.
func UIntFromBig(v *big.Int) UInt { return UInt{V: new(big.Int).Set(v)} }

// BufferFromString returns the UTF-8 bytes of s as a buffer.
func BufferFromString(s string) Buffer { return Buffer(s) }

// String renders the principal as a Stacks address.
func (p StandardPrincipal) String() string {
	addr, err := c32.Address(p.Version, p.Hash160)
	if err != nil {
		return fmt.Sprintf("<invalid principal %x>", p.Hash160)
	}
	return addr
}

// String renders the principal as address.name.
func (p ContractPrincipal) String() string {
	return p.StandardPrincipal.String() + "." + p.Name
}

// ParsePrincipal accepts "ADDR" or "ADDR.contract-name".
func ParsePrincipal(s string) (Value, error) {
	addr, name, isContract := strings.Cut(s, ".")
	version, hash, err := c32.ParseAddress(addr)
	if err != nil {
		return nil, err
	}
	std := StandardPrincipal{Version: version, Hash160: hash}
	if !isContract {
		return std, nil
	}
	if name == "" || len(name) > 128 {
		return nil, fmt.Errorf("clarity: invalid contract name %q", name)
	}
	return ContractPrincipal{StandardPrincipal: std, Name: name}, nil
}

// PrincipalString renders a standard or contract principal.
func PrincipalString(v Value) (string, bool) {
	switch p := v.(type) {
	case StandardPrincipal:
		return p.String(), true
	case ContractPrincipal:
		return p.String(), true
	}
	return "", false
}
