package clarity

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"
	"sort"
	"unicode/utf8"
)

const maxDepth = 32

var (
	maxUInt = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	maxInt  = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	minInt  = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	two128  = new(big.Int).Lsh(big.NewInt(1), 128)
)

// Serialize writes v in its consensus binary form.
func Serialize(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := write(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func write(buf *bytes.Buffer, v Value) error {
	if v == nil {
		return fmt.Errorf("clarity: nil value")
	}
	buf.WriteByte(byte(v.Type()))

	switch val := v.(type) {
	case Int:
		if val.V == nil || val.V.Cmp(minInt) < 0 || val.V.Cmp(maxInt) > 0 {
			return fmt.Errorf("clarity: int out of range")
		}
		n := new(big.Int).Set(val.V)
		if n.Sign() < 0 {
			n.Add(n, two128)
		}
		buf.Write(n.FillBytes(make([]byte, 16)))
	case UInt:
		if val.V == nil || val.V.Sign() < 0 || val.V.Cmp(maxUInt) > 0 {
			return fmt.Errorf("clarity: uint out of range")
		}
		buf.Write(val.V.FillBytes(make([]byte, 16)))
	case Buffer:
		writeLen32(buf, len(val))
		buf.Write(val)
	case Bool, None:
	case StandardPrincipal:
		writeStandard(buf, val)
	case ContractPrincipal:
		writeStandard(buf, val.StandardPrincipal)
		if err := writeName(buf, val.Name); err != nil {
			return err
		}
	case ResponseOk:
		return write(buf, val.Value)
	case ResponseErr:
		return write(buf, val.Value)
	case Some:
		return write(buf, val.Value)
	case List:
		writeLen32(buf, len(val))
		for _, item := range val {
			if err := write(buf, item); err != nil {
				return err
			}
		}
	case Tuple:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		writeLen32(buf, len(keys))
		for _, k := range keys {
			if err := writeName(buf, k); err != nil {
				return err
			}
			if err := write(buf, val[k]); err != nil {
				return err
			}
		}
	case StringASCII:
		for i := 0; i < len(val); i++ {
			if val[i] > 0x7f {
				return fmt.Errorf("clarity: non-ascii byte in string-ascii")
			}
		}
		writeLen32(buf, len(val))
		buf.WriteString(string(val))
	case StringUTF8:
		writeLen32(buf, len(val))
		buf.WriteString(string(val))
	default:
		return fmt.Errorf("clarity: unsupported value %T", v)
	}
	return nil
}

func writeLen32(buf *bytes.Buffer, n int) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(n))
	buf.Write(b[:])
}

func writeStandard(buf *bytes.Buffer, p StandardPrincipal) {
	buf.WriteByte(p.Version)
	buf.Write(p.Hash160[:])
}

func writeName(buf *bytes.Buffer, name string) error {
	if len(name) == 0 || len(name) > 128 {
		return fmt.Errorf("clarity: invalid name %q", name)
	}
	buf.WriteByte(byte(len(name)))
	buf.WriteString(name)
	return nil
}

// Deserialize reads exactly one value from b.
func Deserialize(b []byte) (Value, error) {
	r := &reader{data: b}
	v, err := r.value(0)
	if err != nil {
		return nil, err
	}
	if r.pos != len(r.data) {
		return nil, &DecodeError{Offset: r.pos, Reason: "trailing bytes"}
	}
	return v, nil
}

// ReadValue reads one value from the front of b and reports how many bytes it used.
func ReadValue(b []byte) (Value, int, error) {
	r := &reader{data: b}
	v, err := r.value(0)
	if err != nil {
		return nil, 0, err
	}
	return v, r.pos, nil
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) fail(reason string, args ...any) error {
	return &DecodeError{Offset: r.pos, Reason: fmt.Sprintf(reason, args...)}
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, r.fail("unexpected end of input, need %d bytes", n)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) readByte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) len32() (int, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	n := binary.BigEndian.Uint32(b)
	// every element takes at least one byte
	if int64(n) > int64(len(r.data)-r.pos) {
		return 0, r.fail("length %d exceeds remaining input", n)
	}
	return int(n), nil
}

func (r *reader) name() (string, error) {
	n, err := r.readByte()
	if err != nil {
		return "", err
	}
	if n == 0 || n > 128 {
		return "", r.fail("invalid name length %d", n)
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *reader) standard() (StandardPrincipal, error) {
	var p StandardPrincipal
	b, err := r.take(21)
	if err != nil {
		return p, err
	}
	p.Version = b[0]
	copy(p.Hash160[:], b[1:])
	return p, nil
}

func (r *reader) value(depth int) (Value, error) {
	if depth > maxDepth {
		return nil, r.fail("nesting deeper than %d", maxDepth)
	}
	t, err := r.readByte()
	if err != nil {
		return nil, err
	}

	switch Type(t) {
	case TypeInt:
		b, err := r.take(16)
		if err != nil {
			return nil, err
		}
		n := new(big.Int).SetBytes(b)
		if b[0]&0x80 != 0 {
			n.Sub(n, two128)
		}
		return Int{V: n}, nil
	case TypeUInt:
		b, err := r.take(16)
		if err != nil {
			return nil, err
		}
		return UInt{V: new(big.Int).SetBytes(b)}, nil
	case TypeBuffer:
		n, err := r.len32()
		if err != nil {
			return nil, err
		}
		b, err := r.take(n)
		if err != nil {
			return nil, err
		}
		return Buffer(append([]byte{}, b...)), nil
	case TypeBoolTrue:
		return Bool(true), nil
	case TypeBoolFalse:
		return Bool(false), nil
	case TypePrincipalStandard:
		return r.standard()
	case TypePrincipalContract:
		std, err := r.standard()
		if err != nil {
			return nil, err
		}
		name, err := r.name()
		if err != nil {
			return nil, err
		}
		return ContractPrincipal{StandardPrincipal: std, Name: name}, nil
	case TypeResponseOk, TypeResponseErr, TypeOptionalSome:
		inner, err := r.value(depth + 1)
		if err != nil {
			return nil, err
		}
		switch Type(t) {
		case TypeResponseOk:
			return ResponseOk{Value: inner}, nil
		case TypeResponseErr:
			return ResponseErr{Value: inner}, nil
		}
		return Some{Value: inner}, nil
	case TypeOptionalNone:
		return None{}, nil
	case TypeList:
		n, err := r.len32()
		if err != nil {
			return nil, err
		}
		list := make(List, 0, n)
		for i := 0; i < n; i++ {
			item, err := r.value(depth + 1)
			if err != nil {
				return nil, err
			}
			list = append(list, item)
		}
		return list, nil
	case TypeTuple:
		n, err := r.len32()
		if err != nil {
			return nil, err
		}
		tuple := make(Tuple, n)
		for i := 0; i < n; i++ {
			k, err := r.name()
			if err != nil {
				return nil, err
			}
			v, err := r.value(depth + 1)
			if err != nil {
				return nil, err
			}
			tuple[k] = v
		}
		return tuple, nil
	case TypeStringASCII, TypeStringUTF8:
		n, err := r.len32()
		if err != nil {
			return nil, err
		}
		b, err := r.take(n)
		if err != nil {
			return nil, err
		}
		if Type(t) == TypeStringASCII {
			return StringASCII(b), nil
		}
		if !utf8.Valid(b) {
			return nil, r.fail("invalid utf-8 in string-utf8")
		}
		return StringUTF8(b), nil
	}
	r.pos--
	return nil, r.fail("unknown type id 0x%02x", t)
}
