package clarity

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// String renders v the way Clarity prints values, e.g. (ok (some u5)).
func String(v Value) string {
	switch val := v.(type) {
	case nil:
		return "<nil>"
	case Int:
		return val.V.String()
	case UInt:
		return "u" + val.V.String()
	case Buffer:
		return "0x" + hex.EncodeToString(val)
	case Bool:
		return strconv.FormatBool(bool(val))
	case StandardPrincipal:
		return val.String()
	case ContractPrincipal:
		return val.String()
	case ResponseOk:
		return "(ok " + String(val.Value) + ")"
	case ResponseErr:
		return "(err " + String(val.Value) + ")"
	case None:
		return "none"
	case Some:
		return "(some " + String(val.Value) + ")"
	case List:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = String(item)
		}
		return "(list " + strings.Join(parts, " ") + ")"
	case Tuple:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString("(tuple")
		for _, k := range keys {
			fmt.Fprintf(&b, " (%s %s)", k, String(val[k]))
		}
		b.WriteString(")")
		return b.String()
	case StringASCII:
		return strconv.Quote(string(val))
	case StringUTF8:
		return "u" + strconv.Quote(string(val))
	}
	return fmt.Sprintf("<unknown %T>", v)
}

// Equal reports whether a and b are the same Clarity value.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Type() != b.Type() {
		return false
	}
	switch x := a.(type) {
	case Int:
		return cmpBig(x.V, b.(Int).V)
	case UInt:
		return cmpBig(x.V, b.(UInt).V)
	case Buffer:
		return bytes.Equal(x, b.(Buffer))
	case Bool, None:
		return true
	case StandardPrincipal:
		return x == b.(StandardPrincipal)
	case ContractPrincipal:
		return x == b.(ContractPrincipal)
	case ResponseOk:
		return Equal(x.Value, b.(ResponseOk).Value)
	case ResponseErr:
		return Equal(x.Value, b.(ResponseErr).Value)
	case Some:
		return Equal(x.Value, b.(Some).Value)
	case List:
		y := b.(List)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Tuple:
		y := b.(Tuple)
		if len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !Equal(xv, yv) {
				return false
			}
		}
		return true
	case StringASCII:
		return x == b.(StringASCII)
	case StringUTF8:
		return x == b.(StringUTF8)
	}
	return false
}

func cmpBig(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Cmp(b) == 0
}

// UnwrapOk returns the inner value of (ok v).
func UnwrapOk(v Value) (Value, bool) {
	ok, isOk := v.(ResponseOk)
	if !isOk {
		return nil, false
	}
	return ok.Value, true
}

// UnwrapSome returns the inner value of (some v). none yields false.
func UnwrapSome(v Value) (Value, bool) {
	some, isSome := v.(Some)
	if !isSome {
		return nil, false
	}
	return some.Value, true
}

// AsUInt returns a copy of the integer held by a uint value.
func AsUInt(v Value) (*big.Int, bool) {
	u, ok := v.(UInt)
	if !ok || u.V == nil {
		return nil, false
	}
	return new(big.Int).Set(u.V), true
}

// AsBool returns the boolean held by v.
func AsBool(v Value) (bool, bool) {
	b, ok := v.(Bool)
	return bool(b), ok
}

// AsText returns the contents of a buffer or string value.
func AsText(v Value) (string, bool) {
	switch t := v.(type) {
	case Buffer:
		return string(t), true
	case StringASCII:
		return string(t), true
	case StringUTF8:
		return string(t), true
	}
	return "", false
}

// Field looks up a tuple field.
func Field(v Value, name string) (Value, bool) {
	t, ok := v.(Tuple)
	if !ok {
		return nil, false
	}
	f, ok := t[name]
	return f, ok
}
