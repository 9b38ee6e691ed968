package txn

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"Stackstarter/internal/clarity"
)

// Serialize returns the SIP-005 wire form of t.
func (t *Transaction) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(t.Version)
	writeUint32(&buf, t.ChainID)

	buf.WriteByte(AuthStandard)
	buf.WriteByte(t.Auth.HashMode)
	buf.Write(t.Auth.Signer[:])
	writeUint64(&buf, t.Auth.Nonce)
	writeUint64(&buf, t.Auth.Fee)
	buf.WriteByte(t.Auth.KeyEncoding)
	buf.Write(t.Auth.Signature[:])

	buf.WriteByte(t.AnchorMode)
	buf.WriteByte(byte(t.PostConditionMode))

	writeUint32(&buf, uint32(len(t.PostConditions)))
	for i, pc := range t.PostConditions {
		if err := writePostCondition(&buf, pc); err != nil {
			return nil, fmt.Errorf("post-condition %d: %w", i, err)
		}
	}

	if err := writePayload(&buf, t.Payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeName(buf *bytes.Buffer, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	buf.WriteByte(byte(len(name)))
	buf.WriteString(name)
	return nil
}

func writePostCondition(buf *bytes.Buffer, pc PostCondition) error {
	buf.WriteByte(assetSTX)
	switch p := pc.Principal.(type) {
	case nil:
		buf.WriteByte(principalOrigin)
	case clarity.StandardPrincipal:
		buf.WriteByte(principalStandard)
		buf.WriteByte(p.Version)
		buf.Write(p.Hash160[:])
	case clarity.ContractPrincipal:
		buf.WriteByte(principalContract)
		buf.WriteByte(p.Version)
		buf.Write(p.Hash160[:])
		if err := writeName(buf, p.Name); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported principal %T", pc.Principal)
	}
	buf.WriteByte(byte(pc.Code))
	writeUint64(buf, pc.Amount)
	return nil
}

func writePayload(buf *bytes.Buffer, p Payload) error {
	switch pl := p.(type) {
	case ContractCall:
		buf.WriteByte(byte(PayloadContractCall))
		buf.WriteByte(pl.Address.Version)
		buf.Write(pl.Address.Hash160[:])
		if err := writeName(buf, pl.ContractName); err != nil {
			return fmt.Errorf("contract name: %w", err)
		}
		if err := writeName(buf, pl.FunctionName); err != nil {
			return fmt.Errorf("function name: %w", err)
		}
		writeUint32(buf, uint32(len(pl.Args)))
		for i, arg := range pl.Args {
			b, err := clarity.Serialize(arg)
			if err != nil {
				return fmt.Errorf("argument %d: %w", i, err)
			}
			buf.Write(b)
		}
	case SmartContract:
		buf.WriteByte(byte(PayloadSmartContract))
		if err := writeName(buf, pl.ContractName); err != nil {
			return fmt.Errorf("contract name: %w", err)
		}
		writeUint32(buf, uint32(len(pl.CodeBody)))
		buf.WriteString(pl.CodeBody)
	default:
		return fmt.Errorf("unsupported payload %T", p)
	}
	return nil
}

// Deserialize parses the wire form produced by Serialize.
func Deserialize(b []byte) (*Transaction, error) {
	r := &reader{data: b}
	t := &Transaction{}

	t.Version = r.readByte()
	t.ChainID = r.readUint32()
	if auth := r.readByte(); r.err == nil && auth != AuthStandard {
		return nil, fmt.Errorf("unsupported auth type 0x%02x", auth)
	}
	t.Auth.HashMode = r.readByte()
	copy(t.Auth.Signer[:], r.take(20))
	t.Auth.Nonce = r.readUint64()
	t.Auth.Fee = r.readUint64()
	t.Auth.KeyEncoding = r.readByte()
	copy(t.Auth.Signature[:], r.take(65))
	t.AnchorMode = r.readByte()
	t.PostConditionMode = PostConditionMode(r.readByte())

	n := r.readUint32()
	for i := uint32(0); i < n && r.err == nil; i++ {
		t.PostConditions = append(t.PostConditions, r.postCondition())
	}

	switch PayloadType(r.readByte()) {
	case PayloadContractCall:
		var call ContractCall
		call.Address.Version = r.readByte()
		copy(call.Address.Hash160[:], r.take(20))
		call.ContractName = r.readName()
		call.FunctionName = r.readName()
		argc := r.readUint32()
		for i := uint32(0); i < argc && r.err == nil; i++ {
			v, used, err := clarity.ReadValue(r.rest())
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			r.take(used)
			call.Args = append(call.Args, v)
		}
		t.Payload = call
	case PayloadSmartContract:
		name := r.readName()
		body := r.take(int(r.readUint32()))
		t.Payload = SmartContract{ContractName: name, CodeBody: string(body)}
	default:
		if r.err == nil {
			return nil, fmt.Errorf("unsupported payload type")
		}
	}

	if r.err != nil {
		return nil, r.err
	}
	if r.pos != len(r.data) {
		return nil, fmt.Errorf("%d trailing bytes", len(r.data)-r.pos)
	}
	return t, nil
}

// reader keeps the first error and returns zero values afterwards.
type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.err = fmt.Errorf("unexpected end of transaction at byte %d", r.pos)
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) rest() []byte {
	if r.err != nil {
		return nil
	}
	return r.data[r.pos:]
}

func (r *reader) readByte() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) readUint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *reader) readUint64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func (r *reader) readName() string {
	n := r.readByte()
	if r.err == nil && n == 0 {
		r.err = fmt.Errorf("empty name at byte %d", r.pos)
	}
	return string(r.take(int(n)))
}

func (r *reader) postCondition() PostCondition {
	var pc PostCondition
	if asset := r.readByte(); r.err == nil && asset != assetSTX {
		r.err = fmt.Errorf("unsupported post-condition asset 0x%02x", asset)
		return pc
	}
	switch kind := r.readByte(); kind {
	case principalOrigin:
	case principalStandard, principalContract:
		var std clarity.StandardPrincipal
		std.Version = r.readByte()
		copy(std.Hash160[:], r.take(20))
		if kind == principalStandard {
			pc.Principal = std
		} else {
			pc.Principal = clarity.ContractPrincipal{StandardPrincipal: std, Name: r.readName()}
		}
	default:
		if r.err == nil {
			r.err = fmt.Errorf("unsupported post-condition principal 0x%02x", kind)
		}
	}
	pc.Code = ConditionCode(r.readByte())
	pc.Amount = r.readUint64()
	return pc
}
