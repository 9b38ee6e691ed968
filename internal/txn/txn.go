// Package txn builds, signs and serializes Stacks transactions.
package txn

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"

	"Stackstarter/internal/clarity"
)

const (
	AuthStandard  byte = 0x04
	HashModeP2PKH byte = 0x00

	KeyCompressed   byte = 0x00
	KeyUncompressed byte = 0x01

	AnchorOnChain  byte = 0x01
	AnchorOffChain byte = 0x02
	AnchorAny      byte = 0x03
)

// PostConditionMode controls transfers not covered by a post-condition.
type PostConditionMode byte

const (
	PostConditionAllow PostConditionMode = 0x01
	PostConditionDeny  PostConditionMode = 0x02
)

// PayloadType identifies the transaction payload.
type PayloadType byte

const (
	PayloadSmartContract PayloadType = 0x01
	PayloadContractCall  PayloadType = 0x02
)

// Authorization is a standard single-signature spending condition.
type Authorization struct {
	HashMode    byte
	Signer      [20]byte
	Nonce       uint64
	Fee         uint64
	KeyEncoding byte
	Signature   [65]byte
}

// Payload is either a ContractCall or a SmartContract.
type Payload interface {
	PayloadType() PayloadType
}

// ContractCall invokes a public function.
type ContractCall struct {
	Address      clarity.StandardPrincipal
	ContractName string
	FunctionName string
	Args         []clarity.Value
}

func (ContractCall) PayloadType() PayloadType { return PayloadContractCall }

// ContractID returns address.name of the called contract.
func (c ContractCall) ContractID() string { return c.Address.String() + "." + c.ContractName }

// SmartContract deploys Clarity source.
type SmartContract struct {
	ContractName string
	CodeBody     string
}

func (SmartContract) PayloadType() PayloadType { return PayloadSmartContract }

// Transaction is a single-sig Stacks transaction.
type Transaction struct {
	Version           byte
	ChainID           uint32
	Auth              Authorization
	AnchorMode        byte
	PostConditionMode PostConditionMode
	PostConditions    []PostCondition
	Payload           Payload
}

// TxID is the hex SHA-512/256 of the serialized transaction.
func (t *Transaction) TxID() (string, error) {
	b, err := t.Serialize()
	if err != nil {
		return "", err
	}
	sum := sha512.Sum512_256(b)
	return hex.EncodeToString(sum[:]), nil
}

// SignerAddress renders the signer hash160 with the given address version.
func (t *Transaction) SignerAddress(version byte) string {
	return clarity.StandardPrincipal{Version: version, Hash160: t.Auth.Signer}.String()
}

func validName(name string) error {
	if len(name) == 0 || len(name) > 128 {
		return fmt.Errorf("invalid name %q", name)
	}
	return nil
}
