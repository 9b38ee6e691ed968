package txn

import (
	"fmt"

	"Stackstarter/internal/clarity"
)

// ConditionCode compares the amount actually sent with PostCondition.Amount.
type ConditionCode byte

const (
	Equal        ConditionCode = 0x01
	Greater      ConditionCode = 0x02
	GreaterEqual ConditionCode = 0x03
	Less         ConditionCode = 0x04
	LessEqual    ConditionCode = 0x05
)

func (c ConditionCode) String() string {
	switch c {
	case Equal:
		return "eq"
	case Greater:
		return "gt"
	case GreaterEqual:
		return "ge"
	case Less:
		return "lt"
	case LessEqual:
		return "le"
	}
	return fmt.Sprintf("code(%d)", byte(c))
}

// Holds reports whether sent satisfies the condition against amount.
func (c ConditionCode) Holds(sent, amount uint64) bool {
	switch c {
	case Equal:
		return sent == amount
	case Greater:
		return sent > amount
	case GreaterEqual:
		return sent >= amount
	case Less:
		return sent < amount
	case LessEqual:
		return sent <= amount
	}
	return false
}

const (
	assetSTX byte = 0x00

	principalOrigin   byte = 0x01
	principalStandard byte = 0x02
	principalContract byte = 0x03
)

// PostCondition limits the STX a principal may send in a transaction. The
// ledger evaluates it; a violation aborts the whole transaction.
type PostCondition struct {
	// Principal is a clarity.StandardPrincipal or clarity.ContractPrincipal.
	Principal clarity.Value
	Code      ConditionCode
	Amount    uint64
}

// StandardSTXPostCondition constrains STX sent by a standard account.
func StandardSTXPostCondition(address string, code ConditionCode, amount uint64) (PostCondition, error) {
	p, err := clarity.ParsePrincipal(address)
	if err != nil {
		return PostCondition{}, fmt.Errorf("post-condition principal: %w", err)
	}
	if _, ok := p.(clarity.StandardPrincipal); !ok {
		return PostCondition{}, fmt.Errorf("post-condition principal %q is not a standard principal", address)
	}
	return PostCondition{Principal: p, Code: code, Amount: amount}, nil
}

// ContractSTXPostCondition constrains STX sent by a contract.
func ContractSTXPostCondition(address, contractName string, code ConditionCode, amount uint64) (PostCondition, error) {
	p, err := clarity.ParsePrincipal(address + "." + contractName)
	if err != nil {
		return PostCondition{}, fmt.Errorf("post-condition principal: %w", err)
	}
	return PostCondition{Principal: p, Code: code, Amount: amount}, nil
}

// PrincipalString renders the constrained principal.
func (pc PostCondition) PrincipalString() string {
	s, _ := clarity.PrincipalString(pc.Principal)
	return s
}

func (pc PostCondition) String() string {
	return fmt.Sprintf("stx %s %s %d", pc.PrincipalString(), pc.Code, pc.Amount)
}
