package txn

import (
	"fmt"

	"Stackstarter/internal/clarity"
	"Stackstarter/internal/wallet"
)

// ContractCallOptions describes a call to a public contract function.
type ContractCallOptions struct {
	ContractAddress string
	ContractName    string
	FunctionName    string
	Args            []clarity.Value
	PostConditions  []PostCondition
	// PostConditionMode defaults to deny.
	PostConditionMode PostConditionMode
}

func newTransaction(acct *wallet.Account, payload Payload) *Transaction {
	keyEncoding := KeyUncompressed
	if acct.Compressed() {
		keyEncoding = KeyCompressed
	}
	return &Transaction{
		Version: acct.Network.TxVersion,
		ChainID: acct.Network.ChainID,
		Auth: Authorization{
			HashMode:    HashModeP2PKH,
			Signer:      acct.Hash160(),
			KeyEncoding: keyEncoding,
		},
		AnchorMode:        AnchorAny,
		PostConditionMode: PostConditionDeny,
		Payload:           payload,
	}
}

// MakeContractCall builds an unsigned contract-call transaction from acct.
// Nonce and fee are left at zero.
func MakeContractCall(acct *wallet.Account, opts ContractCallOptions) (*Transaction, error) {
	addr, err := clarity.ParsePrincipal(opts.ContractAddress)
	if err != nil {
		return nil, fmt.Errorf("contract address: %w", err)
	}
	std, ok := addr.(clarity.StandardPrincipal)
	if !ok {
		return nil, fmt.Errorf("contract address %q must be a standard principal", opts.ContractAddress)
	}
	if err := validName(opts.ContractName); err != nil {
		return nil, fmt.Errorf("contract name: %w", err)
	}
	if err := validName(opts.FunctionName); err != nil {
		return nil, fmt.Errorf("function name: %w", err)
	}

	t := newTransaction(acct, ContractCall{
		Address:      std,
		ContractName: opts.ContractName,
		FunctionName: opts.FunctionName,
		Args:         opts.Args,
	})
	t.PostConditions = opts.PostConditions
	if opts.PostConditionMode != 0 {
		t.PostConditionMode = opts.PostConditionMode
	}
	return t, nil
}

// MakeContractDeploy builds an unsigned smart-contract transaction.
func MakeContractDeploy(acct *wallet.Account, contractName, source string) (*Transaction, error) {
	if err := validName(contractName); err != nil {
		return nil, fmt.Errorf("contract name: %w", err)
	}
	return newTransaction(acct, SmartContract{ContractName: contractName, CodeBody: source}), nil
}
