// Package campaign drives the stackstarter crowdfunding contract: typed
// read accessors, value-transferring calls guarded by post-conditions, and
// the campaign lifecycle derived from queried status fields.
package campaign

import (
	"context"
	"errors"

	"Stackstarter/internal/clarity"
	"Stackstarter/internal/node"
	"Stackstarter/internal/txn"
	"Stackstarter/internal/wallet"
)

// ContractName is the name the contract is deployed under.
const ContractName = "stackstarter"

var (
	// ErrInvalidInput is returned, without any network call, when a
	// mutation's arguments are incomplete.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoAccount is returned by mutations on a read-only client.
	ErrNoAccount = errors.New("no acting account")
	// ErrNotFound is returned by typed reads of a record the contract does
	// not have.
	ErrNotFound = errors.New("not found")
)

// Node is the part of the node API the client uses.
type Node interface {
	GetChainInfo(ctx context.Context) (*node.ChainInfo, error)
	CallReadOnly(ctx context.Context, contractAddress, contractName, functionName, sender string, args ...clarity.Value) (clarity.Value, error)
	SignAndBroadcast(ctx context.Context, acct *wallet.Account, tx *txn.Transaction) (string, error)
}

// Client talks to one deployment of the contract on behalf of one account.
type Client struct {
	ContractAddress string
	ContractName    string
	// Account signs mutations. Nil for a read-only client.
	Account *wallet.Account

	node Node
}

// New creates a client for the contract deployed by contractAddress.
func New(contractAddress string, acct *wallet.Account, n Node) *Client {
	return &Client{
		ContractAddress: contractAddress,
		ContractName:    ContractName,
		Account:         acct,
		node:            n,
	}
}

// ContractID returns address.name of the contract.
func (c *Client) ContractID() string {
	return c.ContractAddress + "." + c.ContractName
}

func (c *Client) sender() string {
	if c.Account == nil {
		return ""
	}
	return c.Account.Address
}
