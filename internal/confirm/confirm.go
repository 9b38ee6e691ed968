// Package confirm turns the node's asynchronous block production into
// blocking wait primitives with bounded timeouts.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/big"
	"time"

	"Stackstarter/internal/node"
	"Stackstarter/internal/txn"
	"Stackstarter/internal/wallet"
)

var (
	// ErrBlockTimeout is returned when the chain does not reach the target
	// height within the block budget.
	ErrBlockTimeout = errors.New("wait for blocks: timeout")
	// ErrDeployTimeout is returned when a deployed contract does not become
	// visible within DeployTimeout.
	ErrDeployTimeout = errors.New("wait for contract deployment: timeout")
	// ErrSourceMismatch is returned by DeployContract when the node reports a
	// contract under the same name with different source.
	ErrSourceMismatch = errors.New("deployed contract source does not match")
)

// Node is the part of the node API the orchestrator polls.
type Node interface {
	GetChainInfo(ctx context.Context) (*node.ChainInfo, error)
	GetAccount(ctx context.Context, principal string) (*node.AccountInfo, error)
	GetContractSource(ctx context.Context, contractAddress, contractName string) (string, error)
	SignAndBroadcast(ctx context.Context, acct *wallet.Account, tx *txn.Transaction) (string, error)
}

// Options holds the timing constants of the polling loops.
type Options struct {
	// BlockTime is the expected time between blocks.
	BlockTime          time.Duration
	BlockPollInterval  time.Duration
	DeployPollInterval time.Duration
	DeployTimeout      time.Duration
	// Progress receives the block countdown. Nil disables it.
	Progress io.Writer
}

// DefaultOptions matches a local mocknet.
func DefaultOptions() Options {
	return Options{
		BlockTime:          5 * time.Second,
		BlockPollInterval:  500 * time.Millisecond,
		DeployPollInterval: 250 * time.Millisecond,
		DeployTimeout:      20 * time.Second,
	}
}

// Orchestrator polls a node until a transaction's effect is observable.
type Orchestrator struct {
	node Node
	opts Options
}

// New creates an Orchestrator. Zero durations in opts take their defaults.
func New(n Node, opts Options) *Orchestrator {
	def := DefaultOptions()
	if opts.BlockTime <= 0 {
		opts.BlockTime = def.BlockTime
	}
	if opts.BlockPollInterval <= 0 {
		opts.BlockPollInterval = def.BlockPollInterval
	}
	if opts.DeployPollInterval <= 0 {
		opts.DeployPollInterval = def.DeployPollInterval
	}
	if opts.DeployTimeout <= 0 {
		opts.DeployTimeout = def.DeployTimeout
	}
	return &Orchestrator{node: n, opts: opts}
}

// Options returns the effective timing constants.
func (o *Orchestrator) Options() Options { return o.opts }

// WaitForBlocks blocks until the chain tip is at least n blocks above the
// height observed on entry. A failed chain-info query ends the wait with
// that error.
func (o *Orchestrator) WaitForBlocks(ctx context.Context, n uint64, hideProgress bool) error {
	info, err := o.node.GetChainInfo(ctx)
	if err != nil {
		return fmt.Errorf("wait for blocks: %w", err)
	}
	target := info.StacksTipHeight + n
	deadline := time.Now().Add(time.Duration(n+5) * o.opts.BlockTime)
	progress := o.opts.Progress
	if hideProgress {
		progress = nil
	}

	for {
		info, err := o.node.GetChainInfo(ctx)
		if err != nil {
			return fmt.Errorf("wait for blocks: %w", err)
		}
		current := info.StacksTipHeight
		if progress != nil {
			done := int64(n) - (int64(target) - int64(current))
			fmt.Fprintf(progress, "\rwaiting for block %d/%d", done, n)
		}
		if current >= target {
			if progress != nil {
				fmt.Fprint(progress, "\r                         \r")
			}
			return nil
		}
		if time.Now().After(deadline) {
			return ErrBlockTimeout
		}
		if err := sleep(ctx, o.opts.BlockPollInterval); err != nil {
			return err
		}
	}
}

// WaitForContractDeployment polls for the source of address.name. It
// reports whether the visible source equals expectedSource. Errors that
// only mean "not deployed yet" are retried until DeployTimeout; any other
// error is returned at once.
func (o *Orchestrator) WaitForContractDeployment(ctx context.Context, address, name, expectedSource string) (bool, error) {
	deadline := time.Now().Add(o.opts.DeployTimeout)
	for !time.Now().After(deadline) {
		if err := sleep(ctx, o.opts.DeployPollInterval); err != nil {
			return false, err
		}
		source, err := o.node.GetContractSource(ctx, address, name)
		if err == nil {
			return source == expectedSource, nil
		}
		if !IsNotYetConfirmed(err) {
			return false, fmt.Errorf("wait for contract %s.%s: %w", address, name, err)
		}
	}
	return false, ErrDeployTimeout
}

// DeployContract publishes source under name from acct and waits until the
// node serves it back.
func (o *Orchestrator) DeployContract(ctx context.Context, acct *wallet.Account, name, source string) (string, error) {
	tx, err := txn.MakeContractDeploy(acct, name, source)
	if err != nil {
		return "", fmt.Errorf("build deploy: %w", err)
	}
	txid, err := o.node.SignAndBroadcast(ctx, acct, tx)
	if err != nil {
		return "", fmt.Errorf("broadcast deploy: %w", err)
	}
	log.Printf("[INFO] Deploy %s broadcast as %s, waiting for confirmation", acct.ContractID(name), txid)

	ok, err := o.WaitForContractDeployment(ctx, acct.Address, name, source)
	if err != nil {
		return txid, err
	}
	if !ok {
		return txid, ErrSourceMismatch
	}
	return txid, nil
}

// Balance returns the STX balance of principal. A principal the node has
// never seen has a zero balance.
func (o *Orchestrator) Balance(ctx context.Context, principal string) (*big.Int, error) {
	acct, err := o.node.GetAccount(ctx, principal)
	if err != nil {
		if node.IsNoHistory(err) {
			return new(big.Int), nil
		}
		return nil, fmt.Errorf("balance of %s: %w", principal, err)
	}
	return acct.Balance, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
