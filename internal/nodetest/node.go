// Package nodetest runs an in-process fake Stacks node. It speaks the
// node's HTTP API, verifies and mines signed transactions, and simulates
// the stackstarter contract so clients can be exercised end to end.
package nodetest

import (
	"fmt"
	"math/big"
	"net/http/httptest"
	"sync"
	"time"

	"Stackstarter/internal/clarity"
	"Stackstarter/internal/txn"
	"Stackstarter/internal/wallet"
)

// Receipt statuses.
const (
	StatusSuccess              = "success"
	StatusAbortByResponse      = "abort_by_response"
	StatusAbortByPostCondition = "abort_by_post_condition"
)

// Receipt is the outcome of a mined transaction.
type Receipt struct {
	TxID   string
	Height uint64
	Status string
	Result clarity.Value
	Fee    uint64
	// Transfers lists the STX movements applied by a successful call.
	Transfers []Transfer
}

// Transfer is one STX movement between principals.
type Transfer struct {
	From, To string
	Amount   *big.Int
}

type account struct {
	balance *big.Int
	nonce   uint64
}

type contract struct {
	source        string
	publishHeight uint64
	program       *stackstarter // nil for contracts without simulated functions
}

type pending struct {
	txid   string
	sender string
	tx     *txn.Transaction
}

// Node is a fake ledger behind an httptest server.
type Node struct {
	// FeeRate is served by /v2/fees/transfer.
	FeeRate uint64
	Network wallet.Network

	mu        sync.Mutex
	height    uint64
	accounts  map[string]*account
	contracts map[string]*contract
	mempool   []pending
	receipts  map[string]Receipt

	server *httptest.Server
	stop   chan struct{}
	done   sync.WaitGroup
}

// New starts a fake testnet node at height 1.
func New() *Node {
	n := &Node{
		FeeRate:   1,
		Network:   wallet.Testnet,
		height:    1,
		accounts:  make(map[string]*account),
		contracts: make(map[string]*contract),
		receipts:  make(map[string]Receipt),
	}
	n.server = httptest.NewServer(n.router())
	return n
}

// URL is the base URL of the node's HTTP API.
func (n *Node) URL() string { return n.server.URL }

// Close stops mining and the HTTP server.
func (n *Node) Close() {
	n.StopMining()
	n.server.Close()
}

// Fund credits principal with amount micro-STX, creating its history.
func (n *Node) Fund(principal string, amount uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.credit(principal, new(big.Int).SetUint64(amount))
}

// Height returns the current chain tip.
func (n *Node) Height() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.height
}

// Balance returns the balance of principal, zero if it has no history.
func (n *Node) Balance(principal string) *big.Int {
	n.mu.Lock()
	defer n.mu.Unlock()
	if a, ok := n.accounts[principal]; ok {
		return new(big.Int).Set(a.balance)
	}
	return new(big.Int)
}

// Receipt returns the outcome of a mined transaction.
func (n *Node) Receipt(txid string) (Receipt, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	r, ok := n.receipts[txid]
	return r, ok
}

// StartMining mines a block every interval until StopMining or Close.
func (n *Node) StartMining(interval time.Duration) {
	n.mu.Lock()
	if n.stop != nil {
		n.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	n.stop = stop
	n.mu.Unlock()

	n.done.Add(1)
	go func() {
		defer n.done.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				n.MineBlock()
			}
		}
	}()
}

// StopMining stops the mining goroutine, if any.
func (n *Node) StopMining() {
	n.mu.Lock()
	stop := n.stop
	n.stop = nil
	n.mu.Unlock()
	if stop != nil {
		close(stop)
		n.done.Wait()
	}
}

// MineBlock includes every pending transaction in a new block.
func (n *Node) MineBlock() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.height++
	for _, p := range n.mempool {
		r := n.apply(p)
		r.TxID = p.txid
		r.Height = n.height
		r.Fee = p.tx.Auth.Fee
		n.receipts[p.txid] = r
	}
	n.mempool = nil
}

func (n *Node) credit(principal string, amount *big.Int) {
	a, ok := n.accounts[principal]
	if !ok {
		a = &account{balance: new(big.Int)}
		n.accounts[principal] = a
	}
	a.balance.Add(a.balance, amount)
}

func (n *Node) balanceOf(principal string) *big.Int {
	if a, ok := n.accounts[principal]; ok {
		return a.balance
	}
	return new(big.Int)
}

// rejection is why a transaction was refused at submission.
type rejection struct {
	reason string
	txid   string
}

func (r *rejection) Error() string { return r.reason }

// submit validates tx against the confirmed state and the mempool.
func (n *Node) submit(raw []byte) (string, error) {
	tx, err := txn.Deserialize(raw)
	if err != nil {
		return "", &rejection{reason: "Deserialization"}
	}
	txid, err := tx.TxID()
	if err != nil {
		return "", &rejection{reason: "Serialization"}
	}
	if tx.Version != n.Network.TxVersion || tx.ChainID != n.Network.ChainID {
		return "", &rejection{reason: "BadTransactionVersion", txid: txid}
	}
	if err := tx.Verify(); err != nil {
		return "", &rejection{reason: "SignatureValidation", txid: txid}
	}
	sender := tx.SignerAddress(n.Network.AddressVersion)

	n.mu.Lock()
	defer n.mu.Unlock()

	expected := uint64(0)
	if a, ok := n.accounts[sender]; ok {
		expected = a.nonce
	}
	for _, p := range n.mempool {
		if p.txid == txid {
			return "", &rejection{reason: "ConflictingNonceInMempool", txid: txid}
		}
		if p.sender == sender {
			expected++
		}
	}
	if tx.Auth.Nonce != expected {
		return "", &rejection{reason: "BadNonce", txid: txid}
	}
	if n.balanceOf(sender).Cmp(new(big.Int).SetUint64(tx.Auth.Fee)) < 0 {
		return "", &rejection{reason: "NotEnoughFunds", txid: txid}
	}

	switch p := tx.Payload.(type) {
	case txn.SmartContract:
		id := sender + "." + p.ContractName
		if _, exists := n.contracts[id]; exists {
			return "", &rejection{reason: "ContractAlreadyExists", txid: txid}
		}
		for _, q := range n.mempool {
			if sc, ok := q.tx.Payload.(txn.SmartContract); ok && q.sender == sender && sc.ContractName == p.ContractName {
				return "", &rejection{reason: "ContractAlreadyExists", txid: txid}
			}
		}
	case txn.ContractCall:
		if _, exists := n.contracts[p.ContractID()]; !exists {
			return "", &rejection{reason: "NoSuchContract", txid: txid}
		}
	}

	n.mempool = append(n.mempool, pending{txid: txid, sender: sender, tx: tx})
	return txid, nil
}

// apply executes one transaction in the block at n.height. The fee and
// nonce are consumed whatever the outcome.
func (n *Node) apply(p pending) Receipt {
	sender := n.accounts[p.sender]
	sender.balance.Sub(sender.balance, new(big.Int).SetUint64(p.tx.Auth.Fee))
	sender.nonce++

	switch payload := p.tx.Payload.(type) {
	case txn.SmartContract:
		id := p.sender + "." + payload.ContractName
		c := &contract{source: payload.CodeBody, publishHeight: n.height}
		if payload.ContractName == "stackstarter" {
			c.program = newStackstarter(id)
		}
		n.contracts[id] = c
		return Receipt{Status: StatusSuccess, Result: clarity.ResponseOk{Value: clarity.Bool(true)}}

	case txn.ContractCall:
		c := n.contracts[payload.ContractID()]
		if c == nil || c.program == nil {
			return Receipt{Status: StatusAbortByResponse}
		}
		senderPrincipal, err := clarity.ParsePrincipal(p.sender)
		if err != nil {
			return Receipt{Status: StatusAbortByResponse}
		}
		eff, err := c.program.public(senderPrincipal, n.height, payload.FunctionName, payload.Args)
		if err != nil {
			return Receipt{Status: StatusAbortByResponse}
		}
		if _, isOk := eff.result.(clarity.ResponseOk); !isOk {
			return Receipt{Status: StatusAbortByResponse, Result: eff.result}
		}
		if !n.fundsCover(eff.transfers) {
			return Receipt{Status: StatusAbortByResponse, Result: eff.result}
		}
		if !postConditionsHold(p.tx, eff.transfers) {
			return Receipt{Status: StatusAbortByPostCondition, Result: eff.result}
		}
		applied := make([]Transfer, 0, len(eff.transfers))
		for _, t := range eff.transfers {
			n.balanceOf(t.from).Sub(n.balanceOf(t.from), t.amount)
			n.credit(t.to, t.amount)
			applied = append(applied, Transfer{From: t.from, To: t.to, Amount: new(big.Int).Set(t.amount)})
		}
		if eff.commit != nil {
			eff.commit()
		}
		return Receipt{Status: StatusSuccess, Result: eff.result, Transfers: applied}
	}
	return Receipt{Status: StatusAbortByResponse}
}

func (n *Node) fundsCover(transfers []transfer) bool {
	out := sentBy(transfers)
	for principal, amount := range out {
		if n.balanceOf(principal).Cmp(amount) < 0 {
			return false
		}
	}
	return true
}

func sentBy(transfers []transfer) map[string]*big.Int {
	out := make(map[string]*big.Int)
	for _, t := range transfers {
		if _, ok := out[t.from]; !ok {
			out[t.from] = new(big.Int)
		}
		out[t.from].Add(out[t.from], t.amount)
	}
	return out
}

// postConditionsHold checks every post-condition against what each
// principal sent. In deny mode every sending principal must be covered.
func postConditionsHold(tx *txn.Transaction, transfers []transfer) bool {
	sent := sentBy(transfers)
	covered := make(map[string]bool)
	for _, pc := range tx.PostConditions {
		principal := pc.PrincipalString()
		covered[principal] = true
		amount := new(big.Int)
		if s, ok := sent[principal]; ok {
			amount = s
		}
		if !amount.IsUint64() || !pc.Code.Holds(amount.Uint64(), pc.Amount) {
			return false
		}
	}
	if tx.PostConditionMode == txn.PostConditionDeny {
		for principal, amount := range sent {
			if amount.Sign() > 0 && !covered[principal] {
				return false
			}
		}
	}
	return true
}

func (n *Node) String() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return fmt.Sprintf("nodetest height=%d accounts=%d contracts=%d pending=%d",
		n.height, len(n.accounts), len(n.contracts), len(n.mempool))
}
