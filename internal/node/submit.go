package node

import (
	"context"
	"fmt"

	"Stackstarter/internal/txn"
	"Stackstarter/internal/wallet"
)

// MinFee is the lowest fee, in micro-STX, attached to a transaction.
const MinFee = 180

// SignAndBroadcast fills in the nonce and fee of an unsigned transaction,
// signs it with acct and submits it.
func (c *Client) SignAndBroadcast(ctx context.Context, acct *wallet.Account, tx *txn.Transaction) (string, error) {
	account, err := c.GetAccount(ctx, acct.Address)
	if err != nil {
		return "", fmt.Errorf("fetch nonce for %s: %w", acct.Address, err)
	}
	rate, err := c.GetFeeRate(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch fee rate: %w", err)
	}

	raw, err := tx.Serialize()
	if err != nil {
		return "", &BroadcastError{Reason: "serialize", Err: err}
	}
	fee := rate * uint64(len(raw))
	if fee < MinFee {
		fee = MinFee
	}

	tx.Auth.Nonce = account.Nonce
	tx.Auth.Fee = fee
	if err := tx.Sign(acct); err != nil {
		return "", err
	}
	return c.Broadcast(ctx, tx)
}
