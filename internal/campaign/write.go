package campaign

import (
	"context"
	"fmt"
	"log"
	"math/big"

	"Stackstarter/internal/clarity"
	"Stackstarter/internal/txn"
)

// NewCampaign holds the arguments of create-campaign. All fields are
// required.
type NewCampaign struct {
	Name        string
	Description string
	Link        string
	Goal        *big.Int
	// Duration is the number of blocks the campaign accepts investments.
	Duration uint64
}

func (n NewCampaign) valid() bool {
	return n.Name != "" && n.Description != "" && n.Link != "" && positive(n.Goal) && n.Duration > 0
}

// CampaignUpdate holds the arguments of update-campaign-information.
type CampaignUpdate struct {
	Description string
	Link        string
}

func (u CampaignUpdate) valid() bool {
	return u.Description != "" && u.Link != ""
}

// NewTier holds the arguments of add-tier.
type NewTier struct {
	CampaignID  uint64
	Name        string
	Description string
	Cost        *big.Int
}

func (t NewTier) valid() bool {
	return t.CampaignID > 0 && t.Name != "" && t.Description != "" && positive(t.Cost)
}

func positive(n *big.Int) bool {
	return n != nil && n.Sign() > 0
}

func (c *Client) call(ctx context.Context, function string, args []clarity.Value, conditions ...txn.PostCondition) (string, error) {
	if c.Account == nil {
		return "", ErrNoAccount
	}
	tx, err := txn.MakeContractCall(c.Account, txn.ContractCallOptions{
		ContractAddress: c.ContractAddress,
		ContractName:    c.ContractName,
		FunctionName:    function,
		Args:            args,
		PostConditions:  conditions,
	})
	if err != nil {
		return "", fmt.Errorf("build %s: %w", function, err)
	}
	txid, err := c.node.SignAndBroadcast(ctx, c.Account, tx)
	if err != nil {
		return "", fmt.Errorf("%s: %w", function, err)
	}
	log.Printf("[INFO] %s from %s broadcast: %s", function, c.Account.Address, txid)
	return txid, nil
}

// CreateCampaign broadcasts create-campaign. The new campaign's id is the
// campaign nonce once the transaction is mined.
func (c *Client) CreateCampaign(ctx context.Context, n NewCampaign) (string, error) {
	if !n.valid() {
		return "", ErrInvalidInput
	}
	return c.call(ctx, "create-campaign", []clarity.Value{
		clarity.BufferFromString(n.Name),
		clarity.BufferFromString(n.Description),
		clarity.BufferFromString(n.Link),
		clarity.UIntFromBig(n.Goal),
		clarity.NewUInt(n.Duration),
	})
}

// UpdateCampaignInformation broadcasts update-campaign-information. The
// contract ignores it unless sent by the fundraiser.
func (c *Client) UpdateCampaignInformation(ctx context.Context, campaignID uint64, u CampaignUpdate) (string, error) {
	if campaignID == 0 || !u.valid() {
		return "", ErrInvalidInput
	}
	return c.call(ctx, "update-campaign-information", []clarity.Value{
		clarity.NewUInt(campaignID),
		clarity.BufferFromString(u.Description),
		clarity.BufferFromString(u.Link),
	})
}

// AddTier broadcasts add-tier. Only the fundraiser of an active campaign
// can add tiers.
func (c *Client) AddTier(ctx context.Context, t NewTier) (string, error) {
	if !t.valid() {
		return "", ErrInvalidInput
	}
	return c.call(ctx, "add-tier", []clarity.Value{
		clarity.NewUInt(t.CampaignID),
		clarity.BufferFromString(t.Name),
		clarity.BufferFromString(t.Description),
		clarity.UIntFromBig(t.Cost),
	})
}

// Invest broadcasts invest with a post-condition that the acting account
// sends exactly amount micro-STX.
func (c *Client) Invest(ctx context.Context, campaignID, tierID uint64, amount *big.Int) (string, error) {
	if campaignID == 0 || tierID == 0 || !positive(amount) || !amount.IsUint64() {
		return "", ErrInvalidInput
	}
	if c.Account == nil {
		return "", ErrNoAccount
	}
	pc, err := txn.StandardSTXPostCondition(c.Account.Address, txn.Equal, amount.Uint64())
	if err != nil {
		return "", fmt.Errorf("invest post-condition: %w", err)
	}
	return c.call(ctx, "invest", []clarity.Value{
		clarity.NewUInt(campaignID),
		clarity.NewUInt(tierID),
		clarity.UIntFromBig(amount),
	}, pc)
}

// Refund broadcasts refund with a post-condition that the contract sends a
// positive amount.
func (c *Client) Refund(ctx context.Context, campaignID, tierID uint64) (string, error) {
	if campaignID == 0 || tierID == 0 {
		return "", ErrInvalidInput
	}
	pc, err := c.contractPaysOut()
	if err != nil {
		return "", err
	}
	return c.call(ctx, "refund", []clarity.Value{
		clarity.NewUInt(campaignID),
		clarity.NewUInt(tierID),
	}, pc)
}

// Collect broadcasts collect with a post-condition that the contract sends
// a positive amount.
func (c *Client) Collect(ctx context.Context, campaignID uint64) (string, error) {
	if campaignID == 0 {
		return "", ErrInvalidInput
	}
	pc, err := c.contractPaysOut()
	if err != nil {
		return "", err
	}
	return c.call(ctx, "collect", []clarity.Value{clarity.NewUInt(campaignID)}, pc)
}

func (c *Client) contractPaysOut() (txn.PostCondition, error) {
	pc, err := txn.ContractSTXPostCondition(c.ContractAddress, c.ContractName, txn.Greater, 0)
	if err != nil {
		return txn.PostCondition{}, fmt.Errorf("contract post-condition: %w", err)
	}
	return pc, nil
}
