package campaign

import (
	"context"
	"fmt"
	"math/big"

	"Stackstarter/internal/clarity"
	"Stackstarter/internal/node"
)

// absent is what a raw record read yields when the node has no history
// for the queried principal.
var absent clarity.Value = clarity.ResponseOk{Value: clarity.None{}}

// readWithDefault calls a read-only function and extracts a result. The
// node's "principal has no history" 400 and a result of unexpected shape
// both yield def. Other failures are returned.
func readWithDefault[T any](ctx context.Context, c *Client, function string, def T, extract func(clarity.Value) (T, bool), args ...clarity.Value) (T, error) {
	v, err := c.node.CallReadOnly(ctx, c.ContractAddress, c.ContractName, function, c.sender(), args...)
	if err != nil {
		if node.IsNoHistory(err) {
			return def, nil
		}
		return def, fmt.Errorf("%s: %w", function, err)
	}
	out, ok := extract(v)
	if !ok {
		return def, nil
	}
	return out, nil
}

func raw(v clarity.Value) (clarity.Value, bool) { return v, true }

func okUInt(v clarity.Value) (*big.Int, bool) {
	inner, ok := clarity.UnwrapOk(v)
	if !ok {
		return nil, false
	}
	return clarity.AsUInt(inner)
}

func okBool(v clarity.Value) (bool, bool) {
	inner, ok := clarity.UnwrapOk(v)
	if !ok {
		return false, false
	}
	return clarity.AsBool(inner)
}

func (c *Client) readRaw(ctx context.Context, function string, args ...clarity.Value) (clarity.Value, error) {
	return readWithDefault(ctx, c, function, absent, raw, args...)
}

func (c *Client) readUInt(ctx context.Context, function string, args ...clarity.Value) (*big.Int, error) {
	return readWithDefault(ctx, c, function, new(big.Int), okUInt, args...)
}

// GetCampaign returns the raw (ok (some {...})) or (ok none) result.
func (c *Client) GetCampaign(ctx context.Context, campaignID uint64) (clarity.Value, error) {
	return c.readRaw(ctx, "get-campaign", clarity.NewUInt(campaignID))
}

func (c *Client) GetCampaignInformation(ctx context.Context, campaignID uint64) (clarity.Value, error) {
	return c.readRaw(ctx, "get-campaign-information", clarity.NewUInt(campaignID))
}

func (c *Client) GetCampaignStatus(ctx context.Context, campaignID uint64) (clarity.Value, error) {
	return c.readRaw(ctx, "get-campaign-status", clarity.NewUInt(campaignID))
}

func (c *Client) GetCampaignTotals(ctx context.Context, campaignID uint64) (clarity.Value, error) {
	return c.readRaw(ctx, "get-campaign-totals", clarity.NewUInt(campaignID))
}

func (c *Client) GetCampaignTier(ctx context.Context, campaignID, tierID uint64) (clarity.Value, error) {
	return c.readRaw(ctx, "get-campaign-tier", clarity.NewUInt(campaignID), clarity.NewUInt(tierID))
}

func (c *Client) GetCampaignTierTotals(ctx context.Context, campaignID, tierID uint64) (clarity.Value, error) {
	return c.readRaw(ctx, "get-campaign-tier-totals", clarity.NewUInt(campaignID), clarity.NewUInt(tierID))
}

// GetTotalCampaigns returns the campaign id nonce, which is also the id of
// the most recently created campaign.
func (c *Client) GetTotalCampaigns(ctx context.Context) (*big.Int, error) {
	return c.readUInt(ctx, "get-campaign-id-nonce")
}

func (c *Client) GetTotalCampaignsFunded(ctx context.Context) (*big.Int, error) {
	return c.readUInt(ctx, "get-total-campaigns-funded")
}

func (c *Client) GetTotalInvestments(ctx context.Context) (*big.Int, error) {
	return c.readUInt(ctx, "get-total-investments")
}

func (c *Client) GetTotalInvestmentValue(ctx context.Context) (*big.Int, error) {
	return c.readUInt(ctx, "get-total-investment-value")
}

// GetTotalCampaignTiers returns the tier id nonce of a campaign.
func (c *Client) GetTotalCampaignTiers(ctx context.Context, campaignID uint64) (*big.Int, error) {
	return c.readUInt(ctx, "get-campaign-tier-nonce", clarity.NewUInt(campaignID))
}

// GetCampaignTierInvestmentAmount returns what who has invested in a tier.
// who is a standard address or a contract id.
func (c *Client) GetCampaignTierInvestmentAmount(ctx context.Context, campaignID, tierID uint64, who string) (*big.Int, error) {
	principal, err := clarity.ParsePrincipal(who)
	if err != nil {
		return nil, fmt.Errorf("investor: %w", err)
	}
	return c.readUInt(ctx, "get-campaign-tier-investment-amount",
		clarity.NewUInt(campaignID), clarity.NewUInt(tierID), principal)
}

// GetIsActiveCampaign reports whether the campaign accepts investments.
// Unknown campaigns are not active.
func (c *Client) GetIsActiveCampaign(ctx context.Context, campaignID uint64) (bool, error) {
	return readWithDefault(ctx, c, "get-is-active-campaign", false, okBool, clarity.NewUInt(campaignID))
}
