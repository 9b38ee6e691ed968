package campaign

import (
	"context"
	"fmt"
	"time"

	"Stackstarter/internal/model"
)

// DeriveStage computes the lifecycle stage from status fields alone. A
// campaign whose goal was reached stays TargetReached until collected,
// regardless of height.
func DeriveStage(status *model.CampaignStatus, targetBlockHeight, currentHeight uint64) model.Stage {
	switch {
	case status == nil:
		return model.StageUnknown
	case status.Funded:
		return model.StageFunded
	case status.TargetReached:
		return model.StageTargetReached
	case currentHeight < targetBlockHeight:
		return model.StageActive
	default:
		return model.StageExpired
	}
}

// Snapshot reads the complete state of one campaign. The result is a copy
// as of the returned height.
func (c *Client) Snapshot(ctx context.Context, campaignID uint64) (*model.CampaignSnapshot, error) {
	info, err := c.node.GetChainInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot chain info: %w", err)
	}

	snap := &model.CampaignSnapshot{Height: info.StacksTipHeight, TakenAt: time.Now()}
	if snap.Campaign, err = c.Campaign(ctx, campaignID); err != nil {
		return nil, err
	}
	if snap.Information, err = c.CampaignInformation(ctx, campaignID); err != nil {
		return nil, err
	}
	if snap.Status, err = c.CampaignStatus(ctx, campaignID); err != nil {
		return nil, err
	}
	if snap.Totals, err = c.CampaignTotals(ctx, campaignID); err != nil {
		return nil, err
	}
	if snap.Active, err = c.GetIsActiveCampaign(ctx, campaignID); err != nil {
		return nil, err
	}

	count, err := c.GetTotalCampaignTiers(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if !count.IsUint64() {
		return nil, fmt.Errorf("campaign %d: tier count %s out of range", campaignID, count)
	}
	for id := uint64(1); id <= count.Uint64(); id++ {
		tier, err := c.Tier(ctx, campaignID, id)
		if err != nil {
			return nil, err
		}
		snap.Tiers = append(snap.Tiers, *tier)
	}

	snap.Stage = DeriveStage(snap.Status, snap.Campaign.TargetBlockHeight, snap.Height)
	return snap, nil
}
