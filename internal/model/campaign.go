package model

import "math/big"

// Campaign is the immutable part of a crowdfunding campaign.
type Campaign struct {
	ID                uint64   `json:"id"`
	Fundraiser        string   `json:"fundraiser"`
	Name              string   `json:"name"`
	Goal              *big.Int `json:"goal"`
	TargetBlockHeight uint64   `json:"target_block_height"`
}

// CampaignInformation is the part only the fundraiser may update.
type CampaignInformation struct {
	Description string `json:"description"`
	Link        string `json:"link"`
}

// CampaignStatus holds the status flags the contract records.
type CampaignStatus struct {
	TargetReached       bool   `json:"target_reached"`
	TargetReachedHeight uint64 `json:"target_reached_height"` // 0 until reached
	Funded              bool   `json:"funded"`
}

// Totals aggregates investments over a campaign or a tier.
type Totals struct {
	TotalInvestment *big.Int `json:"total_investment"`
	TotalInvestors  *big.Int `json:"total_investors"`
}

// Tier is a fixed-price contribution level of a campaign.
type Tier struct {
	ID          uint64   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Cost        *big.Int `json:"cost"`
	Totals      *Totals  `json:"totals,omitempty"`
}
