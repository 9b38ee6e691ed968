package model

import "time"

// CampaignSnapshot is everything known about one campaign as of Height.
// It is a read-through copy of ledger state with no staleness guarantee.
type CampaignSnapshot struct {
	Campaign    *Campaign            `json:"campaign"`
	Information *CampaignInformation `json:"information"`
	Status      *CampaignStatus      `json:"status"`
	Totals      *Totals              `json:"totals"`
	Tiers       []Tier               `json:"tiers"`
	Active      bool                 `json:"active"`
	Height      uint64               `json:"height"`
	Stage       Stage                `json:"stage"`
	TakenAt     time.Time            `json:"taken_at"`
}

// Transition records a stage change between two snapshots.
type Transition struct {
	CampaignID uint64    `json:"campaign_id"`
	From       Stage     `json:"from"`
	To         Stage     `json:"to"`
	Height     uint64    `json:"height"`
	At         time.Time `json:"at"`
}
