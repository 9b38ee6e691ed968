package campaign

import (
	"context"
	"fmt"
	"math/big"

	"Stackstarter/internal/clarity"
	"Stackstarter/internal/model"
)

// record unwraps (ok (some tuple)). (ok none) reports false.
func record(v clarity.Value) (clarity.Tuple, bool, error) {
	inner, ok := clarity.UnwrapOk(v)
	if !ok {
		return nil, false, fmt.Errorf("expected (ok ...), got %s", clarity.String(v))
	}
	if _, none := inner.(clarity.None); none {
		return nil, false, nil
	}
	some, ok := clarity.UnwrapSome(inner)
	if !ok {
		return nil, false, fmt.Errorf("expected optional, got %s", clarity.String(inner))
	}
	t, ok := some.(clarity.Tuple)
	if !ok {
		return nil, false, fmt.Errorf("expected tuple, got %s", clarity.String(some))
	}
	return t, true, nil
}

type fields struct {
	t   clarity.Tuple
	err error
}

func (f *fields) get(name string) clarity.Value {
	if f.err != nil {
		return nil
	}
	v, ok := f.t[name]
	if !ok {
		f.err = fmt.Errorf("missing field %q", name)
	}
	return v
}

func (f *fields) text(name string) string {
	v := f.get(name)
	if f.err != nil {
		return ""
	}
	s, ok := clarity.AsText(v)
	if !ok {
		f.err = fmt.Errorf("field %q: expected buffer or string, got %s", name, clarity.String(v))
	}
	return s
}

func (f *fields) unsigned(name string) *big.Int {
	v := f.get(name)
	if f.err != nil {
		return nil
	}
	n, ok := clarity.AsUInt(v)
	if !ok {
		f.err = fmt.Errorf("field %q: expected uint, got %s", name, clarity.String(v))
	}
	return n
}

func (f *fields) height(name string) uint64 {
	n := f.unsigned(name)
	if f.err != nil {
		return 0
	}
	if !n.IsUint64() {
		f.err = fmt.Errorf("field %q: height %s out of range", name, n)
		return 0
	}
	return n.Uint64()
}

func (f *fields) boolean(name string) bool {
	v := f.get(name)
	if f.err != nil {
		return false
	}
	b, ok := clarity.AsBool(v)
	if !ok {
		f.err = fmt.Errorf("field %q: expected bool, got %s", name, clarity.String(v))
	}
	return b
}

func (f *fields) principal(name string) string {
	v := f.get(name)
	if f.err != nil {
		return ""
	}
	s, ok := clarity.PrincipalString(v)
	if !ok {
		f.err = fmt.Errorf("field %q: expected principal, got %s", name, clarity.String(v))
	}
	return s
}

// DecodeCampaign converts a get-campaign result. (ok none) yields nil.
func DecodeCampaign(v clarity.Value) (*model.Campaign, error) {
	t, found, err := record(v)
	if err != nil || !found {
		return nil, err
	}
	f := fields{t: t}
	out := &model.Campaign{
		Fundraiser:        f.principal("fundraiser"),
		Name:              f.text("name"),
		Goal:              f.unsigned("goal"),
		TargetBlockHeight: f.height("target-block-height"),
	}
	if f.err != nil {
		return nil, fmt.Errorf("decode campaign: %w", f.err)
	}
	return out, nil
}

// DecodeCampaignInformation converts a get-campaign-information result.
func DecodeCampaignInformation(v clarity.Value) (*model.CampaignInformation, error) {
	t, found, err := record(v)
	if err != nil || !found {
		return nil, err
	}
	f := fields{t: t}
	out := &model.CampaignInformation{
		Description: f.text("description"),
		Link:        f.text("link"),
	}
	if f.err != nil {
		return nil, fmt.Errorf("decode campaign information: %w", f.err)
	}
	return out, nil
}

// DecodeCampaignStatus converts a get-campaign-status result.
func DecodeCampaignStatus(v clarity.Value) (*model.CampaignStatus, error) {
	t, found, err := record(v)
	if err != nil || !found {
		return nil, err
	}
	f := fields{t: t}
	out := &model.CampaignStatus{
		TargetReached:       f.boolean("target-reached"),
		TargetReachedHeight: f.height("target-reached-height"),
		Funded:              f.boolean("funded"),
	}
	if f.err != nil {
		return nil, fmt.Errorf("decode campaign status: %w", f.err)
	}
	return out, nil
}

// DecodeTotals converts a get-campaign-totals or get-campaign-tier-totals
// result.
func DecodeTotals(v clarity.Value) (*model.Totals, error) {
	t, found, err := record(v)
	if err != nil || !found {
		return nil, err
	}
	f := fields{t: t}
	out := &model.Totals{
		TotalInvestment: f.unsigned("total-investment"),
		TotalInvestors:  f.unsigned("total-investors"),
	}
	if f.err != nil {
		return nil, fmt.Errorf("decode totals: %w", f.err)
	}
	return out, nil
}

// DecodeTier converts a get-campaign-tier result.
func DecodeTier(v clarity.Value) (*model.Tier, error) {
	t, found, err := record(v)
	if err != nil || !found {
		return nil, err
	}
	f := fields{t: t}
	out := &model.Tier{
		Name:        f.text("name"),
		Description: f.text("description"),
		Cost:        f.unsigned("cost"),
	}
	if f.err != nil {
		return nil, fmt.Errorf("decode tier: %w", f.err)
	}
	return out, nil
}

// Campaign returns the typed campaign or ErrNotFound.
func (c *Client) Campaign(ctx context.Context, campaignID uint64) (*model.Campaign, error) {
	v, err := c.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	out, err := DecodeCampaign(v)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("campaign %d: %w", campaignID, ErrNotFound)
	}
	out.ID = campaignID
	return out, nil
}

// CampaignInformation returns the typed information or ErrNotFound.
func (c *Client) CampaignInformation(ctx context.Context, campaignID uint64) (*model.CampaignInformation, error) {
	v, err := c.GetCampaignInformation(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	out, err := DecodeCampaignInformation(v)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("campaign %d information: %w", campaignID, ErrNotFound)
	}
	return out, nil
}

// CampaignStatus returns the typed status or ErrNotFound.
func (c *Client) CampaignStatus(ctx context.Context, campaignID uint64) (*model.CampaignStatus, error) {
	v, err := c.GetCampaignStatus(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	out, err := DecodeCampaignStatus(v)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("campaign %d status: %w", campaignID, ErrNotFound)
	}
	return out, nil
}

// CampaignTotals returns the typed campaign totals or ErrNotFound.
func (c *Client) CampaignTotals(ctx context.Context, campaignID uint64) (*model.Totals, error) {
	v, err := c.GetCampaignTotals(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	out, err := DecodeTotals(v)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("campaign %d totals: %w", campaignID, ErrNotFound)
	}
	return out, nil
}

// Tier returns a typed tier with its totals, or ErrNotFound. A tier without
// recorded totals has zero totals.
func (c *Client) Tier(ctx context.Context, campaignID, tierID uint64) (*model.Tier, error) {
	v, err := c.GetCampaignTier(ctx, campaignID, tierID)
	if err != nil {
		return nil, err
	}
	tier, err := DecodeTier(v)
	if err != nil {
		return nil, err
	}
	if tier == nil {
		return nil, fmt.Errorf("campaign %d tier %d: %w", campaignID, tierID, ErrNotFound)
	}
	tier.ID = tierID

	v, err = c.GetCampaignTierTotals(ctx, campaignID, tierID)
	if err != nil {
		return nil, err
	}
	if tier.Totals, err = DecodeTotals(v); err != nil {
		return nil, err
	}
	if tier.Totals == nil {
		tier.Totals = &model.Totals{TotalInvestment: new(big.Int), TotalInvestors: new(big.Int)}
	}
	return tier, nil
}
