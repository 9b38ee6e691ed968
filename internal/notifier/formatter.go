package notifier

import (
	"fmt"
	"html"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"Stackstarter/internal/model"
)

// microPerSTX is the exponent between micro-STX and STX.
const microPerSTX = 6

// FormatSTX renders a micro-STX amount as STX, e.g. 20000 as "0.02 STX".
func FormatSTX(micro *big.Int) string {
	if micro == nil {
		return "0 STX"
	}
	return decimal.NewFromBigInt(micro, -microPerSTX).String() + " STX"
}

// ParseSTX reads an STX amount such as "1.5" into micro-STX. More than six
// decimal places is an error.
func ParseSTX(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("parse STX amount %q: %w", s, err)
	}
	micro := d.Shift(microPerSTX)
	if !micro.IsInteger() {
		return nil, fmt.Errorf("STX amount %q has more than %d decimals", s, microPerSTX)
	}
	return micro.BigInt(), nil
}

// progress renders raised/goal as a percentage with one decimal.
func progress(raised, goal *big.Int) string {
	if raised == nil || goal == nil || goal.Sign() == 0 {
		return "0%"
	}
	pct := decimal.NewFromBigInt(raised, 2).Div(decimal.NewFromBigInt(goal, 0))
	return pct.StringFixed(1) + "%"
}

func stageIcon(s model.Stage) string {
	switch s {
	case model.StageActive:
		return "🟢"
	case model.StageTargetReached:
		return "🎯"
	case model.StageFunded:
		return "✅"
	case model.StageExpired:
		return "⌛"
	}
	return "❔"
}

// FormatSnapshot formats the full state of one campaign.
func FormatSnapshot(snap *model.CampaignSnapshot) string {
	var b strings.Builder
	c := snap.Campaign

	b.WriteString(fmt.Sprintf("%s <b>#%d %s</b> | %s\n\n", stageIcon(snap.Stage), c.ID, html.EscapeString(c.Name), snap.Stage))
	if snap.Information != nil {
		b.WriteString(html.EscapeString(snap.Information.Description) + "\n")
		b.WriteString(html.EscapeString(snap.Information.Link) + "\n\n")
	}
	b.WriteString(fmt.Sprintf("Fundraiser: %s\n", c.Fundraiser))

	raised := new(big.Int)
	investors := new(big.Int)
	if snap.Totals != nil {
		raised, investors = snap.Totals.TotalInvestment, snap.Totals.TotalInvestors
	}
	b.WriteString(fmt.Sprintf("Raised: %s / %s (%s)\n", FormatSTX(raised), FormatSTX(c.Goal), progress(raised, c.Goal)))
	b.WriteString(fmt.Sprintf("Investors: %s\n", investors))

	if snap.Height < c.TargetBlockHeight {
		b.WriteString(fmt.Sprintf("Ends at block %d (%d blocks left)\n", c.TargetBlockHeight, c.TargetBlockHeight-snap.Height))
	} else {
		b.WriteString(fmt.Sprintf("Ended at block %d\n", c.TargetBlockHeight))
	}
	if snap.Status != nil && snap.Status.TargetReached {
		b.WriteString(fmt.Sprintf("Target reached at block %d\n", snap.Status.TargetReachedHeight))
	}

	if len(snap.Tiers) > 0 {
		b.WriteString("\n<b>Tiers:</b>\n")
		for _, tier := range snap.Tiers {
			line := fmt.Sprintf("  %d. %s: %s", tier.ID, html.EscapeString(tier.Name), FormatSTX(tier.Cost))
			if tier.Totals != nil {
				line += fmt.Sprintf(" (%s investors)", tier.Totals.TotalInvestors)
			}
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}

// FormatTransition formats a stage change for broadcast to the chat.
func FormatTransition(t *model.Transition, snap *model.CampaignSnapshot) string {
	name := ""
	if snap != nil && snap.Campaign != nil {
		name = " " + html.EscapeString(snap.Campaign.Name)
	}
	msg := fmt.Sprintf("%s <b>Campaign #%d%s</b>\n\n%s → %s at block %d",
		stageIcon(t.To), t.CampaignID, name, t.From, t.To, t.Height)

	switch t.To {
	case model.StageTargetReached:
		msg += "\nThe goal was met. The fundraiser can now collect."
	case model.StageExpired:
		msg += "\nThe goal was not met. Investors can refund."
	case model.StageFunded:
		msg += "\nThe fundraiser collected the investments."
	}
	return msg
}

// FormatCampaignList formats a one-line summary per campaign.
func FormatCampaignList(snaps []*model.CampaignSnapshot) string {
	if len(snaps) == 0 {
		return "No campaigns yet."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📋 <b>Campaigns</b> (%d)\n\n", len(snaps)))
	for _, s := range snaps {
		raised := new(big.Int)
		if s.Totals != nil {
			raised = s.Totals.TotalInvestment
		}
		b.WriteString(fmt.Sprintf("%s #%d %s: %s of %s\n",
			stageIcon(s.Stage), s.Campaign.ID, html.EscapeString(s.Campaign.Name), FormatSTX(raised), FormatSTX(s.Campaign.Goal)))
	}
	return b.String()
}

// FormatHelp lists the commands the bot understands.
func FormatHelp() string {
	return "Available commands:\n• /status &lt;campaign id&gt;\n• /campaigns"
}
