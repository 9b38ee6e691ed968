package nodetest

import (
	"fmt"
	"math/big"

	"Stackstarter/internal/clarity"
)

// Error codes returned by the simulated contract as (err uN).
const (
	errUnauthorized uint64 = iota + 1
	errCampaignNotFound
	errCampaignInactive
	errTierNotFound
	errAmountMismatch
	errAlreadyInvested
	errNoInvestment
	errTargetReached
	errTargetNotReached
	errAlreadyFunded
	errInvalidArgument
)

type tierRecord struct {
	name            string
	description     string
	cost            *big.Int
	totalInvestment *big.Int
	totalInvestors  *big.Int
	investments     map[string]*big.Int
}

type campaignRecord struct {
	fundraiser          clarity.Value
	name                string
	description         string
	link                string
	goal                *big.Int
	targetBlockHeight   uint64
	targetReached       bool
	targetReachedHeight uint64
	funded              bool
	totalInvestment     *big.Int
	totalInvestors      *big.Int
	tierNonce           uint64
	tiers               map[uint64]*tierRecord
}

func (c *campaignRecord) active(height uint64) bool {
	return height < c.targetBlockHeight && !c.funded
}

// stackstarter simulates the crowdfunding contract. It is driven by the
// ledger, which holds the lock.
type stackstarter struct {
	id string // contract principal

	campaignNonce        uint64
	campaigns            map[uint64]*campaignRecord
	totalCampaignsFunded *big.Int
	totalInvestments     *big.Int
	totalInvestmentValue *big.Int
}

func newStackstarter(id string) *stackstarter {
	return &stackstarter{
		id:                   id,
		campaigns:            make(map[uint64]*campaignRecord),
		totalCampaignsFunded: new(big.Int),
		totalInvestments:     new(big.Int),
		totalInvestmentValue: new(big.Int),
	}
}

// transfer moves micro-STX between principals.
type transfer struct {
	from, to string
	amount   *big.Int
}

// effect is the outcome of a public call. commit runs only if the ledger
// accepts the transfers and post-conditions.
type effect struct {
	result    clarity.Value
	transfers []transfer
	commit    func()
}

func fail(code uint64) effect {
	return effect{result: clarity.ResponseErr{Value: clarity.NewUInt(code)}}
}

func succeed(v clarity.Value, commit func(), transfers ...transfer) effect {
	return effect{result: clarity.ResponseOk{Value: v}, transfers: transfers, commit: commit}
}

// args reads positional arguments with a sticky error.
type args struct {
	vals []clarity.Value
	err  error
}

func newArgs(vals []clarity.Value, n int) *args {
	a := &args{vals: vals}
	if len(vals) != n {
		a.err = fmt.Errorf("Unchecked(IncorrectArgumentCount(%d, %d))", n, len(vals))
	}
	return a
}

func (a *args) unsigned(i int) *big.Int {
	if a.err != nil {
		return nil
	}
	n, ok := clarity.AsUInt(a.vals[i])
	if !ok {
		a.err = fmt.Errorf("Unchecked(TypeValueError(UIntType, %s))", clarity.String(a.vals[i]))
	}
	return n
}

func (a *args) id(i int) uint64 {
	n := a.unsigned(i)
	if a.err != nil {
		return 0
	}
	if !n.IsUint64() {
		return 0
	}
	return n.Uint64()
}

func (a *args) buff(i int) string {
	if a.err != nil {
		return ""
	}
	b, ok := a.vals[i].(clarity.Buffer)
	if !ok {
		a.err = fmt.Errorf("Unchecked(TypeValueError(BufferType, %s))", clarity.String(a.vals[i]))
	}
	return string(b)
}

func (a *args) principal(i int) string {
	if a.err != nil {
		return ""
	}
	s, ok := clarity.PrincipalString(a.vals[i])
	if !ok {
		a.err = fmt.Errorf("Unchecked(TypeValueError(PrincipalType, %s))", clarity.String(a.vals[i]))
	}
	return s
}

// public executes a public function at height on behalf of sender.
func (s *stackstarter) public(sender clarity.Value, height uint64, function string, vals []clarity.Value) (effect, error) {
	senderID, _ := clarity.PrincipalString(sender)
	switch function {
	case "create-campaign":
		a := newArgs(vals, 5)
		name, desc, link, goal, duration := a.buff(0), a.buff(1), a.buff(2), a.unsigned(3), a.unsigned(4)
		if a.err != nil {
			return effect{}, a.err
		}
		if goal.Sign() == 0 || duration.Sign() == 0 || !duration.IsUint64() {
			return fail(errInvalidArgument), nil
		}
		id := s.campaignNonce + 1
		return succeed(clarity.NewUInt(id), func() {
			s.campaignNonce = id
			s.campaigns[id] = &campaignRecord{
				fundraiser:        sender,
				name:              name,
				description:       desc,
				link:              link,
				goal:              goal,
				targetBlockHeight: height + duration.Uint64(),
				totalInvestment:   new(big.Int),
				totalInvestors:    new(big.Int),
				tiers:             make(map[uint64]*tierRecord),
			}
		}), nil

	case "update-campaign-information":
		a := newArgs(vals, 3)
		id, desc, link := a.id(0), a.buff(1), a.buff(2)
		if a.err != nil {
			return effect{}, a.err
		}
		c, found := s.campaigns[id]
		if !found {
			return fail(errCampaignNotFound), nil
		}
		if !clarity.Equal(c.fundraiser, sender) {
			return fail(errUnauthorized), nil
		}
		return succeed(clarity.Bool(true), func() {
			c.description = desc
			c.link = link
		}), nil

	case "add-tier":
		a := newArgs(vals, 4)
		id, name, desc, cost := a.id(0), a.buff(1), a.buff(2), a.unsigned(3)
		if a.err != nil {
			return effect{}, a.err
		}
		c, found := s.campaigns[id]
		if !found {
			return fail(errCampaignNotFound), nil
		}
		if !clarity.Equal(c.fundraiser, sender) {
			return fail(errUnauthorized), nil
		}
		if !c.active(height) {
			return fail(errCampaignInactive), nil
		}
		tierID := c.tierNonce + 1
		return succeed(clarity.NewUInt(tierID), func() {
			c.tierNonce = tierID
			c.tiers[tierID] = &tierRecord{
				name:            name,
				description:     desc,
				cost:            cost,
				totalInvestment: new(big.Int),
				totalInvestors:  new(big.Int),
				investments:     make(map[string]*big.Int),
			}
		}), nil

	case "invest":
		a := newArgs(vals, 3)
		id, tierID, amount := a.id(0), a.id(1), a.unsigned(2)
		if a.err != nil {
			return effect{}, a.err
		}
		c, found := s.campaigns[id]
		if !found {
			return fail(errCampaignNotFound), nil
		}
		if !c.active(height) {
			return fail(errCampaignInactive), nil
		}
		t, found := c.tiers[tierID]
		if !found {
			return fail(errTierNotFound), nil
		}
		if amount.Cmp(t.cost) != 0 {
			return fail(errAmountMismatch), nil
		}
		if prev, invested := t.investments[senderID]; invested && prev.Sign() > 0 {
			return fail(errAlreadyInvested), nil
		}
		return succeed(clarity.Bool(true), func() {
			t.investments[senderID] = amount
			t.totalInvestment.Add(t.totalInvestment, amount)
			t.totalInvestors.Add(t.totalInvestors, big.NewInt(1))
			c.totalInvestment.Add(c.totalInvestment, amount)
			c.totalInvestors.Add(c.totalInvestors, big.NewInt(1))
			s.totalInvestments.Add(s.totalInvestments, big.NewInt(1))
			s.totalInvestmentValue.Add(s.totalInvestmentValue, amount)
			if !c.targetReached && c.totalInvestment.Cmp(c.goal) >= 0 {
				c.targetReached = true
				c.targetReachedHeight = height
			}
		}, transfer{from: senderID, to: s.id, amount: amount}), nil

	case "refund":
		a := newArgs(vals, 2)
		id, tierID := a.id(0), a.id(1)
		if a.err != nil {
			return effect{}, a.err
		}
		c, found := s.campaigns[id]
		if !found {
			return fail(errCampaignNotFound), nil
		}
		if c.targetReached {
			return fail(errTargetReached), nil
		}
		t, found := c.tiers[tierID]
		if !found {
			return fail(errTierNotFound), nil
		}
		amount, invested := t.investments[senderID]
		if !invested || amount.Sign() == 0 {
			return fail(errNoInvestment), nil
		}
		return succeed(clarity.Bool(true), func() {
			delete(t.investments, senderID)
			t.totalInvestment.Sub(t.totalInvestment, amount)
			t.totalInvestors.Sub(t.totalInvestors, big.NewInt(1))
			c.totalInvestment.Sub(c.totalInvestment, amount)
			c.totalInvestors.Sub(c.totalInvestors, big.NewInt(1))
			s.totalInvestments.Sub(s.totalInvestments, big.NewInt(1))
			s.totalInvestmentValue.Sub(s.totalInvestmentValue, amount)
		}, transfer{from: s.id, to: senderID, amount: amount}), nil

	case "collect":
		a := newArgs(vals, 1)
		id := a.id(0)
		if a.err != nil {
			return effect{}, a.err
		}
		c, found := s.campaigns[id]
		if !found {
			return fail(errCampaignNotFound), nil
		}
		if !clarity.Equal(c.fundraiser, sender) {
			return fail(errUnauthorized), nil
		}
		if c.funded {
			return fail(errAlreadyFunded), nil
		}
		if !c.targetReached {
			return fail(errTargetNotReached), nil
		}
		amount := new(big.Int).Set(c.totalInvestment)
		return succeed(clarity.Bool(true), func() {
			c.funded = true
			s.totalCampaignsFunded.Add(s.totalCampaignsFunded, big.NewInt(1))
		}, transfer{from: s.id, to: senderID, amount: amount}), nil
	}
	return effect{}, fmt.Errorf("Unchecked(NoSuchPublicFunction(%q, %q))", s.id, function)
}

func uintOk(n *big.Int) clarity.Value {
	return clarity.ResponseOk{Value: clarity.UIntFromBig(n)}
}

func someOk(t clarity.Tuple) clarity.Value {
	return clarity.ResponseOk{Value: clarity.Some{Value: t}}
}

var noneOk clarity.Value = clarity.ResponseOk{Value: clarity.None{}}

func (c *campaignRecord) campaignTuple() clarity.Tuple {
	return clarity.Tuple{
		"fundraiser":          c.fundraiser,
		"name":                clarity.BufferFromString(c.name),
		"goal":                clarity.UIntFromBig(c.goal),
		"target-block-height": clarity.NewUInt(c.targetBlockHeight),
	}
}

func (c *campaignRecord) informationTuple() clarity.Tuple {
	return clarity.Tuple{
		"description": clarity.BufferFromString(c.description),
		"link":        clarity.BufferFromString(c.link),
	}
}

func (c *campaignRecord) statusTuple() clarity.Tuple {
	return clarity.Tuple{
		"target-reached":        clarity.Bool(c.targetReached),
		"target-reached-height": clarity.NewUInt(c.targetReachedHeight),
		"funded":                clarity.Bool(c.funded),
	}
}

func totalsTuple(investment, investors *big.Int) clarity.Tuple {
	return clarity.Tuple{
		"total-investment": clarity.UIntFromBig(investment),
		"total-investors":  clarity.UIntFromBig(investors),
	}
}

func (t *tierRecord) tierTuple() clarity.Tuple {
	return clarity.Tuple{
		"name":        clarity.BufferFromString(t.name),
		"description": clarity.BufferFromString(t.description),
		"cost":        clarity.UIntFromBig(t.cost),
	}
}

// readOnly evaluates a read-only function at height.
func (s *stackstarter) readOnly(height uint64, function string, vals []clarity.Value) (clarity.Value, error) {
	switch function {
	case "get-campaign-id-nonce":
		if err := newArgs(vals, 0).err; err != nil {
			return nil, err
		}
		return uintOk(new(big.Int).SetUint64(s.campaignNonce)), nil
	case "get-total-campaigns-funded", "get-total-investments", "get-total-investment-value":
		if err := newArgs(vals, 0).err; err != nil {
			return nil, err
		}
		switch function {
		case "get-total-campaigns-funded":
			return uintOk(s.totalCampaignsFunded), nil
		case "get-total-investments":
			return uintOk(s.totalInvestments), nil
		}
		return uintOk(s.totalInvestmentValue), nil

	case "get-campaign", "get-campaign-information", "get-campaign-status", "get-campaign-totals",
		"get-campaign-tier-nonce", "get-is-active-campaign":
		a := newArgs(vals, 1)
		id := a.id(0)
		if a.err != nil {
			return nil, a.err
		}
		c, found := s.campaigns[id]
		switch function {
		case "get-campaign-tier-nonce":
			if !found {
				return uintOk(new(big.Int)), nil
			}
			return uintOk(new(big.Int).SetUint64(c.tierNonce)), nil
		case "get-is-active-campaign":
			return clarity.ResponseOk{Value: clarity.Bool(found && c.active(height))}, nil
		}
		if !found {
			return noneOk, nil
		}
		switch function {
		case "get-campaign":
			return someOk(c.campaignTuple()), nil
		case "get-campaign-information":
			return someOk(c.informationTuple()), nil
		case "get-campaign-status":
			return someOk(c.statusTuple()), nil
		}
		return someOk(totalsTuple(c.totalInvestment, c.totalInvestors)), nil

	case "get-campaign-tier", "get-campaign-tier-totals":
		a := newArgs(vals, 2)
		id, tierID := a.id(0), a.id(1)
		if a.err != nil {
			return nil, a.err
		}
		t := s.tier(id, tierID)
		if t == nil {
			return noneOk, nil
		}
		if function == "get-campaign-tier" {
			return someOk(t.tierTuple()), nil
		}
		return someOk(totalsTuple(t.totalInvestment, t.totalInvestors)), nil

	case "get-campaign-tier-investment-amount":
		a := newArgs(vals, 3)
		id, tierID, who := a.id(0), a.id(1), a.principal(2)
		if a.err != nil {
			return nil, a.err
		}
		amount := new(big.Int)
		if t := s.tier(id, tierID); t != nil {
			if inv, found := t.investments[who]; found {
				amount.Set(inv)
			}
		}
		return uintOk(amount), nil
	}
	return nil, fmt.Errorf("Unchecked(NoSuchPublicFunction(%q, %q))", s.id, function)
}

func (s *stackstarter) tier(id, tierID uint64) *tierRecord {
	c, found := s.campaigns[id]
	if !found {
		return nil
	}
	return c.tiers[tierID]
}

// mapEntry reads a data map by key. Unknown maps report false.
func (s *stackstarter) mapEntry(name string, key clarity.Value) (clarity.Value, bool) {
	idOf := func(field string) uint64 {
		v, _ := clarity.Field(key, field)
		n, ok := clarity.AsUInt(v)
		if !ok || !n.IsUint64() {
			return 0
		}
		return n.Uint64()
	}
	some := func(t clarity.Tuple) clarity.Value { return clarity.Some{Value: t} }

	switch name {
	case "campaigns", "campaign-information", "campaign-status", "campaign-totals":
		c, found := s.campaigns[idOf("campaign-id")]
		if !found {
			return clarity.None{}, true
		}
		switch name {
		case "campaigns":
			return some(c.campaignTuple()), true
		case "campaign-information":
			return some(c.informationTuple()), true
		case "campaign-status":
			return some(c.statusTuple()), true
		}
		return some(totalsTuple(c.totalInvestment, c.totalInvestors)), true
	case "tiers", "tier-totals":
		t := s.tier(idOf("campaign-id"), idOf("tier-id"))
		if t == nil {
			return clarity.None{}, true
		}
		if name == "tiers" {
			return some(t.tierTuple()), true
		}
		return some(totalsTuple(t.totalInvestment, t.totalInvestors)), true
	}
	return nil, false
}
