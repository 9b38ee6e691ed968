package campaign

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"Stackstarter/internal/clarity"
	"Stackstarter/internal/model"
	"Stackstarter/internal/node"
	"Stackstarter/internal/txn"
	"Stackstarter/internal/wallet"
)

type stubNode struct {
	results   map[string]clarity.Value
	errs      map[string]error
	reads     []string
	senders   []string
	broadcast []*txn.Transaction
	height    uint64
}

func (s *stubNode) GetChainInfo(context.Context) (*node.ChainInfo, error) {
	return &node.ChainInfo{StacksTipHeight: s.height}, nil
}

func (s *stubNode) CallReadOnly(_ context.Context, _, _, function, sender string, _ ...clarity.Value) (clarity.Value, error) {
	s.reads = append(s.reads, function)
	s.senders = append(s.senders, sender)
	if err, ok := s.errs[function]; ok {
		return nil, err
	}
	return s.results[function], nil
}

func (s *stubNode) SignAndBroadcast(_ context.Context, _ *wallet.Account, tx *txn.Transaction) (string, error) {
	s.broadcast = append(s.broadcast, tx)
	return "0x01", nil
}

var noHistory = &node.NodeError{StatusCode: 400, Status: "400 Bad Request"}

func newTestAccount(t *testing.T) *wallet.Account {
	t.Helper()
	acct, err := wallet.Generate(wallet.Testnet)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return acct
}

func TestUIntReads_DefaultToZero(t *testing.T) {
	stub := &stubNode{
		results: map[string]clarity.Value{
			"get-campaign-id-nonce":      clarity.ResponseOk{Value: clarity.NewUInt(7)},
			"get-total-investments":      clarity.ResponseOk{Value: clarity.Bool(true)},
			"get-total-investment-value": clarity.ResponseErr{Value: clarity.NewUInt(1)},
		},
		errs: map[string]error{"get-total-campaigns-funded": noHistory},
	}
	c := New("ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM", nil, stub)
	ctx := context.Background()

	if n, err := c.GetTotalCampaigns(ctx); err != nil || n.Int64() != 7 {
		t.Errorf("GetTotalCampaigns = %v, %v; want 7", n, err)
	}
	for name, read := range map[string]func(context.Context) (*big.Int, error){
		"funded (400)":       c.GetTotalCampaignsFunded,
		"investments (bool)": c.GetTotalInvestments,
		"value (err)":        c.GetTotalInvestmentValue,
	} {
		n, err := read(ctx)
		if err != nil || n.Sign() != 0 {
			t.Errorf("%s: got %v, %v; want 0", name, n, err)
		}
	}
	if stub.senders[0] != "" {
		t.Errorf("read-only client should send no sender, got %q", stub.senders[0])
	}
}

func TestReads_PropagateOtherErrors(t *testing.T) {
	stub := &stubNode{errs: map[string]error{
		"get-campaign-id-nonce":  &node.ContractError{Cause: "Runtime"},
		"get-is-active-campaign": &node.NodeError{StatusCode: 500, Status: "500 Internal Server Error"},
	}}
	c := New("ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM", nil, stub)
	var ce *node.ContractError
	if _, err := c.GetTotalCampaigns(context.Background()); !errors.As(err, &ce) {
		t.Errorf("expected contract error, got %v", err)
	}
	if _, err := c.GetIsActiveCampaign(context.Background(), 1); err == nil {
		t.Error("expected 500 to propagate")
	}
}

func TestGetIsActiveCampaign(t *testing.T) {
	stub := &stubNode{results: map[string]clarity.Value{
		"get-is-active-campaign": clarity.ResponseOk{Value: clarity.Bool(true)},
	}}
	c := New("ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM", nil, stub)
	if active, err := c.GetIsActiveCampaign(context.Background(), 1); err != nil || !active {
		t.Errorf("expected active, got %v %v", active, err)
	}

	stub.results["get-is-active-campaign"] = clarity.ResponseOk{Value: clarity.NewUInt(1)}
	if active, err := c.GetIsActiveCampaign(context.Background(), 1); err != nil || active {
		t.Errorf("shape mismatch should be false, got %v %v", active, err)
	}

	stub.errs = map[string]error{"get-is-active-campaign": noHistory}
	if active, err := c.GetIsActiveCampaign(context.Background(), 1); err != nil || active {
		t.Errorf("400 should be false, got %v %v", active, err)
	}
}

func TestRawReads_PreserveWrapper(t *testing.T) {
	record := clarity.ResponseOk{Value: clarity.Some{Value: clarity.Tuple{
		"target-reached":        clarity.Bool(true),
		"target-reached-height": clarity.NewUInt(12),
		"funded":                clarity.Bool(false),
	}}}
	stub := &stubNode{
		results: map[string]clarity.Value{"get-campaign-status": record},
		errs:    map[string]error{"get-campaign": noHistory},
	}
	c := New("ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM", nil, stub)

	v, err := c.GetCampaignStatus(context.Background(), 1)
	if err != nil || !clarity.Equal(v, record) {
		t.Errorf("expected wrapper unchanged, got %s %v", clarity.String(v), err)
	}
	status, err := DecodeCampaignStatus(v)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !status.TargetReached || status.TargetReachedHeight != 12 || status.Funded {
		t.Errorf("unexpected status %+v", status)
	}

	v, err = c.GetCampaign(context.Background(), 1)
	if err != nil || clarity.String(v) != "(ok none)" {
		t.Errorf("400 should read as (ok none), got %s %v", clarity.String(v), err)
	}
	if _, err := c.Campaign(context.Background(), 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDecodeCampaign_BadShape(t *testing.T) {
	v := clarity.ResponseOk{Value: clarity.Some{Value: clarity.Tuple{"name": clarity.NewUInt(1)}}}
	if _, err := DecodeCampaign(v); err == nil {
		t.Error("expected error for malformed campaign")
	}
	if _, err := DecodeCampaign(clarity.NewUInt(1)); err == nil {
		t.Error("expected error for unwrapped value")
	}
}

func TestMutations_RejectInvalidInputLocally(t *testing.T) {
	stub := &stubNode{}
	c := New("ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM", newTestAccount(t), stub)
	ctx := context.Background()

	calls := map[string]func() (string, error){
		"campaign without link": func() (string, error) {
			return c.CreateCampaign(ctx, NewCampaign{Name: "a", Description: "b", Goal: big.NewInt(1), Duration: 1})
		},
		"campaign zero goal": func() (string, error) {
			return c.CreateCampaign(ctx, NewCampaign{Name: "a", Description: "b", Link: "c", Goal: new(big.Int), Duration: 1})
		},
		"campaign zero duration": func() (string, error) {
			return c.CreateCampaign(ctx, NewCampaign{Name: "a", Description: "b", Link: "c", Goal: big.NewInt(1)})
		},
		"update without description": func() (string, error) {
			return c.UpdateCampaignInformation(ctx, 1, CampaignUpdate{Link: "x"})
		},
		"tier without cost": func() (string, error) {
			return c.AddTier(ctx, NewTier{CampaignID: 1, Name: "a", Description: "b"})
		},
		"tier without campaign": func() (string, error) {
			return c.AddTier(ctx, NewTier{Name: "a", Description: "b", Cost: big.NewInt(1)})
		},
		"invest nothing": func() (string, error) {
			return c.Invest(ctx, 1, 1, new(big.Int))
		},
		"invest too much for a post-condition": func() (string, error) {
			return c.Invest(ctx, 1, 1, new(big.Int).Lsh(big.NewInt(1), 70))
		},
		"refund tier zero": func() (string, error) { return c.Refund(ctx, 1, 0) },
		"collect zero":     func() (string, error) { return c.Collect(ctx, 0) },
	}
	for name, call := range calls {
		txid, err := call()
		if !errors.Is(err, ErrInvalidInput) || txid != "" {
			t.Errorf("%s: got (%q, %v), want ErrInvalidInput", name, txid, err)
		}
	}
	if len(stub.broadcast) != 0 || len(stub.reads) != 0 {
		t.Errorf("invalid input must not reach the node: %d broadcasts, %d reads", len(stub.broadcast), len(stub.reads))
	}
}

func TestMutations_RequireAccount(t *testing.T) {
	c := New("ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM", nil, &stubNode{})
	if _, err := c.Collect(context.Background(), 1); !errors.Is(err, ErrNoAccount) {
		t.Errorf("expected ErrNoAccount, got %v", err)
	}
	if _, err := c.Invest(context.Background(), 1, 1, big.NewInt(5)); !errors.Is(err, ErrNoAccount) {
		t.Errorf("expected ErrNoAccount, got %v", err)
	}
}

func TestInvest_PostCondition(t *testing.T) {
	owner := newTestAccount(t)
	investor := newTestAccount(t)
	stub := &stubNode{}
	c := New(owner.Address, investor, stub)

	if _, err := c.Invest(context.Background(), 3, 2, big.NewInt(20000)); err != nil {
		t.Fatalf("Invest: %v", err)
	}
	tx := stub.broadcast[0]
	call := tx.Payload.(txn.ContractCall)
	if call.FunctionName != "invest" || call.ContractID() != owner.ContractID(ContractName) {
		t.Errorf("unexpected call %s::%s", call.ContractID(), call.FunctionName)
	}
	if tx.PostConditionMode != txn.PostConditionDeny || len(tx.PostConditions) != 1 {
		t.Fatalf("expected one post-condition in deny mode, got %v", tx.PostConditions)
	}
	pc := tx.PostConditions[0]
	if pc.PrincipalString() != investor.Address || pc.Code != txn.Equal || pc.Amount != 20000 {
		t.Errorf("unexpected post-condition %s", pc)
	}
}

func TestRefundAndCollect_ContractPostCondition(t *testing.T) {
	owner := newTestAccount(t)
	stub := &stubNode{}
	c := New(owner.Address, newTestAccount(t), stub)

	if _, err := c.Refund(context.Background(), 1, 1); err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if _, err := c.Collect(context.Background(), 1); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	for _, tx := range stub.broadcast {
		pc := tx.PostConditions[0]
		if pc.PrincipalString() != owner.ContractID(ContractName) || pc.Code != txn.Greater || pc.Amount != 0 {
			t.Errorf("unexpected post-condition %s", pc)
		}
	}
}

func TestDeriveStage(t *testing.T) {
	tests := []struct {
		name   string
		status *model.CampaignStatus
		target uint64
		height uint64
		want   model.Stage
	}{
		{"unknown", nil, 10, 5, model.StageUnknown},
		{"active", &model.CampaignStatus{}, 10, 9, model.StageActive},
		{"expired", &model.CampaignStatus{}, 10, 10, model.StageExpired},
		{"target reached early", &model.CampaignStatus{TargetReached: true, TargetReachedHeight: 4}, 10, 5, model.StageTargetReached},
		{"target reached after expiry", &model.CampaignStatus{TargetReached: true, TargetReachedHeight: 4}, 10, 50, model.StageTargetReached},
		{"funded", &model.CampaignStatus{TargetReached: true, Funded: true}, 10, 50, model.StageFunded},
	}
	for _, tt := range tests {
		if got := DeriveStage(tt.status, tt.target, tt.height); got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestTier_MissingTotalsAreZero(t *testing.T) {
	stub := &stubNode{results: map[string]clarity.Value{
		"get-campaign-tier": clarity.ResponseOk{Value: clarity.Some{Value: clarity.Tuple{
			"name":        clarity.BufferFromString("bronze"),
			"description": clarity.BufferFromString("entry"),
			"cost":        clarity.NewUInt(2000),
		}}},
		"get-campaign-tier-totals": clarity.ResponseOk{Value: clarity.None{}},
	}}
	c := New("ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM", nil, stub)

	tier, err := c.Tier(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("Tier: %v", err)
	}
	if tier.ID != 2 || tier.Name != "bronze" || tier.Cost.Int64() != 2000 {
		t.Errorf("unexpected tier %+v", tier)
	}
	if tier.Totals == nil || tier.Totals.TotalInvestment.Sign() != 0 || tier.Totals.TotalInvestors.Sign() != 0 {
		t.Errorf("expected zero totals, got %+v", tier.Totals)
	}

	stub.results["get-campaign-tier"] = clarity.ResponseOk{Value: clarity.None{}}
	if _, err := c.Tier(context.Background(), 1, 3); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for a missing tier, got %v", err)
	}
}
