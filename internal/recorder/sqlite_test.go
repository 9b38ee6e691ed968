package recorder

import (
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"Stackstarter/internal/model"
)

func openTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func snapshot(id uint64, stage model.Stage, height uint64) *model.CampaignSnapshot {
	return &model.CampaignSnapshot{
		Campaign: &model.Campaign{
			ID:                id,
			Fundraiser:        "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM",
			Name:              "campaign",
			Goal:              big.NewInt(50000),
			TargetBlockHeight: 100,
		},
		Status: &model.CampaignStatus{TargetReached: stage == model.StageTargetReached},
		Totals: &model.Totals{TotalInvestment: big.NewInt(30000), TotalInvestors: big.NewInt(2)},
		Tiers:  []model.Tier{{ID: 1, Name: "tier", Cost: big.NewInt(10000)}},
		Height: height,
		Stage:  stage,
	}
}

func count(t *testing.T, r *SQLiteRecorder, table string) int {
	t.Helper()
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM " + table + " WHERE run_id = ?", r.RunID()).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestSQLiteRecorder_SnapshotsAndLastStages(t *testing.T) {
	r := openTestRecorder(t)

	for _, s := range []*model.CampaignSnapshot{
		snapshot(1, model.StageActive, 10),
		snapshot(2, model.StageExpired, 11),
		snapshot(1, model.StageTargetReached, 12),
	} {
		if err := r.RecordSnapshot(s); err != nil {
			t.Fatalf("RecordSnapshot: %v", err)
		}
	}
	if n := count(t, r, "campaign_snapshots"); n != 3 {
		t.Errorf("snapshot rows = %d, want 3", n)
	}

	stages, err := r.LastStages()
	if err != nil {
		t.Fatalf("LastStages: %v", err)
	}
	if stages[1] != model.StageTargetReached || stages[2] != model.StageExpired || len(stages) != 2 {
		t.Errorf("unexpected last stages %v", stages)
	}

	var goal, investment string
	if err := r.db.QueryRow(`SELECT goal, total_investment FROM campaign_snapshots WHERE campaign_id = 2`).Scan(&goal, &investment); err != nil {
		t.Fatalf("query: %v", err)
	}
	if goal != "50000" || investment != "30000" {
		t.Errorf("amounts stored as %q/%q", goal, investment)
	}

	if err := r.RecordSnapshot(&model.CampaignSnapshot{}); err == nil {
		t.Error("snapshot without campaign should fail")
	}
}

func TestSQLiteRecorder_BroadcastsAndTransitions(t *testing.T) {
	r := openTestRecorder(t)
	if r.RunID() == "" {
		t.Fatal("run id should be set")
	}

	if err := r.RecordBroadcast(&BroadcastEvent{TxID: "0xabc", Function: "invest", CampaignID: 1, Amount: "2000"}); err != nil {
		t.Fatalf("RecordBroadcast: %v", err)
	}
	if err := r.RecordTransition(&model.Transition{
		CampaignID: 1, From: model.StageActive, To: model.StageTargetReached, Height: 12, At: time.Now(),
	}); err != nil {
		t.Fatalf("RecordTransition: %v", err)
	}
	if n := count(t, r, "broadcasts"); n != 1 {
		t.Errorf("broadcast rows = %d", n)
	}
	if n := count(t, r, "stage_transitions"); n != 1 {
		t.Errorf("transition rows = %d", n)
	}
}

func TestSQLiteRecorder_ReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	r, err := NewSQLiteRecorder(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := r.RecordSnapshot(snapshot(7, model.StageFunded, 30)); err != nil {
		t.Fatalf("RecordSnapshot: %v", err)
	}
	first := r.RunID()
	r.Close()

	r, err = NewSQLiteRecorder(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer r.Close()
	if r.RunID() == first {
		t.Error("each open should get a fresh run id")
	}
	stages, err := r.LastStages()
	if err != nil || stages[7] != model.StageFunded {
		t.Errorf("history lost after reopen: %v %v", stages, err)
	}
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	if err := r.RecordSnapshot(snapshot(1, model.StageActive, 1)); err != nil {
		t.Error(err)
	}
	stages, err := r.LastStages()
	if err != nil || len(stages) != 0 {
		t.Errorf("noop last stages = %v, %v", stages, err)
	}
}
