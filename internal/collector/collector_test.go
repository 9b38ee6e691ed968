package collector

import (
	"context"
	"errors"
	"testing"

	"Stackstarter/internal/model"
)

func snap(id uint64, stage model.Stage) *model.CampaignSnapshot {
	return &model.CampaignSnapshot{Campaign: &model.Campaign{ID: id}, Stage: stage}
}

func TestCollect_AllCampaignsInOrder(t *testing.T) {
	src := NewMockSource()
	for id := uint64(1); id <= 6; id++ {
		src.Set(snap(id, model.StageActive))
	}
	c := NewCollector(src, 3)

	snaps, err := c.Collect(context.Background(), nil)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(snaps) != 6 {
		t.Fatalf("got %d snapshots, want 6", len(snaps))
	}
	for i, s := range snaps {
		if s.Campaign.ID != uint64(i+1) {
			t.Errorf("snapshot %d has id %d", i, s.Campaign.ID)
		}
	}
}

func TestCollect_PartialFailure(t *testing.T) {
	src := NewMockSource()
	src.Set(snap(1, model.StageActive))
	src.Set(snap(3, model.StageFunded))
	boom := errors.New("node unavailable")
	src.Fail(2, boom)

	snaps, err := NewCollector(src, 2).Collect(context.Background(), []uint64{3, 2, 1})
	if !errors.Is(err, boom) {
		t.Errorf("expected joined error, got %v", err)
	}
	if len(snaps) != 2 || snaps[0].Campaign.ID != 1 || snaps[1].Campaign.ID != 3 {
		t.Errorf("unexpected snapshots %v", snaps)
	}
}

func TestCollect_Cancelled(t *testing.T) {
	src := NewMockSource()
	src.Set(snap(1, model.StageActive))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src.Fail(1, context.Canceled)
	if _, err := NewCollector(src, 1).Collect(ctx, []uint64{1}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestAllCampaigns_Empty(t *testing.T) {
	ids, err := NewCollector(NewMockSource(), 0).AllCampaigns(context.Background())
	if err != nil || len(ids) != 0 {
		t.Errorf("got %v, %v", ids, err)
	}
}
