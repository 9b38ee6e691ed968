package scheduler

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"Stackstarter/internal/collector"
	"Stackstarter/internal/model"
	"Stackstarter/internal/recorder"
)

type captureSender struct {
	mu   sync.Mutex
	sent []string
}

func (c *captureSender) SendWithRetry(_ context.Context, text string, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, text)
	return nil
}

func snap(id uint64, stage model.Stage, height uint64) *model.CampaignSnapshot {
	return &model.CampaignSnapshot{
		Campaign: &model.Campaign{ID: id, Name: "campaign", Goal: big.NewInt(1000), TargetBlockHeight: 50},
		Status:   &model.CampaignStatus{},
		Totals:   &model.Totals{TotalInvestment: big.NewInt(0), TotalInvestors: big.NewInt(0)},
		Height:   height,
		Stage:    stage,
	}
}

func TestPoll_DetectsTransitions(t *testing.T) {
	src := collector.NewMockSource()
	src.Set(snap(1, model.StageActive, 10))
	src.Set(snap(2, model.StageActive, 10))
	sender := &captureSender{}
	s := NewScheduler(context.Background(), collector.NewCollector(src, 2), sender, recorder.NewNoopRecorder(), nil)

	transitions, err := s.Poll(context.Background())
	if err != nil || len(transitions) != 0 {
		t.Fatalf("first poll: %v, %v", transitions, err)
	}

	src.Set(snap(1, model.StageTargetReached, 11))
	transitions, err = s.Poll(context.Background())
	if err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if len(transitions) != 1 {
		t.Fatalf("expected one transition, got %v", transitions)
	}
	tr := transitions[0]
	if tr.CampaignID != 1 || tr.From != model.StageActive || tr.To != model.StageTargetReached || tr.Height != 11 {
		t.Errorf("unexpected transition %+v", tr)
	}
	if len(sender.sent) != 1 || !strings.Contains(sender.sent[0], "ACTIVE → TARGET_REACHED") {
		t.Errorf("unexpected notifications %v", sender.sent)
	}

	if transitions, _ := s.Poll(context.Background()); len(transitions) != 0 {
		t.Errorf("unchanged stages should not transition, got %v", transitions)
	}
	if st, ok := s.Stage(1); !ok || st != model.StageTargetReached {
		t.Errorf("Stage(1) = %s, %v", st, ok)
	}
}

func TestPoll_FailedCampaignKeepsStage(t *testing.T) {
	src := collector.NewMockSource()
	src.Set(snap(1, model.StageActive, 10))
	s := NewScheduler(context.Background(), collector.NewCollector(src, 1), nil, recorder.NewNoopRecorder(), []uint64{1})
	s.Poll(context.Background())

	boom := errors.New("node down")
	src.Fail(1, boom)
	if _, err := s.Poll(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected node error, got %v", err)
	}
	src.Set(snap(1, model.StageActive, 12))
	if transitions, err := s.Poll(context.Background()); err != nil || len(transitions) != 0 {
		t.Errorf("recovery should not transition: %v %v", transitions, err)
	}
}

func TestPoll_RestoresStagesAcrossRestarts(t *testing.T) {
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "watch.db"))
	if err != nil {
		t.Fatalf("open recorder: %v", err)
	}
	defer rec.Close()

	src := collector.NewMockSource()
	src.Set(snap(4, model.StageActive, 10))
	watched := []uint64{4}
	first := NewScheduler(context.Background(), collector.NewCollector(src, 1), nil, rec, watched)
	if transitions, err := first.Poll(context.Background()); err != nil || len(transitions) != 0 {
		t.Fatalf("first poll: %v, %v", transitions, err)
	}

	src.Set(snap(4, model.StageExpired, 60))
	second := NewScheduler(context.Background(), collector.NewCollector(src, 1), nil, rec, watched)
	if st, ok := second.Stage(4); !ok || st != model.StageActive {
		t.Fatalf("restored Stage(4) = %s, %v", st, ok)
	}
	transitions, err := second.Poll(context.Background())
	if len(transitions) != 1 || transitions[0].From != model.StageActive || transitions[0].To != model.StageExpired {
		t.Errorf("expected restored ACTIVE -> EXPIRED, got %v", transitions)
	}
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
}

func TestPoll_DiscoversDenseIDs(t *testing.T) {
	src := collector.NewMockSource()
	for id := uint64(1); id <= 3; id++ {
		src.Set(snap(id, model.StageActive, 10))
	}
	s := NewScheduler(context.Background(), collector.NewCollector(src, 2), nil, recorder.NewNoopRecorder(), nil)
	if _, err := s.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}
	for id := uint64(1); id <= 3; id++ {
		if st, ok := s.Stage(id); !ok || st != model.StageActive {
			t.Errorf("Stage(%d) = %s, %v", id, st, ok)
		}
	}
}

func TestHandleCommand(t *testing.T) {
	src := collector.NewMockSource()
	src.Set(snap(1, model.StageActive, 10))
	s := NewScheduler(context.Background(), collector.NewCollector(src, 1), nil, recorder.NewNoopRecorder(), nil)
	ctx := context.Background()

	tests := []struct {
		command string
		want    string
	}{
		{"/status 1", "#1 campaign"},
		{"/status", "Usage"},
		{"/status abc", "Invalid campaign id"},
		{"/status 9", "could not be read"},
		{"/campaigns", "Campaigns</b> (1)"},
		{"hello", "Available commands"},
		{"", "Available commands"},
	}
	for _, tt := range tests {
		if got := s.HandleCommand(ctx, tt.command); !strings.Contains(got, tt.want) {
			t.Errorf("HandleCommand(%q) = %q, want it to contain %q", tt.command, got, tt.want)
		}
	}
}

func TestRegister(t *testing.T) {
	s := NewScheduler(context.Background(), collector.NewCollector(collector.NewMockSource(), 1), nil, recorder.NewNoopRecorder(), nil)
	if err := s.Register("not a cron"); err == nil {
		t.Error("expected error for invalid cron spec")
	}
	if err := s.Register("*/5 * * * * *"); err != nil {
		t.Errorf("Register: %v", err)
	}
	s.Start()
	s.Stop()
}
