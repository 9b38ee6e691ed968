package scheduler

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"Stackstarter/internal/collector"
	"Stackstarter/internal/model"
	"Stackstarter/internal/notifier"
	"Stackstarter/internal/recorder"
)

// Sender delivers chat messages.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler periodically snapshots campaigns and reports stage changes.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Notifier  Sender // nil logs instead of sending
	Recorder  recorder.Recorder
	// Campaigns to watch; empty watches every campaign.
	Campaigns []uint64
	Ctx       context.Context

	mu     sync.Mutex
	stages map[uint64]model.Stage
}

// NewScheduler creates a new Scheduler. Stages recorded by earlier runs are
// restored so a restart does not report transitions twice.
func NewScheduler(ctx context.Context, col *collector.Collector, sender Sender, rec recorder.Recorder, campaigns []uint64) *Scheduler {
	stages, err := rec.LastStages()
	if err != nil {
		log.Printf("[WARN] restore last stages: %v", err)
		stages = make(map[uint64]model.Stage)
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Collector: col,
		Notifier:  sender,
		Recorder:  rec,
		Campaigns: campaigns,
		Ctx:       ctx,
		stages:    stages,
	}
}

// Register schedules the watch task.
func (s *Scheduler) Register(watchCron string) error {
	if _, err := s.Cron.AddFunc(watchCron, s.watchTask); err != nil {
		return fmt.Errorf("register watch task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for a running task.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunNow executes the watch task immediately.
func (s *Scheduler) RunNow() {
	s.watchTask()
}

func (s *Scheduler) watchTask() {
	log.Println("[INFO] running watch task")
	transitions, err := s.Poll(s.Ctx)
	if err != nil {
		log.Printf("[ERROR] watch: %v", err)
	}
	log.Printf("[INFO] watch task done, %d transitions", len(transitions))
}

// Poll snapshots the watched campaigns once, records every snapshot and
// returns the stage transitions since the previous poll. A campaign seen
// for the first time has no transition. Campaigns that could not be read
// are reported in the error and keep their previous stage.
func (s *Scheduler) Poll(ctx context.Context) ([]model.Transition, error) {
	snaps, collectErr := s.Collector.Collect(ctx, s.Campaigns)

	var transitions []model.Transition
	for _, snap := range snaps {
		if err := s.Recorder.RecordSnapshot(snap); err != nil {
			log.Printf("[ERROR] record snapshot: %v", err)
		}

		id := snap.Campaign.ID
		s.mu.Lock()
		prev, seen := s.stages[id]
		s.stages[id] = snap.Stage
		s.mu.Unlock()
		if !seen || prev == snap.Stage {
			continue
		}

		t := model.Transition{CampaignID: id, From: prev, To: snap.Stage, Height: snap.Height, At: time.Now()}
		transitions = append(transitions, t)
		log.Printf("[INFO] campaign %d: %s -> %s at block %d", id, prev, snap.Stage, snap.Height)
		if err := s.Recorder.RecordTransition(&t); err != nil {
			log.Printf("[ERROR] record transition: %v", err)
		}
		s.trySend(ctx, notifier.FormatTransition(&t, snap))
	}
	return transitions, collectErr
}

// Stage returns the last observed stage of a campaign.
func (s *Scheduler) Stage(campaignID uint64) (model.Stage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stages[campaignID]
	return st, ok
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	switch fields[0] {
	case "/status":
		if len(fields) != 2 {
			return "Usage: /status &lt;campaign id&gt;"
		}
		id, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil || id == 0 {
			return fmt.Sprintf("Invalid campaign id %q", fields[1])
		}
		snaps, err := s.Collector.Collect(ctx, []uint64{id})
		if err != nil || len(snaps) == 0 {
			log.Printf("[WARN] /status %d: %v", id, err)
			return fmt.Sprintf("Campaign #%d could not be read", id)
		}
		return notifier.FormatSnapshot(snaps[0])
	case "/campaigns":
		snaps, err := s.Collector.Collect(ctx, s.Campaigns)
		if err != nil {
			log.Printf("[WARN] /campaigns: %v", err)
		}
		return notifier.FormatCampaignList(snaps)
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if s.Notifier == nil {
		log.Printf("[INFO] notification: %s", text)
		return
	}
	if err := s.Notifier.SendWithRetry(ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
