package recorder

import (
	"time"

	"Stackstarter/internal/model"
)

// BroadcastEvent records a transaction accepted by the node.
type BroadcastEvent struct {
	TxID       string
	Sender     string
	Function   string // contract function, or "deploy"
	CampaignID uint64 // 0 when not campaign specific
	Amount     string // micro-STX as a decimal string, empty if none
	At         time.Time
}

// Recorder persists the watcher's history for later analysis.
type Recorder interface {
	RecordBroadcast(evt *BroadcastEvent) error
	RecordSnapshot(snap *model.CampaignSnapshot) error
	RecordTransition(t *model.Transition) error
	// LastStages returns the most recent recorded stage per campaign.
	LastStages() (map[uint64]model.Stage, error)
	Close() error
}
