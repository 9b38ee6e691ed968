package recorder

import "Stackstarter/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordBroadcast(_ *BroadcastEvent) error        { return nil }
func (n *NoopRecorder) RecordSnapshot(_ *model.CampaignSnapshot) error { return nil }
func (n *NoopRecorder) RecordTransition(_ *model.Transition) error     { return nil }
func (n *NoopRecorder) LastStages() (map[uint64]model.Stage, error)    { return map[uint64]model.Stage{}, nil }
func (n *NoopRecorder) Close() error                                   { return nil }
