package collector

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"Stackstarter/internal/model"
)

// Source defines the interface for reading campaign state.
type Source interface {
	Snapshot(ctx context.Context, campaignID uint64) (*model.CampaignSnapshot, error)
	GetTotalCampaigns(ctx context.Context) (*big.Int, error)
}

// MockSource returns controllable fixed snapshots for development and testing.
type MockSource struct {
	mu        sync.Mutex
	snapshots map[uint64]*model.CampaignSnapshot
	errs      map[uint64]error
	calls     int
}

func NewMockSource() *MockSource {
	return &MockSource{
		snapshots: make(map[uint64]*model.CampaignSnapshot),
		errs:      make(map[uint64]error),
	}
}

// Set replaces the snapshot served for a campaign and clears its error.
func (m *MockSource) Set(snap *model.CampaignSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snap.Campaign.ID] = snap
	delete(m.errs, snap.Campaign.ID)
}

// Fail makes every snapshot of campaignID return err.
func (m *MockSource) Fail(campaignID uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[campaignID] = err
}

// Calls is the number of Snapshot calls served so far.
func (m *MockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockSource) Snapshot(_ context.Context, campaignID uint64) (*model.CampaignSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err, ok := m.errs[campaignID]; ok {
		return nil, err
	}
	snap, ok := m.snapshots[campaignID]
	if !ok {
		return nil, fmt.Errorf("campaign %d: not found", campaignID)
	}
	cp := *snap
	return &cp, nil
}

// GetTotalCampaigns reports the highest campaign id served.
func (m *MockSource) GetTotalCampaigns(context.Context) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var highest uint64
	for id := range m.snapshots {
		if id > highest {
			highest = id
		}
	}
	for id := range m.errs {
		if id > highest {
			highest = id
		}
	}
	return new(big.Int).SetUint64(highest), nil
}
