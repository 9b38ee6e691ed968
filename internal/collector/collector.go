package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"Stackstarter/internal/model"
)

// Collector snapshots several campaigns concurrently.
type Collector struct {
	Source Source
	// Concurrency bounds the number of campaigns read at once.
	Concurrency int
}

// NewCollector creates a new Collector.
func NewCollector(source Source, concurrency int) *Collector {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Collector{Source: source, Concurrency: concurrency}
}

// AllCampaigns lists every campaign id the contract has issued.
func (c *Collector) AllCampaigns(ctx context.Context) ([]uint64, error) {
	total, err := c.Source.GetTotalCampaigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("total campaigns: %w", err)
	}
	if !total.IsUint64() {
		return nil, fmt.Errorf("total campaigns %s out of range", total)
	}
	ids := make([]uint64, 0, total.Uint64())
	for id := uint64(1); id <= total.Uint64(); id++ {
		ids = append(ids, id)
	}
	return ids, nil
}

// Collect snapshots the given campaigns, or all of them when ids is empty.
// Snapshots come back in id order. A campaign that cannot be read is left
// out and its error joined into the returned error; the others are still
// returned.
func (c *Collector) Collect(ctx context.Context, ids []uint64) ([]*model.CampaignSnapshot, error) {
	if len(ids) == 0 {
		all, err := c.AllCampaigns(ctx)
		if err != nil {
			return nil, err
		}
		ids = all
	}

	var (
		mu    sync.Mutex
		snaps []*model.CampaignSnapshot
		errs  []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.Concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			snap, err := c.Source.Snapshot(gctx, id)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Printf("[WARN] snapshot campaign %d: %v", id, err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("campaign %d: %w", id, err))
				mu.Unlock()
				return nil
			}
			mu.Lock()
			snaps = append(snaps, snap)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Campaign.ID < snaps[j].Campaign.ID })
	return snaps, errors.Join(errs...)
}
