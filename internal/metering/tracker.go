package metering

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/vnmchuo/crawl-meter/internal/ledger"
)

// Tracker caches the period's free-unit count locally. The counter is
// advanced optimistically by Reserve on the hot path and corrected on
// a fixed timer by re-summing the partition's usage records. A refresh
// simply overwrites the counter; an optimistic increment racing the
// overwrite is lost, which only shifts the free/paid boundary by a few
// units and never double-charges.
type Tracker struct {
	store        ledger.Store
	partitionKey string
	interval     time.Duration
	count        atomic.Int64
}

func NewTracker(store ledger.Store, partitionKey string, interval time.Duration) *Tracker {
	return &Tracker{
		store:        store,
		partitionKey: partitionKey,
		interval:     interval,
	}
}

// Seed initializes the counter from one full listing. On failure the
// counter stays at zero; the caller logs and continues, and the first
// timed refresh repairs the count.
func (t *Tracker) Seed(ctx context.Context) error {
	return t.refresh(ctx)
}

// Run drives the periodic refresh until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := t.refresh(ctx); err != nil {
				log.Printf("quota: refresh failed, keeping cached count: %v", err)
			}
		}
	}
}

func (t *Tracker) refresh(ctx context.Context) error {
	recs, err := t.store.ListAll(ctx, t.partitionKey)
	if err != nil {
		return err
	}

	var sum int64
	for _, rec := range recs {
		if rec.Type == ledger.RecordUsage {
			sum += int64(rec.Count)
		}
	}
	t.count.Store(sum)
	return nil
}

// FreeUnitsUsed returns the current cached count.
func (t *Tracker) FreeUnitsUsed() int64 {
	return t.count.Load()
}

// Reserve optimistically claims one unit and returns the
// post-increment count the charge decision is made on.
func (t *Tracker) Reserve() int64 {
	return t.count.Add(1)
}
