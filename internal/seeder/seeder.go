package seeder

import (
	"context"
	"log"
	"time"

	"github.com/vnmchuo/crawl-meter/internal/ledger"
)

const seedWorkerID = "seed-worker"

// SeedUsageHistory pre-populates a partition with free-unit usage so a
// local run starts mid-quota instead of from an empty period.
func SeedUsageHistory(ctx context.Context, store ledger.Store, partitionKey string, units int) {
	if units <= 0 {
		return
	}

	now := time.Now()
	recs := make([]ledger.Record, units)
	for i := range recs {
		recs[i] = ledger.NewUsageRecord(seedWorkerID, 1, now)
	}

	if err := store.AppendBatch(ctx, partitionKey, recs); err != nil {
		log.Printf("[Seeder] failed to seed usage history: %v", err)
		return
	}
	log.Printf("[Seeder] seeded %d free units into %s", units, partitionKey)
}
