package ledger

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_AppendAndList(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	if err := store.Append(ctx, "p1", NewPeriodMarker("worker-a", now)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.AppendBatch(ctx, "p1", []Record{
		NewUsageRecord("worker-a", 1, now),
		NewUsageRecord("worker-b", 1, now),
	}); err != nil {
		t.Fatalf("AppendBatch failed: %v", err)
	}

	recs, err := store.ListAll(ctx, "p1")
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	if recs[0].Type != RecordPeriodMarker {
		t.Errorf("expected listing to preserve append order, got %s first", recs[0].Type)
	}
}

func TestMemoryStore_PartitionsAreIsolated(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_ = store.Append(ctx, "p1", NewUsageRecord("worker-a", 1, time.Now()))

	recs, err := store.ListAll(ctx, "p2")
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("expected empty partition, got %d records", len(recs))
	}
}

func TestMemoryStore_ListReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_ = store.Append(ctx, "p1", NewUsageRecord("worker-a", 1, time.Now()))
	recs, _ := store.ListAll(ctx, "p1")
	recs[0].Count = 99

	again, _ := store.ListAll(ctx, "p1")
	if again[0].Count != 1 {
		t.Error("mutating a listing must not change stored records")
	}
}
