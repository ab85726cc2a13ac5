package ledger

import (
	"context"
	"encoding/json"
	"time"
)

type RecordType string

const (
	RecordPeriodMarker RecordType = "period-marker"
	RecordUsage        RecordType = "usage"
)

// Record is the single wire shape for both ledger record kinds,
// discriminated by Type. Readers must switch on Type and ignore
// fields that do not belong to the kind.
type Record struct {
	Type      RecordType `json:"type"`
	WorkerID  string     `json:"worker_id"`
	Count     int        `json:"count,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

func NewPeriodMarker(workerID string, ts time.Time) Record {
	return Record{Type: RecordPeriodMarker, WorkerID: workerID, Timestamp: ts}
}

func NewUsageRecord(workerID string, count int, ts time.Time) Record {
	return Record{Type: RecordUsage, WorkerID: workerID, Count: count, Timestamp: ts}
}

// MarshalBinary implements encoding.BinaryMarshaler for Redis
func (r Record) MarshalBinary() ([]byte, error) {
	return json.Marshal(r)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for Redis
func (r *Record) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, r)
}

// Store is the append-only record store shared by all workers of an
// account. Appends from other workers become visible to ListAll with
// a store-defined delay; there is no compare-and-append. ListAll
// returns records in a stable order for a single call.
type Store interface {
	Append(ctx context.Context, partitionKey string, rec Record) error
	AppendBatch(ctx context.Context, partitionKey string, recs []Record) error
	ListAll(ctx context.Context, partitionKey string) ([]Record, error)
}
