package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore persists ledger records in an append-only table:
//
//	CREATE TABLE ledger_records (
//	    id            BIGSERIAL PRIMARY KEY,
//	    partition_key TEXT NOT NULL,
//	    record_type   TEXT NOT NULL,
//	    worker_id     TEXT NOT NULL,
//	    count         INT NOT NULL DEFAULT 0,
//	    recorded_at   TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX idx_ledger_records_partition ON ledger_records (partition_key, id);
//
// Listing orders by id so a single call always sees the same order.
type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, partitionKey string, rec Record) error {
	query := `
		INSERT INTO ledger_records (partition_key, record_type, worker_id, count, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.Exec(ctx, query,
		partitionKey, string(rec.Type), rec.WorkerID, rec.Count, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append ledger record: %w", err)
	}
	return nil
}

func (s *PostgresStore) AppendBatch(ctx context.Context, partitionKey string, recs []Record) error {
	for _, rec := range recs {
		if err := s.Append(ctx, partitionKey, rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) ListAll(ctx context.Context, partitionKey string) ([]Record, error) {
	query := `
		SELECT record_type, worker_id, count, recorded_at
		FROM ledger_records
		WHERE partition_key = $1
		ORDER BY id
	`
	rows, err := s.db.Query(ctx, query, partitionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger records: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var (
			recType  string
			workerID string
			count    int
			ts       time.Time
		)
		if err := rows.Scan(&recType, &workerID, &count, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan ledger record: %w", err)
		}
		recs = append(recs, Record{
			Type:      RecordType(recType),
			WorkerID:  workerID,
			Count:     count,
			Timestamp: ts,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger records: %w", err)
	}
	return recs, nil
}
