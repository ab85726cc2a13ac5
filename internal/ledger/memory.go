package ledger

import (
	"context"
	"sync"
)

// MemoryStore keeps partitions in process memory. It is the default
// backend for local development and the base for test fakes; appends
// are immediately visible, unlike the shared backends.
type MemoryStore struct {
	mu         sync.Mutex
	partitions map[string][]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{partitions: make(map[string][]Record)}
}

func (s *MemoryStore) Append(ctx context.Context, partitionKey string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partitions[partitionKey] = append(s.partitions[partitionKey], rec)
	return nil
}

func (s *MemoryStore) AppendBatch(ctx context.Context, partitionKey string, recs []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partitions[partitionKey] = append(s.partitions[partitionKey], recs...)
	return nil
}

func (s *MemoryStore) ListAll(ctx context.Context, partitionKey string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.partitions[partitionKey]
	out := make([]Record, len(recs))
	copy(out, recs)
	return out, nil
}
