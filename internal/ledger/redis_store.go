package ledger

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs each partition with a Redis list. RPUSH preserves
// append order, so a single LRANGE gives the stable listing order the
// coordinator's tie-break relies on.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func redisKey(partitionKey string) string {
	return fmt.Sprintf("ledger:%s", partitionKey)
}

func (s *RedisStore) Append(ctx context.Context, partitionKey string, rec Record) error {
	if err := s.rdb.RPush(ctx, redisKey(partitionKey), rec).Err(); err != nil {
		return fmt.Errorf("failed to append ledger record: %w", err)
	}
	return nil
}

func (s *RedisStore) AppendBatch(ctx context.Context, partitionKey string, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	vals := make([]interface{}, len(recs))
	for i, rec := range recs {
		vals[i] = rec
	}
	if err := s.rdb.RPush(ctx, redisKey(partitionKey), vals...).Err(); err != nil {
		return fmt.Errorf("failed to append ledger batch: %w", err)
	}
	return nil
}

func (s *RedisStore) ListAll(ctx context.Context, partitionKey string) ([]Record, error) {
	raw, err := s.rdb.LRange(ctx, redisKey(partitionKey), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger records: %w", err)
	}

	recs := make([]Record, 0, len(raw))
	for _, item := range raw {
		var rec Record
		if err := rec.UnmarshalBinary([]byte(item)); err != nil {
			return nil, fmt.Errorf("failed to decode ledger record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
