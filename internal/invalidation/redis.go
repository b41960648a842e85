package invalidation

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

const drainBatch = 100

// RedisCommands is the subset of *redis.Client the queue needs.
type RedisCommands interface {
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SPopN(ctx context.Context, key string, count int64) *redis.StringSliceCmd
}

// RedisQueue stores pending plan ids in a Redis set, which gives
// de-duplication for free. SPOP removes atomically, so two draining workers
// never receive the same id.
type RedisQueue struct {
	rdb RedisCommands
	key string
}

func NewRedisQueue(rdb RedisCommands, key string) *RedisQueue {
	return &RedisQueue{rdb: rdb, key: key}
}

func (q *RedisQueue) EnqueuePendingRecompute(ctx context.Context, planID string) error {
	if err := q.rdb.SAdd(ctx, q.key, planID).Err(); err != nil {
		return fmt.Errorf("redis sadd %s: %w", q.key, err)
	}
	return nil
}

// DrainPendingRecompute pops the set in batches until it is empty. Ids come
// back sorted since a set has no order.
func (q *RedisQueue) DrainPendingRecompute(ctx context.Context) ([]string, error) {
	var ids []string
	for {
		batch, err := q.rdb.SPopN(ctx, q.key, drainBatch).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return ids, fmt.Errorf("redis spop %s: %w", q.key, err)
		}
		ids = append(ids, batch...)
		if len(batch) < drainBatch {
			break
		}
	}
	sort.Strings(ids)
	return ids, nil
}
