package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/riverzaw/wasmer-cloud-solution/internal/domain"
)

// RedisQueue is a Redis list used as a FIFO job queue: LPUSH to enqueue,
// blocking BRPOP to consume. Jobs survive process restarts; a crashed
// worker's replacement resumes from whatever is still on the list.
type RedisQueue struct {
	client  *redis.Client
	key     string
	popWait time.Duration
}

func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	return &RedisQueue{
		client:  client,
		key:     key,
		popWait: 5 * time.Second,
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job domain.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (domain.Job, error) {
	res, err := q.client.BRPop(ctx, q.popWait, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Job{}, ErrEmpty
		}
		return domain.Job{}, fmt.Errorf("failed to dequeue job: %w", err)
	}
	// BRPop returns [key, value]
	var job domain.Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return domain.Job{}, fmt.Errorf("failed to decode job: %w", err)
	}
	return job, nil
}

// Depth reports the number of queued jobs, used for the queue gauge.
func (q *RedisQueue) Depth(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
