package queue

import (
	"context"
	"time"

	"github.com/riverzaw/wasmer-cloud-solution/internal/domain"
)

// MemoryQueue is a channel-backed queue for tests and single-node dev
// runs. Same contract as RedisQueue minus durability.
type MemoryQueue struct {
	jobs    chan domain.Job
	popWait time.Duration
}

func NewMemoryQueue(size int) *MemoryQueue {
	return &MemoryQueue{
		jobs:    make(chan domain.Job, size),
		popWait: 50 * time.Millisecond,
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, job domain.Job) error {
	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (domain.Job, error) {
	select {
	case job := <-q.jobs:
		return job, nil
	case <-time.After(q.popWait):
		return domain.Job{}, ErrEmpty
	case <-ctx.Done():
		return domain.Job{}, ctx.Err()
	}
}

func (q *MemoryQueue) Len() int { return len(q.jobs) }
