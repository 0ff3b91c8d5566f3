// Package queue carries background jobs from the request path to the
// worker pool. Messages are JSON-encoded domain.Job values; the request
// path only enqueues and returns.
package queue

import (
	"context"
	"errors"

	"github.com/riverzaw/wasmer-cloud-solution/internal/domain"
)

// ErrEmpty is returned by Dequeue when no job arrived within the
// implementation's blocking window. Workers treat it as "poll again".
var ErrEmpty = errors.New("queue is empty")

type Queue interface {
	Enqueue(ctx context.Context, job domain.Job) error

	// Dequeue blocks for a bounded interval waiting for a job and
	// returns ErrEmpty when none arrived.
	Dequeue(ctx context.Context) (domain.Job, error)
}
