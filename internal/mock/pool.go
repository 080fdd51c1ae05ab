package mock

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many scripts run at once. Scripts block their goroutine
// until they finish; Do lets the caller stop waiting without stopping them.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool returns a pool with room for workers concurrent calls.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(workers))}
}

// Do runs fn on a worker and waits for it. If ctx ends first, fn keeps its
// slot until it returns and its outcome is dropped. A panic in fn and an
// abandoned wait are both reported as *JoinError.
func (p *Pool) Do(ctx context.Context, fn func()) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return &JoinError{Err: fmt.Errorf("no worker available: %w", err)}
	}

	done := make(chan error, 1)
	go func() {
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				done <- &JoinError{Err: fmt.Errorf("panic: %v", r)}
			}
		}()
		fn()
		done <- nil
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return &JoinError{Err: ctx.Err()}
	}
}
