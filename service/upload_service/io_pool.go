package upload_service

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// ioPool bounds concurrent disk and storage work independently of request goroutines
type ioPool struct {
	sem *semaphore.Weighted
}

func newIOPool(workers int) *ioPool {
	if workers <= 0 {
		workers = 1
	}
	return &ioPool{sem: semaphore.NewWeighted(int64(workers))}
}

// run executes fn once a slot is free, or returns ctx.Err()
func (p *ioPool) run(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn()
}
