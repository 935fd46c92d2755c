package main

import (
	"context"
	"sync"

	"txtforge/pkg/logger"
)

// workers tracks the background loops that use the pool, the queue and the index.
type workers struct {
	wg sync.WaitGroup
}

func (w *workers) Go(name string, fn func()) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		fn()
		logger.Info("Background worker stopped", logger.String("worker", name))
	}()
}

// Wait blocks until every worker has returned or ctx is done.
func (w *workers) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
