package dispatch

import (
	"context"
	"sync"
)

// Publisher hands an event off for delivery without waiting for it.
// Implementations must not block on subscriber I/O and must not fail.
type Publisher interface {
	Publish(ctx context.Context, tenantID string, ev Event)
}

// Background publishes by running the dispatcher on its own goroutine.
// The caller's cancellation does not reach the dispatch, so a request that
// has already answered cannot abort delivery.
type Background struct {
	dispatcher *Dispatcher
	wg         sync.WaitGroup
}

var _ Publisher = (*Background)(nil)

// NewBackground creates an in-process publisher
func NewBackground(d *Dispatcher) *Background {
	return &Background{dispatcher: d}
}

// Publish starts a dispatch and returns immediately
func (b *Background) Publish(ctx context.Context, tenantID string, ev Event) {
	ctx = context.WithoutCancel(ctx)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.dispatcher.Dispatch(ctx, tenantID, ev)
	}()
}

// Wait blocks until in-flight dispatches finish or ctx is done
func (b *Background) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
