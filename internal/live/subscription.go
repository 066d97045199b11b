package live

import (
	"context"
	"sync"
)

// Fetcher loads the current ordered result set of a collection.
type Fetcher[T any] func(ctx context.Context) ([]T, error)

// Snapshot is the complete result set at one point in time, or the error that
// prevented loading it.
type Snapshot[T any] struct {
	Items []T
	Err   error
}

// Subscription delivers a snapshot on open and a fresh one after every change.
type Subscription[T any] struct {
	C <-chan Snapshot[T]

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// Subscribe opens a subscription on collection. It holds one registration on
// the hub until ctx is cancelled or Close is called.
func Subscribe[T any](ctx context.Context, h *Hub, collection string, fetch Fetcher[T]) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan Snapshot[T])
	s := &Subscription[T]{C: out, cancel: cancel, done: make(chan struct{})}

	// Register before the first fetch so no change can fall between them.
	reg := h.register(collection)

	go func() {
		defer close(s.done)
		defer close(out)
		defer h.unregister(collection, reg)

		for {
			items, err := fetch(ctx)
			if ctx.Err() != nil {
				return
			}
			snap := Snapshot[T]{Items: items, Err: err}
			if err != nil {
				h.logger.Warn().Err(err).Str("collection", collection).Msg("snapshot fetch failed")
				snap.Items = nil
			}

			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}

			select {
			case <-reg.wake:
			case <-ctx.Done():
				return
			}
		}
	}()
	return s
}

// Snapshots returns the delivery channel. It is closed once the subscription ends.
func (s *Subscription[T]) Snapshots() <-chan Snapshot[T] { return s.C }

// Close releases the subscription and waits for its goroutine to exit.
func (s *Subscription[T]) Close() {
	s.closeOnce.Do(s.cancel)
	<-s.done
}
