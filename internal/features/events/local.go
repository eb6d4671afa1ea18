package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrBusClosed = errors.New("event bus is closed")

const (
	localQueueSize = 1024
	handlerTimeout = 30 * time.Second
)

// LocalBus delivers events in process on a single worker goroutine.
type LocalBus struct {
	*handlers
	queue  chan Event
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewLocalBus(logger *zap.Logger) *LocalBus {
	b := &LocalBus{
		handlers: newHandlers(logger),
		queue:    make(chan Event, localQueueSize),
		done:     make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *LocalBus) run() {
	defer close(b.done)
	for e := range b.queue {
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		b.dispatch(ctx, e)
		cancel()
	}
}

func (b *LocalBus) Subscribe(name string, h Handler) {
	b.add(name, h)
}

func (b *LocalBus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}
	select {
	case b.queue <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events and waits for queued ones to be handled.
func (b *LocalBus) Close(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.queue)
	}
	b.mu.Unlock()

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
