package events

import (
	"context"
	"fmt"
	"sync"

	"insure-crm/internal/metrics"

	"go.uber.org/zap"
)

type Handler func(ctx context.Context, e Event) error

type Bus interface {
	// Publish queues e for delivery. It fails only when e cannot be queued.
	Publish(ctx context.Context, e Event) error
	Subscribe(name string, h Handler)
}

// handlers is the subscription table shared by the bus implementations.
type handlers struct {
	mu     sync.RWMutex
	byName map[string][]Handler
	logger *zap.Logger
}

func newHandlers(logger *zap.Logger) *handlers {
	return &handlers{byName: map[string][]Handler{}, logger: logger}
}

func (h *handlers) add(name string, fn Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.byName[name] = append(h.byName[name], fn)
}

// dispatch runs every handler for e. Handler errors and panics are logged and
// never reach the publisher.
func (h *handlers) dispatch(ctx context.Context, e Event) {
	h.mu.RLock()
	fns := append([]Handler(nil), h.byName[e.Name]...)
	h.mu.RUnlock()

	if len(fns) == 0 {
		metrics.EventsTotal.WithLabelValues(e.Name, "unhandled").Inc()
		return
	}
	for _, fn := range fns {
		err := safeCall(ctx, fn, e)
		if err != nil {
			metrics.EventsTotal.WithLabelValues(e.Name, "error").Inc()
			h.logger.Error("Event handler failed",
				zap.String("event", e.Name),
				zap.String("event_id", e.ID),
				zap.Error(err))
			continue
		}
		metrics.EventsTotal.WithLabelValues(e.Name, "ok").Inc()
	}
}

func safeCall(ctx context.Context, fn Handler, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return fn(ctx, e)
}
