package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// inMemoryDispatcher invokes handlers synchronously on the publisher's
// goroutine. Used in tests and as the delivery core of the async dispatcher.
type inMemoryDispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
}

// NewInMemoryDispatcher creates a synchronous dispatcher instance.
func NewInMemoryDispatcher() Dispatcher {
	return &inMemoryDispatcher{
		listeners: make(map[EventType][]EventHandler),
	}
}

// Publish synchronously invokes handlers for the given event. Handler errors
// do not stop delivery to the remaining handlers.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	handlers := append([]EventHandler{}, d.listeners[event.Type]...)
	d.mu.RUnlock()

	for _, handler := range handlers {
		_ = handler(ctx, event)
	}
	return nil
}

// Subscribe registers a handler for the given event type.
func (d *inMemoryDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}

// asyncDispatcher hands events to a worker goroutine so publication never
// blocks or fails the write path. A full queue drops the event with a log
// line; losing a single notification is tolerated, losing the write is not.
type asyncDispatcher struct {
	inner  *inMemoryDispatcher
	queue  chan Event
	logger *zap.Logger
	wg     sync.WaitGroup
	once   sync.Once
}

// NewAsyncDispatcher starts a dispatcher with a buffered queue of the given
// size. Close drains the queue.
func NewAsyncDispatcher(buffer int, logger *zap.Logger) *asyncDispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	d := &asyncDispatcher{
		inner:  &inMemoryDispatcher{listeners: make(map[EventType][]EventHandler)},
		queue:  make(chan Event, buffer),
		logger: logger,
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *asyncDispatcher) run() {
	defer d.wg.Done()
	for event := range d.queue {
		// handlers run detached from the originating request
		_ = d.inner.Publish(context.Background(), event)
	}
}

// Publish enqueues the event. It never returns an error to the caller.
func (d *asyncDispatcher) Publish(ctx context.Context, event Event) error {
	select {
	case d.queue <- event:
	default:
		d.logger.Warn("event queue full, dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID))
	}
	return nil
}

// Subscribe registers a handler for the given event type.
func (d *asyncDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.inner.Subscribe(eventType, handler)
}

// Close stops accepting events and waits for the queue to drain.
func (d *asyncDispatcher) Close() {
	d.once.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}
